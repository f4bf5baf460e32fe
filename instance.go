package titan

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// ValidationLayerName is the layer enabled when Config.Validation is set.
const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// DebugReportExtensionName is the diagnostic extension that accompanies the
// validation layer.
const DebugReportExtensionName = "VK_EXT_debug_report"

// InstanceKey identifies an Instance entry.
type InstanceKey = Key[Instance]

// Instance owns the native Vulkan instance. It is the root of the resource
// dependency chain and has no parents.
type Instance struct {
	Key        InstanceKey
	VKInstance vk.Instance

	// APIVersion is the instance version negotiated with the driver.
	APIVersion Version

	EnabledLayers     []string
	EnabledExtensions []string

	debugCallback vk.DebugReportCallback
}

// SupportedLayers returns the instance layers the driver exposes.
func SupportedLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, properties)); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, layer := range properties {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// SupportedExtensions returns the instance extensions the driver exposes.
func SupportedExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, properties)); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, ext := range properties {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// instanceVersion asks the driver for the highest instance version it
// supports. Drivers that predate the query report 1.0.
func instanceVersion() Version {
	var packed uint32
	if err := vk.Error(vk.EnumerateInstanceVersion(&packed)); err != nil {
		return Version{Major: 1}
	}
	return Version{
		Major: int(packed >> 22),
		Minor: int((packed >> 12) & 0x3ff),
		Patch: int(packed & 0xfff),
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// CreateInstance creates the Vulkan instance and inserts it into the
// registry. The validation layer and the debug report extension are enabled
// only when the config asks for validation and the driver supports them;
// surfaceExtensions come from the windowing layer and are always required.
func CreateInstance(reg *Registries, config *Config, surfaceExtensions []string, logger *zap.Logger) (InstanceKey, error) {
	version := instanceVersion()

	supportedLayers, err := SupportedLayers()
	if err != nil {
		return InstanceKey{}, fmt.Errorf("enumerating instance layers: %w", err)
	}
	supportedExtensions, err := SupportedExtensions()
	if err != nil {
		return InstanceKey{}, fmt.Errorf("enumerating instance extensions: %w", err)
	}

	layers := make([]string, 0, 1)
	extensions := make([]string, 0, len(surfaceExtensions)+1)

	validation := false
	if config.Validation && contains(supportedLayers, ValidationLayerName) {
		layers = append(layers, ValidationLayerName)
		if contains(supportedExtensions, DebugReportExtensionName) {
			extensions = append(extensions, DebugReportExtensionName)
			validation = true
		}
	}

	for _, ext := range surfaceExtensions {
		if !contains(supportedExtensions, ext) {
			return InstanceKey{}, fmt.Errorf("surface extension %q is not supported by the driver", ext)
		}
		extensions = append(extensions, ext)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         version.VKVersion(),
		ApplicationVersion: config.AppVersion.VKVersion(),
		PApplicationName:   safeString(config.AppName),
		EngineVersion:      EngineVersion.VKVersion(),
		PEngineName:        safeString(EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	var handle vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &handle)); err != nil {
		return InstanceKey{}, fmt.Errorf("creating instance: %w", err)
	}
	vk.InitInstance(handle)

	var debugCallback vk.DebugReportCallback
	if validation {
		debugCallback, err = createDebugCallback(handle, logger)
		if err != nil {
			vk.DestroyInstance(handle, nil)
			return InstanceKey{}, fmt.Errorf("attaching debug callback: %w", err)
		}
		logger.Info("validation layer enabled", zap.String("layer", ValidationLayerName))
	}

	key := reg.Instances.Insert(func(key InstanceKey) Instance {
		return Instance{
			Key:               key,
			VKInstance:        handle,
			APIVersion:        version,
			EnabledLayers:     layers,
			EnabledExtensions: extensions,
			debugCallback:     debugCallback,
		}
	})

	logger.Info("instance created",
		zap.String("app", config.AppName),
		zap.Int("api_major", version.Major),
		zap.Int("api_minor", version.Minor))
	return key, nil
}

// DestroyInstance destroys the native instance and removes the entry.
func DestroyInstance(reg *Registries, key InstanceKey) error {
	instance, ok := reg.Instances.Remove(key)
	if !ok {
		return notFound("instance")
	}
	if instance.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(instance.VKInstance, instance.debugCallback, nil)
	}
	vk.DestroyInstance(instance.VKInstance, nil)
	return nil
}

func createDebugCallback(instance vk.Instance, logger *zap.Logger) (vk.DebugReportCallback, error) {
	var callback vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
		PfnCallback: debugReport(logger),
	}, nil, &callback)
	if err := vk.Error(res); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return callback, nil
}

func debugReport(logger *zap.Logger) vk.DebugReportCallbackFunc {
	return func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
		object uint64, location uint, messageCode int32, layerPrefix string,
		message string, userData unsafe.Pointer) vk.Bool32 {

		fields := []zap.Field{
			zap.String("layer", layerPrefix),
			zap.Int32("code", messageCode),
		}
		switch {
		case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
			logger.Error(message, fields...)
		case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
			flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
			logger.Warn(message, fields...)
		default:
			logger.Info(message, fields...)
		}
		return vk.Bool32(vk.False)
	}
}
