package titan

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueKey identifies a Queue entry.
type QueueKey = Key[Queue]

// Queue wraps a device queue. Parent: Device. Queues are owned by the device
// and have no native destroy call.
type Queue struct {
	Key     QueueKey
	VKQueue vk.Queue

	Device      DeviceKey
	FamilyIndex uint32
}

// CreateQueue fetches queue 0 of the given family from the device and
// inserts it into the registry.
func CreateQueue(reg *Registries, deviceKey DeviceKey, family uint32) (QueueKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return QueueKey{}, notFound("device")
	}

	var handle vk.Queue
	vk.GetDeviceQueue(device.VKDevice, family, 0, &handle)

	key := reg.Queues.Insert(func(key QueueKey) Queue {
		return Queue{
			Key:         key,
			VKQueue:     handle,
			Device:      deviceKey,
			FamilyIndex: family,
		}
	})
	return key, nil
}

// RemoveQueue drops the entry from the registry.
func RemoveQueue(reg *Registries, key QueueKey) error {
	if _, ok := reg.Queues.Remove(key); !ok {
		return notFound("queue")
	}
	return nil
}

// WaitIdle blocks until all submitted work on the queue has completed.
func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}
