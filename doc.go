// Package titan is the resource-lifecycle and frame-synchronization core of
// a Vulkan renderer. It keeps every graphics object in a typed,
// generation-checked registry so resources reference their parents by stable
// keys instead of pointers, and it drives a bounded ring of in-flight frames
// through the acquire/submit/present protocol.
//
// The windowing layer, logging setup and configuration parsing live outside
// this package; see examples/triangle for how they plug in.
package titan
