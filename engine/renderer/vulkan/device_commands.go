package vulkan

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*velo_pfn)(void);

static void* velo_instance_proc(void* gipa, void* instance, const char* name) {
	return (void*)((velo_pfn (*)(void*, const char*))gipa)(instance, name);
}

static void* velo_device_proc(void* gdpa, void* device, const char* name) {
	return (void*)((velo_pfn (*)(void*, const char*))gdpa)(device, name);
}

static int32_t velo_wait_semaphores(void* fn, void* device, const void* info, uint64_t timeout) {
	return ((int32_t (*)(void*, const void*, uint64_t))fn)(device, info, timeout);
}

static int32_t velo_signal_semaphore(void* fn, void* device, const void* info) {
	return ((int32_t (*)(void*, const void*))fn)(device, info);
}

static int32_t velo_get_semaphore_counter_value(void* fn, void* device, void* semaphore, uint64_t* value) {
	return ((int32_t (*)(void*, void*, uint64_t*))fn)(device, semaphore, value);
}

static int32_t velo_queue_submit2(void* fn, void* queue, uint32_t count, const void* submits, void* fence) {
	return ((int32_t (*)(void*, uint32_t, const void*, void*))fn)(queue, count, submits, fence);
}

static void velo_cmd_pipeline_barrier2(void* fn, void* cmd, const void* info) {
	((void (*)(void*, const void*))fn)(cmd, info);
}

static void velo_cmd_begin_rendering(void* fn, void* cmd, const void* info) {
	((void (*)(void*, const void*))fn)(cmd, info);
}

static void velo_cmd_end_rendering(void* fn, void* cmd) {
	((void (*)(void*))fn)(cmd);
}
*/
import "C"

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

/**
 * @brief Vulkan 1.3 core commands that the goki binding declares types for
 * but does not wrap. They are resolved once per logical device through
 * vkGetDeviceProcAddr. Handles are passed as pointers, so only 64-bit
 * targets are supported.
 */
type DeviceCommands struct {
	waitSemaphores           unsafe.Pointer
	signalSemaphore          unsafe.Pointer
	getSemaphoreCounterValue unsafe.Pointer
	queueSubmit2             unsafe.Pointer
	cmdPipelineBarrier2      unsafe.Pointer
	cmdBeginRendering        unsafe.Pointer
	cmdEndRendering          unsafe.Pointer
}

func (dc *DeviceCommands) entries() []struct {
	name string
	dst  *unsafe.Pointer
} {
	return []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{"vkWaitSemaphores", &dc.waitSemaphores},
		{"vkSignalSemaphore", &dc.signalSemaphore},
		{"vkGetSemaphoreCounterValue", &dc.getSemaphoreCounterValue},
		{"vkQueueSubmit2", &dc.queueSubmit2},
		{"vkCmdPipelineBarrier2", &dc.cmdPipelineBarrier2},
		{"vkCmdBeginRendering", &dc.cmdBeginRendering},
		{"vkCmdEndRendering", &dc.cmdEndRendering},
	}
}

// resolve fills every entry point from lookup. A device without one of
// them did not come up at API 1.3.
func (dc *DeviceCommands) resolve(lookup func(name string) unsafe.Pointer) error {
	for _, e := range dc.entries() {
		fn := lookup(e.name)
		if fn == nil {
			return core.Fatalf("device does not expose %s", e.name)
		}
		*e.dst = fn
	}
	return nil
}

// LoadDeviceCommands resolves the 1.3 entry points for device.
// getInstanceProcAddr is the loader's vkGetInstanceProcAddr.
func LoadDeviceCommands(getInstanceProcAddr unsafe.Pointer, instance vk.Instance, device vk.Device) (*DeviceCommands, error) {
	if getInstanceProcAddr == nil {
		return nil, core.Fatalf("vkGetInstanceProcAddr is not set")
	}
	name := C.CString("vkGetDeviceProcAddr")
	getDeviceProcAddr := C.velo_instance_proc(getInstanceProcAddr, unsafe.Pointer(instance), name)
	C.free(unsafe.Pointer(name))
	if getDeviceProcAddr == nil {
		return nil, core.Fatalf("instance does not expose vkGetDeviceProcAddr")
	}

	dc := &DeviceCommands{}
	err := dc.resolve(func(entry string) unsafe.Pointer {
		cname := C.CString(entry)
		defer C.free(unsafe.Pointer(cname))
		return C.velo_device_proc(getDeviceProcAddr, unsafe.Pointer(device), cname)
	})
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func (dc *DeviceCommands) WaitSemaphores(device vk.Device, info *vk.SemaphoreWaitInfo, timeout uint64) vk.Result {
	ref, _ := info.PassRef()
	defer info.Free()
	return vk.Result(C.velo_wait_semaphores(dc.waitSemaphores, unsafe.Pointer(device), unsafe.Pointer(ref), C.uint64_t(timeout)))
}

func (dc *DeviceCommands) SignalSemaphore(device vk.Device, info *vk.SemaphoreSignalInfo) vk.Result {
	ref, _ := info.PassRef()
	defer info.Free()
	return vk.Result(C.velo_signal_semaphore(dc.signalSemaphore, unsafe.Pointer(device), unsafe.Pointer(ref)))
}

func (dc *DeviceCommands) GetSemaphoreCounterValue(device vk.Device, semaphore vk.Semaphore, value *uint64) vk.Result {
	var out C.uint64_t
	ret := C.velo_get_semaphore_counter_value(dc.getSemaphoreCounterValue, unsafe.Pointer(device), unsafe.Pointer(semaphore), &out)
	*value = uint64(out)
	return vk.Result(ret)
}

// QueueSubmit2 submits a single batch with no fence.
func (dc *DeviceCommands) QueueSubmit2(queue vk.Queue, submit *vk.SubmitInfo2) vk.Result {
	ref, _ := submit.PassRef()
	defer submit.Free()
	return vk.Result(C.velo_queue_submit2(dc.queueSubmit2, unsafe.Pointer(queue), 1, unsafe.Pointer(ref), nil))
}

func (dc *DeviceCommands) CmdPipelineBarrier2(cmd vk.CommandBuffer, info *vk.DependencyInfo) {
	ref, _ := info.PassRef()
	defer info.Free()
	C.velo_cmd_pipeline_barrier2(dc.cmdPipelineBarrier2, unsafe.Pointer(cmd), unsafe.Pointer(ref))
}

func (dc *DeviceCommands) CmdBeginRendering(cmd vk.CommandBuffer, info *vk.RenderingInfo) {
	ref, _ := info.PassRef()
	defer info.Free()
	C.velo_cmd_begin_rendering(dc.cmdBeginRendering, unsafe.Pointer(cmd), unsafe.Pointer(ref))
}

func (dc *DeviceCommands) CmdEndRendering(cmd vk.CommandBuffer) {
	C.velo_cmd_end_rendering(dc.cmdEndRendering, unsafe.Pointer(cmd))
}
