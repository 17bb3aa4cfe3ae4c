package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// Window is what the backend needs from the platform layer.
type Window interface {
	WindowSurface
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

/**
 * @brief The Vulkan renderer backend. Owns every GPU object and tears them
 * down in a fixed order.
 */
type VulkanRenderer struct {
	context *VulkanContext
	window  Window

	allocator  *DeviceAllocator
	registry   *Registry
	uploader   *Uploader
	swapchain  *VulkanSwapchain
	sync       *SyncManager
	commands   CommandAllocator
	semaphores SemaphoreFactory
	frames     []*FrameContext

	descriptors *VulkanDescriptors
	sampler     vk.Sampler
	pipeline    *VulkanPipeline
	scheduler   *Scheduler
}

func New(cfg *config.Config) *VulkanRenderer {
	return &VulkanRenderer{
		context: &VulkanContext{
			Config:    cfg,
			Allocator: nil,
		},
	}
}

// Initialize brings the backend up to the point where DrawFrame can run.
// On failure everything created so far is released before returning.
func (vr *VulkanRenderer) Initialize(window Window, scene *metadata.SceneData, resizes ResizeSource, uniforms UniformSource) (err error) {
	cfg := vr.context.Config
	vr.window = window
	defer func() {
		if err != nil {
			vr.Shutdown()
		}
	}()

	if err := scene.Validate(cfg.Renderer.MaxTextures); err != nil {
		return err
	}

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return core.Fatalf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	vr.context.GetInstanceProcAddr = procAddr
	if err := vk.Init(); err != nil {
		return core.Fatal(err, "failed to initialize vk")
	}

	if err := vr.createInstance(cfg); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(vr.context.Instance)
	if err != nil {
		return core.Fatal(err, "platform surface")
	}
	vr.context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}
	device := vr.context.Device

	vr.allocator = NewDeviceAllocator(vr.context)
	vr.registry = NewRegistry(vr.allocator)
	vr.uploader = NewUploader(vr.allocator, NewImmediateExecutor(vr.context, device.GraphicsCommandPool, device.GraphicsQueue))

	vr.swapchain = NewVulkanSwapchain(vr.context, window, vr.allocator)
	if err := vr.swapchain.Create(); err != nil {
		return err
	}

	framesInFlight := vr.context.FramesInFlight()
	if vr.sync, err = NewDeviceSyncManager(vr.context, vr.swapchain.ImageCount()); err != nil {
		return err
	}
	vr.commands = NewPoolCommandAllocator(vr.context, device.GraphicsCommandPool)
	vr.semaphores = deviceSemaphores{context: vr.context}
	if vr.frames, err = NewFrameContexts(framesInFlight, vr.commands, vr.semaphores, vr.registry); err != nil {
		return err
	}

	draw, err := vr.uploadScene(scene)
	if err != nil {
		return err
	}

	if vr.descriptors, err = NewVulkanDescriptors(vr.context, framesInFlight, cfg.Renderer.MaxTextures); err != nil {
		return err
	}
	if vr.sampler, err = NewTextureSampler(vr.context); err != nil {
		return err
	}
	uniformBuffers := make([]*Buffer, len(vr.frames))
	for i, frame := range vr.frames {
		uniformBuffers[i] = frame.Uniform
	}
	if err := vr.descriptors.Write(vr.context, uniformBuffers, draw.textures, vr.sampler, draw.materials); err != nil {
		return err
	}

	if vr.pipeline, err = vr.createPipeline(scene); err != nil {
		return err
	}

	recorder := NewRecorder(DrawState{
		Pipeline:      vr.pipeline.Handle,
		Layout:        vr.pipeline.PipelineLayout,
		DescriptorSet: vr.descriptors.Set,
		Vertices:      draw.vertices,
		Indices:       draw.indices,
		IndexCount:    uint32(len(scene.Mesh.Indices)),
	})
	vr.scheduler, err = NewScheduler(SchedulerParams{
		FramesInFlight: framesInFlight,
		Frames:         vr.frames,
		Sync:           vr.sync,
		Swapchain:      vr.swapchain,
		Queue:          NewGraphicsQueue(device.GraphicsQueue, device.Commands),
		PresentQueue:   device.PresentQueue,
		Recorder:       recorder,
		Resizes:        resizes,
		Uniforms:       uniforms,
	})
	if err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully (%d frames in flight, %d swapchain images).", framesInFlight, vr.swapchain.ImageCount())
	return nil
}

func (vr *VulkanRenderer) createInstance(cfg *config.Config) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         VULKAN_API_VERSION,
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.Window.Title),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PEngineName:        VulkanSafeString("Velo"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	extensions := appendUnique([]string{vk.KhrSurfaceExtensionName}, vr.window.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = appendUnique(extensions, "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	validation := cfg.Renderer.Validation
	if validation {
		found, err := instanceHasLayer(validationLayerName)
		if err != nil {
			return err
		}
		if !found {
			core.LogWarn("Validation requested but %s is not installed, continuing without it.", validationLayerName)
			validation = false
		}
	}

	var layers []string
	if validation {
		layers = []string{validationLayerName}
		extensions = appendUnique(extensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Validation layers enabled.")
	}
	core.LogDebug("Required extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := vkCheck(vk.CreateInstance(&createInfo, vr.context.Allocator, &instance), "vkCreateInstance"); err != nil {
		return core.Fatal(err, "Vulkan instance")
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return core.Fatal(err, "loading instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	if !validation {
		return nil
	}

	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vkCheck(vk.CreateDebugReportCallback(instance, &debugCreateInfo, vr.context.Allocator, &dbg), "vkCreateDebugReportCallback"); err != nil {
		return err
	}
	vr.context.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func instanceHasLayer(name string) (bool, error) {
	var count uint32
	if err := vkCheck(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	available := make([]vk.LayerProperties, count)
	if err := vkCheck(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].LayerName[:])
		if vk.ToString(available[i].LayerName[:end+1]) == name {
			return true, nil
		}
	}
	return false, nil
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

type sceneResources struct {
	vertices  *Buffer
	indices   *Buffer
	materials *Buffer
	textures  []*Image
}

// uploadScene copies the static scene to device-local memory. Every resource
// is handed to the registry as soon as it exists.
func (vr *VulkanRenderer) uploadScene(scene *metadata.SceneData) (*sceneResources, error) {
	out := &sceneResources{}
	var err error

	upload := func(kind ResourceKind, name string, data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
		buffer, err := vr.uploader.UploadBuffer(data, vk.BufferUsageFlags(usage))
		if err != nil {
			return nil, err
		}
		if _, err := vr.registry.Track(kind, name, buffer); err != nil {
			buffer.Destroy()
			return nil, err
		}
		return buffer, nil
	}

	if out.vertices, err = upload(KindGeometry, "vertices", scene.Mesh.VertexBytes(), vk.BufferUsageVertexBufferBit); err != nil {
		return nil, err
	}
	if out.indices, err = upload(KindGeometry, "indices", scene.Mesh.IndexBytes(), vk.BufferUsageIndexBufferBit); err != nil {
		return nil, err
	}
	if out.materials, err = upload(KindMaterialIndex, "material-indices", scene.Mesh.MaterialIndexBytes(), vk.BufferUsageStorageBufferBit); err != nil {
		return nil, err
	}

	for i, texture := range scene.Textures {
		image, err := vr.uploader.UploadImage(texture.Pixels, texture.Width, texture.Height, vk.FormatR8g8b8a8Srgb)
		if err != nil {
			return nil, err
		}
		if _, err := vr.registry.Track(KindTexture, fmt.Sprintf("texture-%d", i), image); err != nil {
			image.Destroy()
			return nil, err
		}
		out.textures = append(out.textures, image)
	}
	core.LogInfo("Scene uploaded: %d vertices, %d indices, %d textures.", len(scene.Mesh.Vertices), len(scene.Mesh.Indices), len(scene.Textures))
	return out, nil
}

func (vr *VulkanRenderer) createPipeline(scene *metadata.SceneData) (*VulkanPipeline, error) {
	vertex, err := NewShaderStage(vr.context, "vertex", scene.VertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	defer vertex.Destroy(vr.context)
	fragment, err := NewShaderStage(vr.context, "fragment", scene.FragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	defer fragment.Destroy(vr.context)

	// Shader modules may be destroyed once the pipeline exists.
	return NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		ColorFormat:          vr.swapchain.ImageFormat.Format,
		DepthFormat:          vr.swapchain.DepthFormat,
		Stride:               metadata.VertexStride,
		Attributes:           VertexAttributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptors.Layout},
		Stages:               []vk.PipelineShaderStageCreateInfo{vertex.ShaderStageCreateInfo, fragment.ShaderStageCreateInfo},
		PushConstantSize:     metadata.PushConstantsSize,
	})
}

// DrawFrame runs one iteration of the frame scheduler.
func (vr *VulkanRenderer) DrawFrame() (FrameReport, error) {
	if vr.scheduler == nil {
		return FrameReport{}, core.Protocolf("draw before initialization")
	}
	return vr.scheduler.DrawFrame()
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	return vkCheck(vk.DeviceWaitIdle(vr.context.Device.LogicalDevice), "vkDeviceWaitIdle")
}

// Shutdown releases everything in reverse dependency order. It tolerates a
// partially initialized backend and may be called more than once.
func (vr *VulkanRenderer) Shutdown() {
	if err := vr.WaitIdle(); err != nil {
		core.LogError("waiting for the device before shutdown: %s", err)
	}
	vr.scheduler = nil

	if vr.sync != nil {
		vr.sync.Destroy()
		vr.sync = nil
	}
	if vr.frames != nil {
		DestroyFrameContexts(vr.frames, vr.commands, vr.semaphores)
		vr.frames = nil
	}
	if vr.swapchain != nil {
		vr.swapchain.Destroy()
		vr.swapchain = nil
	}
	if vr.pipeline != nil {
		vr.pipeline.Destroy(vr.context)
		vr.pipeline = nil
	}
	if vr.descriptors != nil {
		vr.descriptors.Destroy(vr.context)
		vr.descriptors = nil
	}
	if vr.sampler != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.sampler, vr.context.Allocator)
		vr.sampler = vk.NullSampler
	}
	if vr.registry != nil {
		vr.registry.Destroy()
		vr.registry = nil
		vr.allocator = nil
	} else if vr.allocator != nil {
		vr.allocator.Destroy()
		vr.allocator = nil
	}

	if vr.context.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vr.context)
		vr.context.Device = nil
	}

	if vr.context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugCallback, vr.context.Allocator)
		vr.context.debugCallback = vk.NullDebugReportCallback
	}

	if vr.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
