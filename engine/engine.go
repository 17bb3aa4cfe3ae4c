package engine

import (
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/assets"
	"github.com/spaghettifunk/velo/engine/config"
	"github.com/spaghettifunk/velo/engine/core"
	"github.com/spaghettifunk/velo/engine/platform"
	"github.com/spaghettifunk/velo/engine/renderer"
	"github.com/spaghettifunk/velo/engine/renderer/components"
	"github.com/spaghettifunk/velo/engine/renderer/metadata"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageStopped
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageStopped:
		return "stopped"
	}
	return "unknown"
}

/**
 * @brief Owns the window, the assets, the renderer and the camera, and drives
 * the frame loop. All of it runs on the main OS thread.
 */
type Engine struct {
	cfg          *config.Config
	currentStage Stage
	quit         atomic.Bool

	platform     *platform.Platform
	input        *core.InputState
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	camera       *components.Camera

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
}

func New(cfg *config.Config) (*Engine, error) {
	input := core.NewInputState()

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	r, err := renderer.New(cfg, renderer.Vulkan)
	if err != nil {
		am.Shutdown()
		return nil, err
	}

	return &Engine{
		cfg:          cfg,
		currentStage: EngineStageUninitialized,
		platform:     platform.New(input),
		input:        input,
		assetManager: am,
		renderer:     r,
		camera:       components.NewCamera(cfg.Camera),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

// Run initializes everything, loops until quit, and releases everything in
// the fixed order. It returns nil on a clean quit.
func (e *Engine) Run() error {
	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err)
		e.Shutdown()
		return err
	}
	err := e.loop()
	e.Shutdown()
	return err
}

// RequestQuit stops the loop after the current frame. Safe from any goroutine.
func (e *Engine) RequestQuit() {
	e.quit.Store(true)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return core.Protocolf("initialize in stage %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := e.platform.Startup(e.cfg.Window); err != nil {
		return err
	}

	dir := e.cfg.Assets.Dir
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return core.Fatal(err, "assets dir")
		}
		dir = abs
	}
	if err := e.assetManager.Initialize(dir); err != nil {
		return core.Fatal(err, "asset manager")
	}
	scene, err := e.assetManager.LoadScene(e.cfg)
	if err != nil {
		return core.Fatal(err, "loading scene")
	}

	if err := e.renderer.Initialize(e.platform, scene, e.platform.Resizes, e.uniforms); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) uniforms(extent vk.Extent2D) metadata.UniformBufferObject {
	return e.camera.Uniforms(extent.Width, extent.Height)
}

func (e *Engine) loop() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for !e.quit.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			core.LogInfo("window closed, shutting down.")
			break
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if HandleInput(e.input, e.camera, float32(delta)) {
			core.LogInfo("escape pressed, shutting down.")
			e.platform.RequestClose()
			break
		}
		// Input state copying happens after every consumer has read this frame's keys.
		e.input.Update()
		e.camera.Advance(float32(delta))

		if err := e.renderer.DrawFrame(); err != nil {
			if errors.Is(err, core.ErrWindowClosed) {
				core.LogInfo("window closed while minimized, shutting down.")
				break
			}
			return err
		}

		if e.metrics.Update(delta) {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.2f ms/frame", fps, ms)
		}
	}
	return nil
}

// Shutdown releases the renderer, the asset watcher and the window, in that
// order. It is safe to call after a partial Initialize and more than once.
func (e *Engine) Shutdown() {
	if e.currentStage == EngineStageStopped {
		return
	}
	e.currentStage = EngineStageShuttingDown

	if err := e.renderer.WaitIdle(); err != nil {
		core.LogError("wait idle: %s", err)
	}
	e.renderer.Shutdown()
	e.assetManager.Shutdown()
	e.platform.Shutdown()

	e.currentStage = EngineStageStopped
	core.LogInfo("engine stopped.")
}
