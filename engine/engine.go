package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"

	// registers the headless driver
	_ "github.com/spaghettifunk/prism/engine/renderer/headless"
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
)

type registeredEvent struct {
	code core.EventCode
	id   int
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	isRunning    bool
	isSuspended  bool
	// set from other goroutines, checked once per frame
	quit         atomic.Bool
	platform     *platform.Platform
	input        *core.InputController
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
	events       []registeredEvent
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil || g.ApplicationConfig.Config == nil {
		g.ApplicationConfig = &ApplicationConfig{Config: config.Default()}
	}
	cfg := g.ApplicationConfig.Config
	if err := cfg.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	input := core.NewInputController()
	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		clock:        core.NewClock(),
		platform:     platform.New(input),
		input:        input,
		assetManager: am,
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
	}, nil
}

// clientAPI picks the window context the driver draws with.
func clientAPI(driverName string) platform.ClientAPI {
	if driverName == opengl.DriverName {
		return platform.ClientAPIOpenGL
	}
	return platform.ClientAPINone
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.config

	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	e.register(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.register(core.EVENT_CODE_RESIZED, e.onResized)
	e.input.BindAction(core.KEY_ESCAPE, func(key core.KeyCode, pressed, repeat bool) {
		if pressed && !repeat {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT, Sender: e})
		}
	})

	if err := e.platform.Startup(platform.WindowConfig{
		Name:   cfg.Application.Name,
		X:      cfg.Application.StartPosX,
		Y:      cfg.Application.StartPosY,
		Width:  cfg.Application.StartWidth,
		Height: cfg.Application.StartHeight,
		API:    clientAPI(cfg.Renderer.Driver),
		VSync:  cfg.Renderer.VSync,
		Debug:  cfg.Renderer.Debug,
	}); err != nil {
		return err
	}
	e.width, e.height = e.platform.Width(), e.platform.Height()

	// the driver needs the context made current by the platform
	backend, err := renderer.NewBackend(cfg.Renderer.Driver)
	if err != nil {
		return err
	}
	e.renderer = renderer.New(backend, e.platform)

	if err := e.assetManager.Initialize(cfg.Assets.Path, cfg.Assets.HotReload); err != nil {
		return err
	}

	if err := e.gameInstance.FnInitialize(e); err != nil {
		return err
	}

	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) register(code core.EventCode, fn core.FnOnEvent) {
	id := core.EventRegister(code, fn)
	if id >= 0 {
		e.events = append(e.events, registeredEvent{code: code, id: id})
	}
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()

	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() || e.quit.Load() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		// shader and texture edits land between frames
		e.assetManager.Poll()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			e.isRunning = false
			break
		}

		if err := e.renderer.BeginFrame(delta); err != nil {
			return err
		}
		// Call the game's render routine.
		if err := e.gameInstance.FnRender(e.renderer, delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			e.isRunning = false
			break
		}
		if err := e.renderer.EndFrame(); err != nil {
			return err
		}
		e.platform.SwapBuffers()

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		if err := e.input.Update(delta); err != nil {
			core.LogError("%s", err)
		}

		// Update last time
		e.lastTime = currentTime
	}

	fps, frameTime := e.renderer.Metrics().Frame()
	core.LogInfo("last frame rate %.0f fps, %.2f ms average", fps, frameTime)
	return nil
}

// Stop asks the loop to exit after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.quit.Store(true)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("%s", err)
		}
	}
	for _, ev := range e.events {
		core.EventUnregister(ev.code, ev.id)
	}
	e.events = nil

	// materials drop their references before the backend is torn down
	e.assetManager.Shutdown()
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	core.EventSystemShutdown()
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Input() *core.InputController {
	return e.input
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width, height := re.Width, re.Height
	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.renderer.Resize(width, height)
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError("%s", err)
	}
	return false
}
