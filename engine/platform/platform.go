package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type ClientAPI uint8

const (
	ClientAPINone ClientAPI = iota
	ClientAPIOpenGL
)

type WindowConfig struct {
	Name          string
	X, Y          uint32
	Width, Height uint32
	API           ClientAPI
	VSync         bool
	Debug         bool
}

// Platform owns the native window and forwards its input to an
// InputController.
type Platform struct {
	Window *glfw.Window
	input  *core.InputController

	width  uint32
	height uint32
}

func New(input *core.InputController) *Platform {
	return &Platform{
		input: input,
	}
}

func (p *Platform) Startup(cfg WindowConfig) error {
	if err := glfw.Init(); err != nil {
		err = fmt.Errorf("failed to initialize glfw: %w", err)
		core.LogError("%s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	switch cfg.API {
	case ClientAPIOpenGL:
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		if cfg.Debug {
			glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
		}
	default:
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	}

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Name, nil, nil)
	if err != nil {
		glfw.Terminate()
		err = fmt.Errorf("failed to create window: %w", err)
		core.LogError("%s", err)
		return err
	}
	p.Window = window

	if cfg.API == ClientAPIOpenGL {
		window.MakeContextCurrent()
		if cfg.VSync {
			glfw.SwapInterval(1)
		} else {
			glfw.SwapInterval(0)
		}
	}

	window.SetKeyCallback(p.keyCallback)
	window.SetMouseButtonCallback(p.mouseButtonCallback)
	window.SetCursorPosCallback(p.cursorPosCallback)
	window.SetScrollCallback(p.scrollCallback)
	window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	window.SetCloseCallback(p.closeCallback)
	window.SetPos(int(cfg.X), int(cfg.Y))

	fbw, fbh := window.GetFramebufferSize()
	p.width, p.height = uint32(fbw), uint32(fbh)

	window.Show()
	core.LogInfo("window `%s` created (%dx%d)", cfg.Name, p.width, p.height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. Returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return p.Window != nil && !p.Window.ShouldClose()
}

func (p *Platform) SwapBuffers() {
	if p.Window != nil {
		p.Window.SwapBuffers()
	}
}

// GetTime returns seconds since glfw was initialized.
func (p *Platform) GetTime() float64 {
	return glfw.GetTime()
}

func (p *Platform) Width() uint32 {
	return p.width
}

func (p *Platform) Height() uint32 {
	return p.height
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok || p.input == nil {
		return
	}
	if err := p.input.ProcessKey(code, action != glfw.Release, action == glfw.Repeat); err != nil {
		core.LogWarn("failed to process key %d: %s", key, err)
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if p.input == nil {
		return
	}
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	_ = p.input.ProcessButton(b, action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if p.input == nil || xpos < 0 || ypos < 0 {
		return
	}
	_ = p.input.ProcessMouseMove(uint16(xpos), uint16(ypos))
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	if p.input == nil {
		return
	}
	var z int8
	if yoff > 0 {
		z = 1
	} else if yoff < 0 {
		z = -1
	}
	_ = p.input.ProcessMouseWheel(z)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.width, p.height = uint32(width), uint32(height)
	core.EventFire(core.EventContext{
		Type:   core.EVENT_CODE_RESIZED,
		Sender: p,
		Data:   &core.ResizeEvent{Width: p.width, Height: p.height},
	})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	core.EventFire(core.EventContext{
		Type:   core.EVENT_CODE_APPLICATION_QUIT,
		Sender: p,
	})
}
