package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const maxCameras = 64

type resizableSurface interface {
	Resize(width, height uint32)
}

// Renderer keeps the per frame state (bound arrays, active camera, time)
// and turns draw requests into draw calls for the backend.
type Renderer struct {
	backend RendererBackend
	surface metadata.Surface
	metrics *core.Metrics

	vertexArrays [metadata.MaxVertexArrays]*metadata.RendererArray
	indexArray   *metadata.RendererArray

	cameras *components.CameraRegistry
	camera  *components.Camera
	view    metadata.ViewState

	time         float32
	frameStarted bool

	logListener int
}

func New(backend RendererBackend, surface metadata.Surface) *Renderer {
	cameras, _ := components.NewCameraRegistry(maxCameras)
	r := &Renderer{
		backend: backend,
		surface: surface,
		metrics: core.NewMetrics(),
		cameras: cameras,
		view:    metadata.NewViewState(),
	}
	r.logListener = core.AddLogListener(func(severity core.Severity, _ string) {
		r.metrics.RecordLog(severity)
	})
	return r
}

// Cameras hands out named cameras that live until the renderer shuts down.
func (r *Renderer) Cameras() *components.CameraRegistry {
	return r.cameras
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Surface() metadata.Surface {
	return r.surface
}

func (r *Renderer) Metrics() *core.Metrics {
	return r.metrics
}

// Time is the accumulated frame time in seconds, fed to the _Time uniform.
func (r *Renderer) Time() float32 {
	return r.time
}

// BindVertexArray sets the array read by layout attributes with ArrayIndex
// slot. A nil array unbinds the slot.
func (r *Renderer) BindVertexArray(slot uint32, arr *metadata.RendererArray) error {
	if slot >= metadata.MaxVertexArrays {
		err := fmt.Errorf("vertex array slot %d, max %d: %w", slot, metadata.MaxVertexArrays, core.ErrOutOfBounds)
		core.LogError("%s", err)
		return err
	}
	if arr != nil && arr.Type() == metadata.ArrayTypeIndex {
		err := fmt.Errorf("array `%s` is an index array: %w", arr.Name(), core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	r.vertexArrays[slot] = arr
	return nil
}

func (r *Renderer) BindIndexArray(arr *metadata.RendererArray) error {
	if arr != nil && arr.Type() != metadata.ArrayTypeIndex {
		err := fmt.Errorf("array `%s` is a %s array: %w", arr.Name(), arr.Type(), core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	r.indexArray = arr
	return nil
}

func (r *Renderer) BeginFrame(deltaTime float64) error {
	if r.frameStarted {
		err := fmt.Errorf("frame already started: %w", core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	r.frameStarted = true
	r.time += float32(deltaTime)
	r.metrics.Update(deltaTime)
	return nil
}

func (r *Renderer) EndFrame() error {
	if !r.frameStarted {
		err := fmt.Errorf("frame not started: %w", core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	r.frameStarted = false
	r.camera = nil
	r.view = metadata.NewViewState()
	return nil
}

// BeginCamera binds the camera's render target, clears it according to the
// camera's clear flags and makes its view the one used by later draws.
func (r *Renderer) BeginCamera(camera *components.Camera) error {
	if camera == nil {
		err := fmt.Errorf("camera is nil: %w", core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	if err := r.backend.BindRenderTarget(camera.RenderTarget(), r.surface); err != nil {
		return err
	}
	r.backend.Clear(camera.ClearFlags, camera.ClearColor, camera.ClearDepth, camera.ClearStencil)
	r.camera = camera
	r.view = camera.ViewState(r.surface)
	return nil
}

func (r *Renderer) Camera() *components.Camera {
	return r.camera
}

// Clear binds target and clears it without changing the active camera.
func (r *Renderer) Clear(target *metadata.RenderTarget, flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32) error {
	if err := r.backend.BindRenderTarget(target, r.surface); err != nil {
		return err
	}
	r.backend.Clear(flags, color, depth, stencil)
	return nil
}

func (r *Renderer) newDrawCall(pipeline *metadata.PipelineState, material *metadata.Material, first, count, instances uint32, model math.Mat4) *metadata.DrawCall {
	return &metadata.DrawCall{
		Pipeline:     pipeline,
		Material:     material,
		VertexArrays: r.vertexArrays,
		First:        first,
		Count:        count,
		Instances:    instances,
		Model:        model,
		View:         r.view,
		Time:         r.time,
	}
}

func (r *Renderer) submit(call *metadata.DrawCall) error {
	err := r.backend.Draw(call)
	r.metrics.RecordDraw(err == nil)
	return err
}

// Draw submits count vertices starting at first from the bound vertex arrays.
func (r *Renderer) Draw(pipeline *metadata.PipelineState, material *metadata.Material, first, count, instances uint32, model math.Mat4) error {
	return r.submit(r.newDrawCall(pipeline, material, first, count, instances, model))
}

// DrawIndexed submits count indices starting at first from the bound index
// array.
func (r *Renderer) DrawIndexed(pipeline *metadata.PipelineState, material *metadata.Material, first, count, instances uint32, model math.Mat4) error {
	call := r.newDrawCall(pipeline, material, first, count, instances, model)
	call.Indexed = true
	call.IndexArray = r.indexArray
	return r.submit(call)
}

// Resize updates the surface size when the surface can be resized from here,
// platform windows track their own size.
func (r *Renderer) Resize(width, height uint32) {
	if s, ok := r.surface.(resizableSurface); ok {
		s.Resize(width, height)
	}
	if r.camera != nil {
		r.view = r.camera.ViewState(r.surface)
	}
	core.LogDebug("renderer resized to %dx%d", width, height)
}

// Shutdown drops the bound arrays and destroys every backend object.
func (r *Renderer) Shutdown() {
	for i := range r.vertexArrays {
		r.vertexArrays[i] = nil
	}
	r.indexArray = nil
	r.camera = nil
	r.cameras.Shutdown()
	r.backend.Shutdown()
	core.RemoveLogListener(r.logListener)
}
