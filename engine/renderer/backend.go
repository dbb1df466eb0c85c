package renderer

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/backend"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// RendererBackend is what the renderer frontend needs from a backend. It owns
// the native side of every frontend object it has synchronized.
type RendererBackend interface {
	metadata.BackendDataOwner
	BindRenderTarget(rt *metadata.RenderTarget, surface metadata.Surface) error
	Clear(flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32)
	Draw(call *metadata.DrawCall) error
	LiveObjects() int
	Shutdown()
}

var _ RendererBackend = (*backend.Backend)(nil)

// NewBackend opens the named driver and wraps it in a backend.
func NewBackend(driverName string) (RendererBackend, error) {
	dev, err := driver.Open(driverName)
	if err != nil {
		return nil, err
	}
	return backend.New(dev), nil
}
