package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief A set of textures a camera renders into. Without attachments it
 * stands for the default surface.
 */
type RenderTarget struct {
	FrontendData

	name         string
	color        *Texture
	depthStencil *Texture
}

// NewRenderTarget attaches color and depthStencil, either may be nil. Both
// set with different sizes is rejected.
func NewRenderTarget(name string, color, depthStencil *Texture) (*RenderTarget, error) {
	if err := checkAttachments(color, depthStencil); err != nil {
		err = fmt.Errorf("failed to create render target `%s`: %w", name, err)
		core.LogError("%s", err)
		return nil, err
	}
	if name == "" {
		name = "target-" + uuid.NewString()
	}
	rt := &RenderTarget{FrontendData: newFrontendData(), name: name}
	rt.attach(color, depthStencil)
	return rt, nil
}

func checkAttachments(color, depthStencil *Texture) error {
	if color != nil && color.Format().IsDepth() {
		return fmt.Errorf("color attachment `%s` has depth format %s: %w", color.Name(), color.Format(), core.ErrInvalidArgument)
	}
	if depthStencil != nil && !depthStencil.Format().IsDepth() {
		return fmt.Errorf("depth attachment `%s` has color format %s: %w", depthStencil.Name(), depthStencil.Format(), core.ErrInvalidArgument)
	}
	if color != nil && depthStencil != nil &&
		(color.Width() != depthStencil.Width() || color.Height() != depthStencil.Height()) {
		return fmt.Errorf("color `%s` is %dx%d but depth `%s` is %dx%d: %w",
			color.Name(), color.Width(), color.Height(),
			depthStencil.Name(), depthStencil.Width(), depthStencil.Height(), core.ErrSizeMismatch)
	}
	return nil
}

func (rt *RenderTarget) attach(color, depthStencil *Texture) {
	if color != nil {
		color.Acquire()
	}
	if depthStencil != nil {
		depthStencil.Acquire()
	}
	if rt.color != nil {
		rt.color.Release()
	}
	if rt.depthStencil != nil {
		rt.depthStencil.Release()
	}
	rt.color, rt.depthStencil = color, depthStencil
	rt.MarkDirty()
}

func (rt *RenderTarget) Name() string {
	return rt.name
}

func (rt *RenderTarget) Color() *Texture {
	return rt.color
}

func (rt *RenderTarget) DepthStencil() *Texture {
	return rt.depthStencil
}

// SetAttachments replaces both attachments at once.
func (rt *RenderTarget) SetAttachments(color, depthStencil *Texture) error {
	if err := checkAttachments(color, depthStencil); err != nil {
		err = fmt.Errorf("render target `%s`: %w", rt.name, err)
		core.LogError("%s", err)
		return err
	}
	rt.attach(color, depthStencil)
	return nil
}

func (rt *RenderTarget) SetColor(color *Texture) error {
	return rt.SetAttachments(color, rt.depthStencil)
}

func (rt *RenderTarget) SetDepthStencil(depthStencil *Texture) error {
	return rt.SetAttachments(rt.color, depthStencil)
}

// IsDefault reports a target without attachments.
func (rt *RenderTarget) IsDefault() bool {
	return rt.color == nil && rt.depthStencil == nil
}

// Size returns the attachment size; ok is false for the default surface.
func (rt *RenderTarget) Size() (width, height uint32, ok bool) {
	switch {
	case rt.color != nil:
		return rt.color.Width(), rt.color.Height(), true
	case rt.depthStencil != nil:
		return rt.depthStencil.Width(), rt.depthStencil.Height(), true
	}
	return 0, 0, false
}

// SizeMatches re-checks the attachments, which may have been resized since
// they were attached.
func (rt *RenderTarget) SizeMatches() error {
	return checkAttachments(rt.color, rt.depthStencil)
}

// AttachmentsDirty reports a pending change on either attached texture.
func (rt *RenderTarget) AttachmentsDirty() bool {
	return (rt.color != nil && rt.color.DirtyState()) ||
		(rt.depthStencil != nil && rt.depthStencil.DirtyState())
}

func (rt *RenderTarget) Release() {
	if !rt.release() {
		return
	}
	if rt.color != nil {
		rt.color.Release()
		rt.color = nil
	}
	if rt.depthStencil != nil {
		rt.depthStencil.Release()
		rt.depthStencil = nil
	}
}

// ClearFlags selects the buffers a clear touches.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearNone ClearFlags = 0
	ClearAll             = ClearColor | ClearDepth | ClearStencil
)
