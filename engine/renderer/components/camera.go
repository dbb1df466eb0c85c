package components

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type ProjectionType uint8

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
)

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

// pitch is clamped to avoid gimbal lock, 89 degrees
const pitchLimit float32 = 1.55334306

/**
 * @brief Represents a camera that can be used for a variety of things,
 * especially rendering. The view, projection and view-projection matrices
 * are cached and rebuilt only after a mutation.
 */
type Camera struct {
	Name string

	position math.Vec3
	// pitch (X), yaw (Y) and roll (Z) in radians
	eulerRotation math.Vec3

	projectionType ProjectionType
	// vertical field of view in radians for perspective cameras
	fovY float32
	// visible height in world units for orthographic cameras
	orthoHeight float32
	nearClip    float32
	farClip     float32

	target *metadata.RenderTarget

	ClearFlags   metadata.ClearFlags
	ClearColor   math.Vec4
	ClearDepth   float32
	ClearStencil uint32

	viewDirty  bool
	viewMatrix math.Mat4

	projectionDirty  bool
	projectionAspect float32
	projectionMatrix math.Mat4

	viewProjectionDirty  bool
	viewProjectionMatrix math.Mat4
}

func NewCamera(name string) *Camera {
	camera := &Camera{Name: name}
	camera.Reset()
	return camera
}

// Reset puts the camera at the origin looking down -Z with a 45 degree
// perspective projection.
func (c *Camera) Reset() {
	c.eulerRotation = math.NewVec3Zero()
	c.position = math.NewVec3Zero()
	c.projectionType = ProjectionPerspective
	c.fovY = math.DegToRad(45)
	c.orthoHeight = 10
	c.nearClip = 0.1
	c.farClip = 1000
	c.ClearFlags = metadata.ClearAll
	c.ClearColor = math.NewVec4(0, 0, 0, 1)
	c.ClearDepth = 1
	c.ClearStencil = 0
	c.viewMatrix = math.NewMat4Identity()
	c.invalidateView()
	c.invalidateProjection()
}

func (c *Camera) invalidateView() {
	c.viewDirty = true
	c.viewProjectionDirty = true
}

func (c *Camera) invalidateProjection() {
	c.projectionDirty = true
	c.viewProjectionDirty = true
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.invalidateView()
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.eulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.eulerRotation = rotation
	c.eulerRotation.X = math.Clamp(c.eulerRotation.X, -pitchLimit, pitchLimit)
	c.invalidateView()
}

func (c *Camera) ProjectionType() ProjectionType {
	return c.projectionType
}

// SetPerspective switches to a perspective projection.
func (c *Camera) SetPerspective(fovY, nearClip, farClip float32) {
	c.projectionType = ProjectionPerspective
	c.fovY = fovY
	c.nearClip, c.farClip = nearClip, farClip
	c.invalidateProjection()
}

// SetOrthographic switches to an orthographic projection showing height
// world units vertically.
func (c *Camera) SetOrthographic(height, nearClip, farClip float32) {
	c.projectionType = ProjectionOrthographic
	c.orthoHeight = height
	c.nearClip, c.farClip = nearClip, farClip
	c.invalidateProjection()
}

func (c *Camera) NearClip() float32 {
	return c.nearClip
}

func (c *Camera) FarClip() float32 {
	return c.farClip
}

func (c *Camera) RenderTarget() *metadata.RenderTarget {
	return c.target
}

// SetRenderTarget replaces the target; nil renders to the default surface.
func (c *Camera) SetRenderTarget(target *metadata.RenderTarget) {
	if target == c.target {
		return
	}
	if target != nil {
		target.Acquire()
	}
	if c.target != nil {
		c.target.Release()
	}
	c.target = target
	c.invalidateProjection()
}

// AspectRatio uses the render target attachments, falling back to the
// surface for the default target.
func (c *Camera) AspectRatio(surface metadata.Surface) float32 {
	var w, h uint32
	ok := false
	if c.target != nil {
		w, h, ok = c.target.Size()
	}
	if !ok && surface != nil {
		w, h = surface.Width(), surface.Height()
	}
	if w == 0 || h == 0 {
		return 1
	}
	return float32(w) / float32(h)
}

func (c *Camera) GetView() math.Mat4 {
	if c.viewDirty {
		rotation := math.NewMat4EulerXYZ(c.eulerRotation.X, c.eulerRotation.Y, c.eulerRotation.Z)
		translation := math.NewMat4Translation(c.position)

		c.viewMatrix = rotation.Mul(translation)
		c.viewMatrix = c.viewMatrix.Inverse()

		c.viewDirty = false
	}
	return c.viewMatrix
}

// GetProjection rebuilds the projection when a parameter or the aspect
// ratio changed.
func (c *Camera) GetProjection(aspect float32) math.Mat4 {
	if c.projectionDirty || aspect != c.projectionAspect {
		switch c.projectionType {
		case ProjectionOrthographic:
			halfH := c.orthoHeight * 0.5
			halfW := halfH * aspect
			c.projectionMatrix = math.NewMat4Orthographic(-halfW, halfW, -halfH, halfH, c.nearClip, c.farClip)
		default:
			c.projectionMatrix = math.NewMat4Perspective(c.fovY, aspect, c.nearClip, c.farClip)
		}
		c.projectionAspect = aspect
		c.projectionDirty = false
		c.viewProjectionDirty = true
	}
	return c.projectionMatrix
}

func (c *Camera) GetViewProjection(aspect float32) math.Mat4 {
	projection := c.GetProjection(aspect)
	view := c.GetView()
	if c.viewProjectionDirty {
		c.viewProjectionMatrix = view.Mul(projection)
		c.viewProjectionDirty = false
	}
	return c.viewProjectionMatrix
}

// ViewState collects what a draw needs from this camera.
func (c *Camera) ViewState(surface metadata.Surface) metadata.ViewState {
	view := c.GetView()
	return metadata.ViewState{
		View:       view,
		Projection: c.GetProjection(c.AspectRatio(surface)),
		Position:   c.position,
		Forward:    view.Forward(),
		Right:      view.Right(),
		Up:         view.Up(),
	}
}

func (c *Camera) Forward() math.Vec3 {
	view := c.GetView()
	return view.Forward()
}

func (c *Camera) Right() math.Vec3 {
	view := c.GetView()
	return view.Right()
}

func (c *Camera) Up() math.Vec3 {
	view := c.GetView()
	return view.Up()
}

func (c *Camera) move(direction math.Vec3, amount float32) {
	c.position = c.position.Add(direction.MulScalar(amount))
	c.invalidateView()
}

func (c *Camera) MoveForward(amount float32) {
	c.move(c.Forward(), amount)
}

func (c *Camera) MoveBackward(amount float32) {
	c.move(c.Forward(), -amount)
}

func (c *Camera) MoveLeft(amount float32) {
	c.move(c.Right(), -amount)
}

func (c *Camera) MoveRight(amount float32) {
	c.move(c.Right(), amount)
}

func (c *Camera) MoveUp(amount float32) {
	c.move(math.NewVec3Up(), amount)
}

func (c *Camera) MoveDown(amount float32) {
	c.move(math.NewVec3Up(), -amount)
}

func (c *Camera) Yaw(amount float32) {
	c.eulerRotation.Y += amount
	c.invalidateView()
}

func (c *Camera) Pitch(amount float32) {
	c.eulerRotation.X += amount
	c.eulerRotation.X = math.Clamp(c.eulerRotation.X, -pitchLimit, pitchLimit)
	c.invalidateView()
}

func (c *Camera) Roll(amount float32) {
	c.eulerRotation.Z += amount
	c.invalidateView()
}

// Release drops the render target reference.
func (c *Camera) Release() {
	c.SetRenderTarget(nil)
}
