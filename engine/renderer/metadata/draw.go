package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

// ViewState is the camera data a draw needs for its system uniforms.
type ViewState struct {
	View       math.Mat4
	Projection math.Mat4
	Position   math.Vec3
	Forward    math.Vec3
	Right      math.Vec3
	Up         math.Vec3
}

func NewViewState() ViewState {
	return ViewState{
		View:       math.NewMat4Identity(),
		Projection: math.NewMat4Identity(),
		Forward:    math.NewVec3Forward(),
		Right:      math.NewVec3Right(),
		Up:         math.NewVec3Up(),
	}
}

/**
 * @brief Everything needed to issue one graphics call.
 */
type DrawCall struct {
	Pipeline     *PipelineState
	Material     *Material
	VertexArrays [MaxVertexArrays]*RendererArray
	// IndexArray is used only when Indexed is set.
	IndexArray *RendererArray
	Indexed    bool

	// First and Count are vertices, or indices when Indexed.
	First     uint32
	Count     uint32
	Instances uint32

	Model math.Mat4
	View  ViewState
	// Time is the engine time in seconds.
	Time float32
}

// Validate checks every invariant that can be decided without the GPU. A
// draw that fails here must not reach the device.
func (d *DrawCall) Validate() error {
	if err := d.validate(); err != nil {
		return fmt.Errorf("draw rejected: %w", err)
	}
	return nil
}

func (d *DrawCall) validate() error {
	if d.Pipeline == nil || d.Material == nil {
		return fmt.Errorf("pipeline and material are required: %w", core.ErrInvalidDraw)
	}
	shader := d.Pipeline.Shader()
	if shader == nil || shader.IsReleased() {
		return fmt.Errorf("pipeline `%s` has no live shader: %w", d.Pipeline.Name(), core.ErrInvalidDraw)
	}
	if d.Material.IsReleased() || d.Material.Shader() == nil {
		return fmt.Errorf("material `%s` is released: %w", d.Material.Name(), core.ErrInvalidDraw)
	}
	if d.Material.Shader() != shader {
		return fmt.Errorf("material `%s` uses shader `%s`, pipeline `%s` uses `%s`: %w",
			d.Material.Name(), d.Material.Shader().Name(), d.Pipeline.Name(), shader.Name(), core.ErrInvalidDraw)
	}
	if d.Count == 0 {
		return fmt.Errorf("empty draw: %w", core.ErrInvalidDraw)
	}
	if d.Instances == 0 {
		return fmt.Errorf("draw with zero instances: %w", core.ErrInvalidDraw)
	}
	if polygon := d.Pipeline.Polygon(); !polygon.ValidCount(d.Count) {
		return fmt.Errorf("%d vertices do not form whole %s primitives: %w", d.Count, polygon, core.ErrInvalidDraw)
	}

	vertexEnd := uint64(d.First) + uint64(d.Count)
	if d.Indexed {
		end, err := d.indexedVertexEnd()
		if err != nil {
			return err
		}
		vertexEnd = end
	}
	if err := d.validateAttributes(shader, vertexEnd); err != nil {
		return err
	}
	return d.validateTextures(shader)
}

// indexedVertexEnd checks the index window and returns one past the largest
// referenced vertex.
func (d *DrawCall) indexedVertexEnd() (uint64, error) {
	ia := d.IndexArray
	if ia == nil || !ia.IsDefined() || ia.Type() != ArrayTypeIndex {
		return 0, fmt.Errorf("indexed draw without a defined index array: %w", core.ErrUndefinedResource)
	}
	if ia.IsReleased() {
		return 0, fmt.Errorf("index array `%s` was released: %w", ia.Name(), core.ErrUndefinedResource)
	}
	if end := uint64(d.First) + uint64(d.Count); end > uint64(ia.Count()) {
		return 0, fmt.Errorf("indices [%d,%d) exceed index array `%s` of %d: %w", d.First, end, ia.Name(), ia.Count(), core.ErrOutOfBounds)
	}
	if ia.State() == ArrayStateLocked {
		return 0, fmt.Errorf("index array `%s` is locked: %w", ia.Name(), core.ErrAlreadyLocked)
	}

	var maxIndex uint64
	data := ia.Data()
	size := ia.IndexFormat().Size()
	for i := d.First; i < d.First+d.Count; i++ {
		var v uint64
		at := uint64(i) * uint64(size)
		if ia.IndexFormat() == IndexFormatU16 {
			v = uint64(binary.LittleEndian.Uint16(data[at:]))
		} else {
			v = uint64(binary.LittleEndian.Uint32(data[at:]))
		}
		if v > maxIndex {
			maxIndex = v
		}
	}
	return maxIndex + 1, nil
}

func (d *DrawCall) validateAttributes(shader *Shader, vertexEnd uint64) error {
	for _, name := range shader.Attributes() {
		attr, ok := d.Pipeline.Attribute(name)
		if !ok {
			return fmt.Errorf("shader `%s` attribute `%s` has no layout entry in pipeline `%s`: %w",
				shader.Name(), name, d.Pipeline.Name(), core.ErrMissingAttribute)
		}
		arr := d.VertexArrays[attr.ArrayIndex]
		if arr == nil || !arr.IsDefined() || arr.IsReleased() {
			return fmt.Errorf("attribute `%s` reads vertex array slot %d, which is empty: %w", name, attr.ArrayIndex, core.ErrUndefinedResource)
		}
		if arr.Type() == ArrayTypeIndex {
			return fmt.Errorf("attribute `%s` reads index array `%s`: %w", name, arr.Name(), core.ErrInvalidDraw)
		}
		if arr.State() == ArrayStateLocked {
			return fmt.Errorf("vertex array `%s` is locked: %w", arr.Name(), core.ErrAlreadyLocked)
		}
		if end := uint32(attr.Offset) + attr.Format.Size(); end > arr.Stride() {
			return fmt.Errorf("attribute `%s` ends at byte %d past stride %d of `%s`: %w", name, end, arr.Stride(), arr.Name(), core.ErrOutOfBounds)
		}

		need := vertexEnd
		if attr.InstanceStep > 0 {
			step := uint64(attr.InstanceStep)
			need = (uint64(d.Instances) + step - 1) / step
		}
		if need > uint64(arr.Count()) {
			return fmt.Errorf("attribute `%s` needs %d elements of `%s`, which has %d: %w", name, need, arr.Name(), arr.Count(), core.ErrOutOfBounds)
		}
	}
	return nil
}

func (d *DrawCall) validateTextures(shader *Shader) error {
	for id, u := range shader.Uniforms() {
		if u.Type != UniformTypeTexture {
			continue
		}
		bindings := d.Material.TextureBindings(id)
		if bindings == nil {
			return fmt.Errorf("material `%s` texture `%s` is not set: %w", d.Material.Name(), u.Name, core.ErrUndefinedResource)
		}
		for i, b := range bindings {
			if b.Texture == nil || !b.Texture.IsDefined() {
				return fmt.Errorf("material `%s` texture `%s[%d]` is not defined: %w", d.Material.Name(), u.Name, i, core.ErrUndefinedResource)
			}
			if b.Texture.IsLocked() {
				return fmt.Errorf("texture `%s` is locked: %w", b.Texture.Name(), core.ErrAlreadyLocked)
			}
			if b.ResolvedSampler() == nil {
				return fmt.Errorf("material `%s` texture `%s[%d]` has no sampler: %w", d.Material.Name(), u.Name, i, core.ErrMissingSampler)
			}
		}
	}
	return nil
}
