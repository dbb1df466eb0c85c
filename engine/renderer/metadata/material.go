package metadata

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

// TextureBinding pairs a texture with the sampler used to read it. A nil
// Sampler falls back to the texture's own sampler at draw time.
type TextureBinding struct {
	Texture *Texture
	Sampler *Sampler
}

// ResolvedSampler returns the sampler a draw would use, nil if none.
func (b TextureBinding) ResolvedSampler() *Sampler {
	if b.Sampler != nil {
		return b.Sampler
	}
	if b.Texture != nil {
		return b.Texture.Sampler()
	}
	return nil
}

// uniformSlot holds the value of one uniform. Only the field matching the
// declared type is populated.
type uniformSlot struct {
	typ      UniformType
	f32      []float32
	i32      []int32
	ui32     []uint32
	bools    []bool
	textures []TextureBinding
}

func newDefaultSlot(u Uniform) *uniformSlot {
	s := &uniformSlot{typ: u.Type}
	n := u.Components() * u.Count
	switch u.Type {
	case UniformTypeTexture:
		s.textures = make([]TextureBinding, u.Count)
	case UniformTypeF32:
		s.f32 = make([]float32, n)
		fillIdentity(u, func(i uint32) { s.f32[i] = 1 })
	case UniformTypeI32:
		s.i32 = make([]int32, n)
		fillIdentity(u, func(i uint32) { s.i32[i] = 1 })
	case UniformTypeUI32:
		s.ui32 = make([]uint32, n)
		fillIdentity(u, func(i uint32) { s.ui32[i] = 1 })
	case UniformTypeBool:
		s.bools = make([]bool, n)
		fillIdentity(u, func(i uint32) { s.bools[i] = true })
	}
	return s
}

// fillIdentity calls set for the diagonal of every matrix element. Vectors
// and scalars stay zero.
func fillIdentity(u Uniform, set func(i uint32)) {
	if !u.IsMatrix() {
		return
	}
	w, h := uint32(u.Width), uint32(u.Height)
	for e := uint32(0); e < u.Count; e++ {
		base := e * w * h
		for c := uint32(0); c < w && c < h; c++ {
			// column major: column c, row c
			set(base + c*h + c)
		}
	}
}

/**
 * @brief A set of uniform values for one shader.
 */
type Material struct {
	FrontendData

	name   string
	shader *Shader
	slots  []*uniformSlot
}

// NewMaterial creates a material with every uniform unset.
func NewMaterial(name string, shader *Shader) (*Material, error) {
	if shader == nil {
		err := fmt.Errorf("material `%s` needs a shader: %w", name, core.ErrInvalidArgument)
		core.LogError("%s", err)
		return nil, err
	}
	if name == "" {
		name = "material-" + uuid.NewString()
	}
	shader.Acquire()
	return &Material{
		FrontendData: newFrontendData(),
		name:         name,
		shader:       shader,
		slots:        make([]*uniformSlot, shader.UniformCount()),
	}, nil
}

func (m *Material) Name() string {
	return m.name
}

func (m *Material) Shader() *Shader {
	return m.shader
}

// ResolveUniform finds the id of a uniform by name.
func (m *Material) ResolveUniform(name string) (int, error) {
	id, ok := m.shader.UniformIndex(name)
	if !ok {
		err := fmt.Errorf("material `%s`: shader `%s` has no uniform `%s`: %w", m.name, m.shader.Name(), name, core.ErrUniformNotFound)
		core.LogError("%s", err)
		return -1, err
	}
	return id, nil
}

func (m *Material) uniform(id int) (Uniform, error) {
	u, ok := m.shader.Uniform(id)
	if !ok {
		return Uniform{}, fmt.Errorf("material `%s`: uniform id %d not in [0,%d): %w", m.name, id, m.shader.UniformCount(), core.ErrUniformNotFound)
	}
	return u, nil
}

func (m *Material) slot(id int) *uniformSlot {
	if m.slots[id] == nil {
		u, _ := m.shader.Uniform(id)
		m.slots[id] = newDefaultSlot(u)
	}
	return m.slots[id]
}

// IsUniformSet reports whether the slot was materialized.
func (m *Material) IsUniformSet(id int) bool {
	return id >= 0 && id < len(m.slots) && m.slots[id] != nil
}

// checkWrite validates a write of count elements at offset with the given
// scalar type. Nothing is changed on failure.
func (m *Material) checkWrite(id int, typ UniformType, valueLen int, count, offset uint32) (Uniform, error) {
	u, err := m.uniform(id)
	if err != nil {
		return u, err
	}
	end := uint64(offset) + uint64(count)
	if end > uint64(u.Count) {
		return u, fmt.Errorf("material `%s` uniform `%s`: elements [%d,%d) exceed %d: %w", m.name, u.Name, offset, end, u.Count, core.ErrOutOfBounds)
	}
	if need := uint64(count) * uint64(u.Components()); uint64(valueLen) < need {
		return u, fmt.Errorf("material `%s` uniform `%s`: %d elements need %d values, got %d: %w", m.name, u.Name, count, need, valueLen, core.ErrOutOfBounds)
	}
	if u.Type != typ {
		return u, fmt.Errorf("material `%s` uniform `%s`: declared %s, set as %s: %w", m.name, u.Name, u.Type, typ, core.ErrTypeMismatch)
	}
	return u, nil
}

func setUniform[T any](m *Material, id int, typ UniformType, values []T, count, offset uint32, field func(*uniformSlot) []T) error {
	u, err := m.checkWrite(id, typ, len(values), count, offset)
	if err != nil {
		core.LogError("%s", err)
		return err
	}
	n := u.Components()
	copy(field(m.slot(id))[offset*n:(offset+count)*n], values[:count*n])
	m.MarkDirty()
	return nil
}

func getUniform[T any](m *Material, id int, typ UniformType, field func(*uniformSlot) []T) ([]T, error) {
	u, err := m.uniform(id)
	if err == nil && u.Type != typ {
		err = fmt.Errorf("material `%s` uniform `%s`: declared %s, read as %s: %w", m.name, u.Name, u.Type, typ, core.ErrTypeMismatch)
	}
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return field(m.slot(id)), nil
}

func f32Field(s *uniformSlot) []float32 { return s.f32 }
func i32Field(s *uniformSlot) []int32   { return s.i32 }
func ui32Field(s *uniformSlot) []uint32 { return s.ui32 }
func boolField(s *uniformSlot) []bool   { return s.bools }

// SetUniformF32 copies count elements of values into uniform id starting at
// element offset. values holds Width*Height scalars per element, matrices
// in column major order.
func (m *Material) SetUniformF32(id int, values []float32, count, offset uint32) error {
	return setUniform(m, id, UniformTypeF32, values, count, offset, f32Field)
}

func (m *Material) SetUniformI32(id int, values []int32, count, offset uint32) error {
	return setUniform(m, id, UniformTypeI32, values, count, offset, i32Field)
}

func (m *Material) SetUniformUI32(id int, values []uint32, count, offset uint32) error {
	return setUniform(m, id, UniformTypeUI32, values, count, offset, ui32Field)
}

func (m *Material) SetUniformBool(id int, values []bool, count, offset uint32) error {
	return setUniform(m, id, UniformTypeBool, values, count, offset, boolField)
}

func (m *Material) SetUniformF32ByName(name string, values []float32, count, offset uint32) error {
	id, err := m.ResolveUniform(name)
	if err != nil {
		return err
	}
	return m.SetUniformF32(id, values, count, offset)
}

func (m *Material) SetUniformI32ByName(name string, values []int32, count, offset uint32) error {
	id, err := m.ResolveUniform(name)
	if err != nil {
		return err
	}
	return m.SetUniformI32(id, values, count, offset)
}

func (m *Material) SetUniformUI32ByName(name string, values []uint32, count, offset uint32) error {
	id, err := m.ResolveUniform(name)
	if err != nil {
		return err
	}
	return m.SetUniformUI32(id, values, count, offset)
}

func (m *Material) SetUniformBoolByName(name string, values []bool, count, offset uint32) error {
	id, err := m.ResolveUniform(name)
	if err != nil {
		return err
	}
	return m.SetUniformBool(id, values, count, offset)
}

// SetUniformVec4 sets a single 4x1 float element.
func (m *Material) SetUniformVec4(name string, v math.Vec4) error {
	return m.SetUniformF32ByName(name, v.Slice(), 1, 0)
}

// SetUniformMat4 sets a single 4x4 float element.
func (m *Material) SetUniformMat4(name string, mat math.Mat4) error {
	return m.SetUniformF32ByName(name, mat.Data[:], 1, 0)
}

func (m *Material) UniformF32(id int) ([]float32, error) {
	return getUniform(m, id, UniformTypeF32, f32Field)
}

func (m *Material) UniformI32(id int) ([]int32, error) {
	return getUniform(m, id, UniformTypeI32, i32Field)
}

func (m *Material) UniformUI32(id int) ([]uint32, error) {
	return getUniform(m, id, UniformTypeUI32, ui32Field)
}

func (m *Material) UniformBool(id int) ([]bool, error) {
	return getUniform(m, id, UniformTypeBool, boolField)
}

// SetUniformTexture binds texture and sampler to element 0 of uniform id. A
// nil texture resets the whole slot to unset.
func (m *Material) SetUniformTexture(id int, texture *Texture, sampler *Sampler) error {
	if texture == nil {
		u, err := m.uniform(id)
		if err == nil && u.Type != UniformTypeTexture {
			err = fmt.Errorf("material `%s` uniform `%s`: declared %s, set as %s: %w", m.name, u.Name, u.Type, UniformTypeTexture, core.ErrTypeMismatch)
		}
		if err != nil {
			core.LogError("%s", err)
			return err
		}
		m.releaseSlot(m.slots[id])
		m.slots[id] = nil
		m.MarkDirty()
		return nil
	}
	return m.SetUniformTextureAt(id, 0, texture, sampler)
}

// SetUniformTextureAt binds element offset of a texture array uniform. A nil
// texture clears only that element.
func (m *Material) SetUniformTextureAt(id int, offset uint32, texture *Texture, sampler *Sampler) error {
	if _, err := m.checkWrite(id, UniformTypeTexture, 1, 1, offset); err != nil {
		core.LogError("%s", err)
		return err
	}
	if texture == nil {
		sampler = nil
	}
	if texture != nil {
		texture.Acquire()
	}
	if sampler != nil {
		sampler.Acquire()
	}
	bindings := m.slot(id).textures
	releaseBinding(bindings[offset])
	bindings[offset] = TextureBinding{Texture: texture, Sampler: sampler}
	m.MarkDirty()
	return nil
}

func (m *Material) SetUniformTextureByName(name string, texture *Texture, sampler *Sampler) error {
	id, err := m.ResolveUniform(name)
	if err != nil {
		return err
	}
	return m.SetUniformTexture(id, texture, sampler)
}

// UniformTexture returns the binding of one element.
func (m *Material) UniformTexture(id int, offset uint32) (TextureBinding, error) {
	bindings, err := getUniform(m, id, UniformTypeTexture, func(s *uniformSlot) []TextureBinding { return s.textures })
	if err != nil {
		return TextureBinding{}, err
	}
	if offset >= uint32(len(bindings)) {
		err := fmt.Errorf("material `%s`: texture element %d of %d: %w", m.name, offset, len(bindings), core.ErrOutOfBounds)
		core.LogError("%s", err)
		return TextureBinding{}, err
	}
	return bindings[offset], nil
}

// TextureBindings returns the bindings of a texture uniform without
// materializing it; nil when unset.
func (m *Material) TextureBindings(id int) []TextureBinding {
	if !m.IsUniformSet(id) {
		return nil
	}
	return m.slots[id].textures
}

// UniformByteOffset returns the offset of uniform id inside Pack.
func (m *Material) UniformByteOffset(id int) uint32 {
	var off uint32
	for i, u := range m.shader.Uniforms() {
		if i == id {
			break
		}
		off += u.ByteSize()
	}
	return off
}

// PackedSize is the size of the buffer produced by Pack.
func (m *Material) PackedSize() uint32 {
	var size uint32
	for _, u := range m.shader.Uniforms() {
		size += u.ByteSize()
	}
	return size
}

// Pack writes every non-texture uniform into dst, in declaration order, as
// little endian 4 byte scalars. Bools pack as 0 or 1.
func (m *Material) Pack(dst []byte) []byte {
	size := int(m.PackedSize())
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	off := 0
	for id, u := range m.shader.Uniforms() {
		if u.Type == UniformTypeTexture {
			continue
		}
		s := m.slot(id)
		switch u.Type {
		case UniformTypeF32:
			for _, v := range s.f32 {
				binary.LittleEndian.PutUint32(dst[off:], stdmath.Float32bits(v))
				off += 4
			}
		case UniformTypeI32:
			for _, v := range s.i32 {
				binary.LittleEndian.PutUint32(dst[off:], uint32(v))
				off += 4
			}
		case UniformTypeUI32:
			for _, v := range s.ui32 {
				binary.LittleEndian.PutUint32(dst[off:], v)
				off += 4
			}
		case UniformTypeBool:
			for _, v := range s.bools {
				var b uint32
				if v {
					b = 1
				}
				binary.LittleEndian.PutUint32(dst[off:], b)
				off += 4
			}
		}
	}
	return dst
}

// SetShader moves the material to shader. A value survives only when the
// new shader declares a uniform with the same name, type and element shape;
// it is cut or padded with defaults to the new element count.
func (m *Material) SetShader(shader *Shader) error {
	if shader == nil {
		err := fmt.Errorf("material `%s` needs a shader: %w", m.name, core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	if shader == m.shader {
		return nil
	}

	slots := make([]*uniformSlot, shader.UniformCount())
	for newID, nu := range shader.Uniforms() {
		oldID, ok := m.shader.UniformIndex(nu.Name)
		if !ok || m.slots[oldID] == nil {
			continue
		}
		ou, _ := m.shader.Uniform(oldID)
		if !ou.sameShape(nu) {
			core.LogWarn("material `%s`: dropping `%s`, %s does not match %s", m.name, nu.Name, ou, nu)
			continue
		}
		slots[newID] = carrySlot(m.slots[oldID], ou, nu)
		m.slots[oldID] = nil
	}
	for _, s := range m.slots {
		m.releaseSlot(s)
	}

	shader.Acquire()
	m.shader.Release()
	m.shader = shader
	m.slots = slots
	m.MarkDirty()
	return nil
}

func carrySlot(old *uniformSlot, ou, nu Uniform) *uniformSlot {
	s := newDefaultSlot(nu)
	n := int(ou.Components() * math.Min(ou.Count, nu.Count))
	switch nu.Type {
	case UniformTypeTexture:
		k := int(math.Min(ou.Count, nu.Count))
		copy(s.textures, old.textures[:k])
		for _, b := range old.textures[k:] {
			releaseBinding(b)
		}
	case UniformTypeF32:
		copy(s.f32, old.f32[:n])
	case UniformTypeI32:
		copy(s.i32, old.i32[:n])
	case UniformTypeUI32:
		copy(s.ui32, old.ui32[:n])
	case UniformTypeBool:
		copy(s.bools, old.bools[:n])
	}
	return s
}

func releaseBinding(b TextureBinding) {
	if b.Texture != nil {
		b.Texture.Release()
	}
	if b.Sampler != nil {
		b.Sampler.Release()
	}
}

func (m *Material) releaseSlot(s *uniformSlot) {
	if s == nil {
		return
	}
	for _, b := range s.textures {
		releaseBinding(b)
	}
}

func (m *Material) Release() {
	if !m.release() {
		return
	}
	for _, s := range m.slots {
		m.releaseSlot(s)
	}
	m.slots = nil
	m.shader.Release()
	m.shader = nil
}
