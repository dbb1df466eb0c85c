package backend

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// uniformBinding is one material uniform of a linked program.
type uniformBinding struct {
	id         int
	location   driver.UniformLocation
	count      int32
	byteOffset uint32
	byteSize   uint32
	// setter is nil for texture uniforms
	setter uniformSetter
}

type attributeBinding struct {
	name     string
	location driver.AttribLocation
}

type shaderData struct {
	program    driver.Program
	uniforms   []uniformBinding
	system     [metadata.SystemUniformMax]driver.UniformLocation
	attributes []attributeBinding
}

func (d *shaderData) destroy(dev driver.Device) {
	dev.DeleteProgram(d.program)
}

// CheckShaderBackendData compiles and links the program and resolves every
// uniform and attribute location.
func (b *Backend) CheckShaderBackendData(s *metadata.Shader) (*shaderData, error) {
	return check(b, s.Name(), s, strategy[*shaderData]{
		kind: "shader",
		rebuild: func(current *shaderData, exists bool) (*shaderData, error) {
			next, err := b.linkShader(s)
			if err != nil {
				return nil, err
			}
			if exists {
				current.destroy(b.device)
			}
			return next, nil
		},
	})
}

func (b *Backend) linkShader(s *metadata.Shader) (*shaderData, error) {
	program, err := b.device.CreateProgram(s.Source(metadata.ShaderStageVertex), s.Source(metadata.ShaderStagePixel))
	if err != nil {
		return nil, err
	}
	data := &shaderData{program: program}
	if err := b.resolveLocations(s, data); err != nil {
		b.device.DeleteProgram(program)
		return nil, err
	}
	return data, nil
}

func (b *Backend) resolveLocations(s *metadata.Shader, data *shaderData) error {
	var offset uint32
	for id, u := range s.Uniforms() {
		binding := uniformBinding{
			id:         id,
			location:   b.device.UniformLocation(data.program, u.Name),
			count:      int32(u.Count),
			byteOffset: offset,
			byteSize:   u.ByteSize(),
		}
		offset += u.ByteSize()
		if binding.location < 0 {
			return fmt.Errorf("program does not declare uniform `%s`", u.Name)
		}
		if u.Type != metadata.UniformTypeTexture {
			setter, err := lookupSetter(u)
			if err != nil {
				return err
			}
			binding.setter = setter
		}
		data.uniforms = append(data.uniforms, binding)
	}

	for i := range data.system {
		data.system[i] = driver.InvalidLocation
	}
	for _, kind := range s.SystemUniforms() {
		loc := b.device.UniformLocation(data.program, kind.String())
		if loc < 0 {
			return fmt.Errorf("program does not declare system uniform `%s`", kind)
		}
		data.system[kind] = loc
	}

	for _, name := range s.Attributes() {
		loc := b.device.AttribLocation(data.program, name)
		if loc < 0 {
			return fmt.Errorf("program does not declare attribute `%s`", name)
		}
		data.attributes = append(data.attributes, attributeBinding{name: name, location: loc})
	}
	return nil
}

// materialData is the packed image of a material's non texture uniforms.
type materialData struct {
	packed []byte
}

func (d *materialData) destroy(driver.Device) {}

// CheckMaterialBackendData re-packs the uniform values when they changed.
func (b *Backend) CheckMaterialBackendData(m *metadata.Material) (*materialData, error) {
	return check(b, m.Name(), m, strategy[*materialData]{
		kind: "material",
		rebuild: func(current *materialData, exists bool) (*materialData, error) {
			if !exists {
				current = &materialData{}
			}
			current.packed = m.Pack(current.packed)
			return current, nil
		},
	})
}

// MaterialBytes returns the last packed uniform image of m, nil before the
// first synchronization.
func (b *Backend) MaterialBytes(m *metadata.Material) []byte {
	obj, ok := b.registry.Get(m.BackendHandle())
	if data, isMaterial := obj.(*materialData); ok && isMaterial {
		return data.packed
	}
	return nil
}

type arrayData struct {
	buffer driver.Buffer
	size   uint64
}

func (d *arrayData) destroy(dev driver.Device) {
	dev.DeleteBuffer(d.buffer)
}

func bufferKind(t metadata.ArrayType) driver.BufferKind {
	switch t {
	case metadata.ArrayTypeIndex:
		return driver.BufferKindIndex
	case metadata.ArrayTypeCompute:
		return driver.BufferKindStorage
	}
	return driver.BufferKindVertex
}

// CheckArrayBackendData creates the buffer or uploads the dirty byte range.
func (b *Backend) CheckArrayBackendData(a *metadata.RendererArray) (*arrayData, error) {
	return check(b, a.Name(), a, strategy[*arrayData]{
		kind: "array",
		rebuild: func(current *arrayData, exists bool) (*arrayData, error) {
			if !a.IsDefined() {
				return nil, fmt.Errorf("array has %d elements of %d bytes: %w", a.Count(), a.Stride(), core.ErrUndefinedResource)
			}
			if a.State() == metadata.ArrayStateLocked {
				return nil, core.ErrAlreadyLocked
			}
			if exists && current.size == a.ByteSize() {
				if start, end := a.DirtyRange(); end > start {
					if err := b.device.UpdateBuffer(current.buffer, start, a.Data()[start:end]); err != nil {
						return nil, err
					}
				}
				a.ClearDirtyRange()
				return current, nil
			}

			buf, err := b.device.CreateBuffer(bufferKind(a.Type()), a.ByteSize(), a.Access().Usage(), a.Data())
			if err != nil {
				return nil, err
			}
			if exists {
				current.destroy(b.device)
			}
			a.ClearDirtyRange()
			return &arrayData{buffer: buf, size: a.ByteSize()}, nil
		},
	})
}

type textureData struct {
	texture    driver.Texture
	generation uint32
}

func (d *textureData) destroy(dev driver.Device) {
	dev.DeleteTexture(d.texture)
}

// CheckTextureBackendData recreates storage after a resize and uploads the
// levels written since the last check.
func (b *Backend) CheckTextureBackendData(t *metadata.Texture) (*textureData, error) {
	return check(b, t.Name(), t, strategy[*textureData]{
		kind: "texture",
		stale: func(current *textureData) bool {
			return current.generation != t.StorageGeneration()
		},
		rebuild: func(current *textureData, exists bool) (*textureData, error) {
			if !t.IsDefined() {
				return nil, fmt.Errorf("texture is %dx%dx%d with %d mips: %w", t.Width(), t.Height(), t.Depth(), t.MipLevels(), core.ErrUndefinedResource)
			}
			if t.IsLocked() {
				return nil, core.ErrAlreadyLocked
			}
			if exists && current.generation == t.StorageGeneration() {
				if err := b.uploadLevels(current.texture, t, t.DirtyLevels()); err != nil {
					return nil, err
				}
				return current, nil
			}

			tex, err := b.device.CreateTexture(driver.TextureDesc{
				Width:     t.Width(),
				Height:    t.Height(),
				Depth:     t.Depth(),
				MipLevels: t.MipLevels(),
				Format:    t.Format(),
			})
			if err != nil {
				return nil, err
			}
			if err := b.uploadLevels(tex, t, ^uint64(0)); err != nil {
				b.device.DeleteTexture(tex)
				return nil, err
			}
			if exists {
				current.destroy(b.device)
			}
			return &textureData{texture: tex, generation: t.StorageGeneration()}, nil
		},
	})
}

func (b *Backend) uploadLevels(tex driver.Texture, t *metadata.Texture, mask uint64) error {
	levels := t.MipLevels()
	if t.FullMipChain() {
		// the device derives the rest from level 0
		levels = 1
	}
	for level := uint32(0); level < levels; level++ {
		if mask&(1<<level) == 0 {
			continue
		}
		err := b.device.UpdateTexture(tex, level, t.FullLevelRegion(level), t.Format(), t.LevelData(level))
		if err != nil {
			return err
		}
	}
	if t.FullMipChain() && mask&1 != 0 && t.MipLevels() > 1 {
		b.device.GenerateMipmaps(tex)
	}
	t.ClearDirtyLevels()
	return nil
}

type samplerData struct {
	sampler driver.Sampler
}

func (d *samplerData) destroy(dev driver.Device) {
	dev.DeleteSampler(d.sampler)
}

func (b *Backend) CheckSamplerBackendData(s *metadata.Sampler) (*samplerData, error) {
	return check(b, s.Name(), s, strategy[*samplerData]{
		kind: "sampler",
		rebuild: func(current *samplerData, exists bool) (*samplerData, error) {
			sampler, err := b.device.CreateSampler(s.Config())
			if err != nil {
				return nil, err
			}
			if exists {
				current.destroy(b.device)
			}
			return &samplerData{sampler: sampler}, nil
		},
	})
}

type renderTargetData struct {
	framebuffer driver.Framebuffer
	width       uint32
	height      uint32
	// attachment storage the framebuffer was built against
	colorGeneration uint32
	depthGeneration uint32
}

func (d *renderTargetData) destroy(dev driver.Device) {
	dev.DeleteFramebuffer(d.framebuffer)
}

func storageGeneration(t *metadata.Texture) uint32 {
	if t == nil {
		return 0
	}
	return t.StorageGeneration()
}

// CheckRenderTargetBackendData returns the framebuffer to bind for rt and its
// size. A nil or attachment-less target tears its handle down and resolves
// to the default surface.
func (b *Backend) CheckRenderTargetBackendData(rt *metadata.RenderTarget, surface metadata.Surface) (driver.Framebuffer, uint32, uint32, error) {
	if rt == nil || rt.IsDefault() {
		if rt != nil && !rt.BackendHandle().IsNil() {
			b.DeleteBackendData(rt.BackendHandle())
			rt.SetBackendHandle(nil, 0)
			rt.ClearDirty()
		}
		return driver.DefaultFramebuffer, surface.Width(), surface.Height(), nil
	}

	data, err := check(b, rt.Name(), rt, strategy[*renderTargetData]{
		kind: "render target",
		stale: func(current *renderTargetData) bool {
			return rt.AttachmentsDirty() ||
				current.colorGeneration != storageGeneration(rt.Color()) ||
				current.depthGeneration != storageGeneration(rt.DepthStencil())
		},
		rebuild: func(current *renderTargetData, exists bool) (*renderTargetData, error) {
			if err := rt.SizeMatches(); err != nil {
				return nil, err
			}
			desc := driver.FramebufferDesc{}
			if color := rt.Color(); color != nil {
				tex, err := b.CheckTextureBackendData(color)
				if err != nil {
					return nil, err
				}
				desc.Color = tex.texture
			}
			if depth := rt.DepthStencil(); depth != nil {
				tex, err := b.CheckTextureBackendData(depth)
				if err != nil {
					return nil, err
				}
				desc.DepthStencil = tex.texture
				desc.DepthFormat = depth.Format()
			}
			fb, err := b.device.CreateFramebuffer(desc)
			if err != nil {
				return nil, err
			}
			if exists {
				current.destroy(b.device)
			}
			w, h, _ := rt.Size()
			return &renderTargetData{
				framebuffer:     fb,
				width:           w,
				height:          h,
				colorGeneration: storageGeneration(rt.Color()),
				depthGeneration: storageGeneration(rt.DepthStencil()),
			}, nil
		},
	})
	if err != nil {
		return driver.DefaultFramebuffer, 0, 0, err
	}
	return data.framebuffer, data.width, data.height, nil
}
