package backend

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// BindRenderTarget checks rt and makes it the destination of later draws.
func (b *Backend) BindRenderTarget(rt *metadata.RenderTarget, surface metadata.Surface) error {
	fb, w, h, err := b.CheckRenderTargetBackendData(rt, surface)
	if err != nil {
		return err
	}
	b.device.BindFramebuffer(fb, w, h)
	return nil
}

// Clear clears the bound render target.
func (b *Backend) Clear(flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32) {
	if flags == metadata.ClearNone {
		return
	}
	b.device.Clear(flags, color, depth, stencil)
}

// Draw assembles and submits one draw call. Calls that fail validation never
// reach the device.
func (b *Backend) Draw(call *metadata.DrawCall) error {
	if err := call.Validate(); err != nil {
		b.stats.Rejected++
		core.LogError("%s", err)
		return err
	}
	if err := b.draw(call); err != nil {
		b.stats.Failed++
		err = fmt.Errorf("draw aborted: %w", err)
		core.LogError("%s", err)
		return err
	}
	b.stats.Draws++
	return nil
}

func (b *Backend) draw(call *metadata.DrawCall) error {
	pipeline := call.Pipeline
	shader := pipeline.Shader()

	// (a) program
	sd, err := b.CheckShaderBackendData(shader)
	if err != nil {
		return err
	}
	b.device.UseProgram(sd.program)

	// (b) fixed function state, applied on every draw
	b.applyPipeline(pipeline)

	// (c) material values and its textures
	md, err := b.CheckMaterialBackendData(call.Material)
	if err != nil {
		return err
	}
	units, err := b.bindTextures(call.Material, sd)
	if err != nil {
		return err
	}

	// (d) + (e) vertex inputs
	if err := b.bindAttributes(call, sd); err != nil {
		return err
	}
	if call.Indexed {
		ad, err := b.CheckArrayBackendData(call.IndexArray)
		if err != nil {
			return err
		}
		b.device.BindIndexBuffer(ad.buffer)
	}

	// (f) material uniforms through the precomputed setters
	for _, u := range sd.uniforms {
		if u.setter == nil {
			b.device.Uniform1iv(u.location, u.count, units[u.id])
			continue
		}
		u.setter(b, u.location, u.count, md.packed[u.byteOffset:u.byteOffset+u.byteSize])
	}

	// (g) engine supplied uniforms the shader declares
	b.setSystemUniforms(call, shader, sd)

	// (h) submit
	if call.Indexed {
		b.device.DrawIndexed(pipeline.Polygon(), call.IndexArray.IndexFormat(), call.First, call.Count, call.Instances)
	} else {
		b.device.Draw(pipeline.Polygon(), call.First, call.Count, call.Instances)
	}
	return nil
}

func (b *Backend) applyPipeline(p *metadata.PipelineState) {
	b.device.SetRasterState(driver.RasterState{
		Fill:      p.Fill(),
		Cull:      p.Cull(),
		FrontFace: p.FrontFace(),
	})
	b.device.SetDepthState(driver.DepthState{
		Test:  p.DepthTest(),
		Write: p.DepthWrite(),
		Func:  p.DepthFunc(),
	})
	for target, blend := range p.Blends() {
		b.device.SetBlendState(target, blend)
	}
}

// bindTextures checks every texture and sampler of the material and binds
// them to consecutive units. It returns the units per uniform id.
func (b *Backend) bindTextures(m *metadata.Material, sd *shaderData) (map[int][]int32, error) {
	units := make(map[int][]int32)
	next := uint32(0)
	for _, u := range sd.uniforms {
		if u.setter != nil {
			continue
		}
		bindings := m.TextureBindings(u.id)
		if bindings == nil {
			return nil, fmt.Errorf("material `%s` uniform %d has no texture: %w", m.Name(), u.id, core.ErrUndefinedResource)
		}
		ids := make([]int32, len(bindings))
		for i, binding := range bindings {
			td, err := b.CheckTextureBackendData(binding.Texture)
			if err != nil {
				return nil, err
			}
			sampler := binding.ResolvedSampler()
			if sampler == nil {
				return nil, fmt.Errorf("texture `%s`: %w", binding.Texture.Name(), core.ErrMissingSampler)
			}
			smp, err := b.CheckSamplerBackendData(sampler)
			if err != nil {
				return nil, err
			}
			b.device.BindTexture(next, td.texture, smp.sampler)
			ids[i] = int32(next)
			next++
		}
		units[u.id] = ids
	}
	return units, nil
}

func (b *Backend) bindAttributes(call *metadata.DrawCall, sd *shaderData) error {
	b.device.ResetVertexAttributes()
	shader := call.Pipeline.Shader()
	for _, binding := range sd.attributes {
		attr, ok := call.Pipeline.Attribute(binding.name)
		if !ok {
			return fmt.Errorf("shader `%s` attribute `%s` is not in pipeline `%s` layout: %w",
				shader.Name(), binding.name, call.Pipeline.Name(), core.ErrMissingAttribute)
		}
		arr := call.VertexArrays[attr.ArrayIndex]
		ad, err := b.CheckArrayBackendData(arr)
		if err != nil {
			return err
		}
		b.device.BindVertexAttribute(binding.location, ad.buffer, attr.Format, uint32(attr.Offset), arr.Stride(), attr.InstanceStep)
	}
	return nil
}

func (b *Backend) setSystemUniforms(call *metadata.DrawCall, shader *metadata.Shader, sd *shaderData) {
	var viewProjection *math.Mat4
	vp := func() math.Mat4 {
		if viewProjection == nil {
			m := call.View.View.Mul(call.View.Projection)
			viewProjection = &m
		}
		return *viewProjection
	}

	for _, kind := range shader.SystemUniforms() {
		loc := sd.system[kind]
		switch kind {
		case metadata.SystemUniformModel:
			b.device.UniformMatrix4fv(loc, 1, call.Model.Data[:])
		case metadata.SystemUniformView:
			b.device.UniformMatrix4fv(loc, 1, call.View.View.Data[:])
		case metadata.SystemUniformProjection:
			b.device.UniformMatrix4fv(loc, 1, call.View.Projection.Data[:])
		case metadata.SystemUniformViewProjection:
			m := vp()
			b.device.UniformMatrix4fv(loc, 1, m.Data[:])
		case metadata.SystemUniformModelViewProjection:
			m := call.Model.Mul(vp())
			b.device.UniformMatrix4fv(loc, 1, m.Data[:])
		case metadata.SystemUniformCameraPosition:
			b.device.Uniform3fv(loc, 1, call.View.Position.Slice())
		case metadata.SystemUniformCameraForward:
			b.device.Uniform3fv(loc, 1, call.View.Forward.Slice())
		case metadata.SystemUniformCameraRight:
			b.device.Uniform3fv(loc, 1, call.View.Right.Slice())
		case metadata.SystemUniformCameraUp:
			b.device.Uniform3fv(loc, 1, call.View.Up.Slice())
		case metadata.SystemUniformTime:
			b.device.Uniform1fv(loc, 1, []float32{call.Time})
		default:
			core.LogFatal("unhandled system uniform %s", kind)
		}
	}
}
