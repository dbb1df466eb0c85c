package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func (d *Device) UseProgram(p driver.Program) {
	gl.UseProgram(uint32(p))
}

func (d *Device) SetRasterState(state driver.RasterState) {
	switch state.Fill {
	case metadata.FillModeWireframe:
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	case metadata.FillModePoint:
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.POINT)
	default:
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	switch state.Cull {
	case metadata.CullModeNone:
		gl.Disable(gl.CULL_FACE)
	case metadata.CullModeFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case metadata.CullModeBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case metadata.CullModeFrontAndBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT_AND_BACK)
	}

	if state.FrontFace == metadata.FrontFaceCW {
		gl.FrontFace(gl.CW)
	} else {
		gl.FrontFace(gl.CCW)
	}
}

func (d *Device) SetDepthState(state driver.DepthState) {
	if state.Test {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(state.Write)
	gl.DepthFunc(compareFunc(state.Func))
}

func (d *Device) SetBlendState(target int, desc metadata.BlendDesc) {
	index := uint32(target)
	if desc.Enabled {
		gl.Enablei(gl.BLEND, index)
	} else {
		gl.Disablei(gl.BLEND, index)
	}
	gl.BlendFuncSeparatei(index,
		blendFactor(desc.SrcColor), blendFactor(desc.DstColor),
		blendFactor(desc.SrcAlpha), blendFactor(desc.DstAlpha))
	gl.BlendEquationSeparatei(index, blendOp(desc.ColorOp), blendOp(desc.AlphaOp))
	gl.ColorMaski(index,
		desc.WriteMask&metadata.ColorWriteRed != 0,
		desc.WriteMask&metadata.ColorWriteGreen != 0,
		desc.WriteMask&metadata.ColorWriteBlue != 0,
		desc.WriteMask&metadata.ColorWriteAlpha != 0)
}

func (d *Device) BindVertexAttribute(loc driver.AttribLocation, buf driver.Buffer, format metadata.VertexFormat, offset, stride, divisor uint32) {
	if loc < 0 {
		return
	}
	vf, ok := vertexFormats[format]
	if !ok {
		return
	}
	index := uint32(loc)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(index)
	if format.IsInteger() {
		gl.VertexAttribIPointer(index, int32(format.Components()), vf.xtype, int32(stride), gl.PtrOffset(int(offset)))
	} else {
		gl.VertexAttribPointer(index, int32(format.Components()), vf.xtype, vf.normalized, int32(stride), gl.PtrOffset(int(offset)))
	}
	gl.VertexAttribDivisor(index, divisor)
	d.enabled = append(d.enabled, index)
}

func (d *Device) ResetVertexAttributes() {
	for _, index := range d.enabled {
		gl.VertexAttribDivisor(index, 0)
		gl.DisableVertexAttribArray(index)
	}
	d.enabled = d.enabled[:0]
}

func (d *Device) BindIndexBuffer(buf driver.Buffer) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(buf))
}

func (d *Device) BindTexture(unit uint32, tex driver.Texture, s driver.Sampler) {
	target := uint32(gl.TEXTURE_2D)
	if t, ok := d.textures[tex]; ok {
		target = t.target
	}
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(target, uint32(tex))
	gl.BindSampler(unit, uint32(s))
}

func (d *Device) Uniform1fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform2fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform2fv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform3fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform3fv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform4fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform4fv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform1iv(loc driver.UniformLocation, count int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform2iv(loc driver.UniformLocation, count int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform2iv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform3iv(loc driver.UniformLocation, count int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform3iv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform4iv(loc driver.UniformLocation, count int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform4iv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform1uiv(loc driver.UniformLocation, count int32, v []uint32) {
	if len(v) > 0 {
		gl.Uniform1uiv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform2uiv(loc driver.UniformLocation, count int32, v []uint32) {
	if len(v) > 0 {
		gl.Uniform2uiv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform3uiv(loc driver.UniformLocation, count int32, v []uint32) {
	if len(v) > 0 {
		gl.Uniform3uiv(int32(loc), count, &v[0])
	}
}

func (d *Device) Uniform4uiv(loc driver.UniformLocation, count int32, v []uint32) {
	if len(v) > 0 {
		gl.Uniform4uiv(int32(loc), count, &v[0])
	}
}

func (d *Device) UniformMatrix2fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix2fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix3fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix3fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix4fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix4fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix2x3fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix2x3fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix3x2fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix3x2fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix2x4fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix2x4fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix4x2fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix4x2fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix3x4fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix3x4fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) UniformMatrix4x3fv(loc driver.UniformLocation, count int32, v []float32) {
	if len(v) > 0 {
		gl.UniformMatrix4x3fv(int32(loc), count, false, &v[0])
	}
}

func (d *Device) Draw(polygon metadata.PolygonType, first, count, instances uint32) {
	gl.DrawArraysInstanced(topology(polygon), int32(first), int32(count), int32(instances))
}

func (d *Device) DrawIndexed(polygon metadata.PolygonType, format metadata.IndexFormat, first, count, instances uint32) {
	offset := int(first) * int(format.Size())
	gl.DrawElementsInstanced(topology(polygon), int32(count), indexType(format), gl.PtrOffset(offset), int32(instances))
}
