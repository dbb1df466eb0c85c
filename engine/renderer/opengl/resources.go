package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func (d *Device) CreateTexture(desc driver.TextureDesc) (driver.Texture, error) {
	format, ok := pixelFormats[desc.Format]
	if !ok {
		return 0, fmt.Errorf("pixel format %d: %w", desc.Format, core.ErrUnsupportedFormat)
	}
	t := texture{target: gl.TEXTURE_2D, desc: desc, format: format}
	if desc.Depth > 1 {
		t.target = gl.TEXTURE_3D
	}

	var name uint32
	gl.GenTextures(1, &name)
	gl.BindTexture(t.target, name)
	gl.TexParameteri(t.target, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(t.target, gl.TEXTURE_MAX_LEVEL, int32(desc.MipLevels)-1)
	for level := uint32(0); level < desc.MipLevels; level++ {
		w := int32(metadata.MipExtent(desc.Width, level))
		h := int32(metadata.MipExtent(desc.Height, level))
		if t.target == gl.TEXTURE_3D {
			z := int32(metadata.MipExtent(desc.Depth, level))
			gl.TexImage3D(t.target, int32(level), format.internal, w, h, z, 0, format.format, format.xtype, nil)
			continue
		}
		gl.TexImage2D(t.target, int32(level), format.internal, w, h, 0, format.format, format.xtype, nil)
	}
	if err := checkError("create texture"); err != nil {
		gl.DeleteTextures(1, &name)
		return 0, err
	}
	d.textures[driver.Texture(name)] = t
	return driver.Texture(name), nil
}

func (d *Device) UpdateTexture(tex driver.Texture, level uint32, region metadata.Region, format metadata.PixelFormat, pixels []byte) error {
	t, ok := d.textures[tex]
	if !ok || level >= t.desc.MipLevels {
		return fmt.Errorf("texture %d level %d: %w", tex, level, core.ErrUndefinedResource)
	}
	pf, ok := pixelFormats[format]
	if !ok {
		return fmt.Errorf("pixel format %d: %w", format, core.ErrUnsupportedFormat)
	}
	if len(pixels) == 0 {
		return nil
	}
	gl.BindTexture(t.target, uint32(tex))
	if t.target == gl.TEXTURE_3D {
		gl.TexSubImage3D(t.target, int32(level), int32(region.X), int32(region.Y), int32(region.Z),
			int32(region.Width), int32(region.Height), int32(region.Depth), pf.format, pf.xtype, gl.Ptr(pixels))
	} else {
		gl.TexSubImage2D(t.target, int32(level), int32(region.X), int32(region.Y),
			int32(region.Width), int32(region.Height), pf.format, pf.xtype, gl.Ptr(pixels))
	}
	return checkError("update texture")
}

func (d *Device) GenerateMipmaps(tex driver.Texture) {
	t, ok := d.textures[tex]
	if !ok {
		return
	}
	gl.BindTexture(t.target, uint32(tex))
	gl.GenerateMipmap(t.target)
}

func (d *Device) DeleteTexture(tex driver.Texture) {
	name := uint32(tex)
	gl.DeleteTextures(1, &name)
	delete(d.textures, tex)
}

func (d *Device) CreateSampler(cfg metadata.SamplerConfig) (driver.Sampler, error) {
	var name uint32
	gl.GenSamplers(1, &name)
	gl.SamplerParameteri(name, gl.TEXTURE_MIN_FILTER, minFilter(cfg.MinFilter, cfg.MipFilter))
	gl.SamplerParameteri(name, gl.TEXTURE_MAG_FILTER, magFilter(cfg.MagFilter))
	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_S, addressMode(cfg.AddressU))
	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_T, addressMode(cfg.AddressV))
	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_R, addressMode(cfg.AddressW))
	gl.SamplerParameterf(name, gl.TEXTURE_MIN_LOD, cfg.MinLOD)
	gl.SamplerParameterf(name, gl.TEXTURE_MAX_LOD, cfg.MaxLOD)
	border := [4]float32{cfg.BorderColor.X, cfg.BorderColor.Y, cfg.BorderColor.Z, cfg.BorderColor.W}
	gl.SamplerParameterfv(name, gl.TEXTURE_BORDER_COLOR, &border[0])
	if cfg.CompareEnabled {
		gl.SamplerParameteri(name, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.SamplerParameteri(name, gl.TEXTURE_COMPARE_FUNC, int32(compareFunc(cfg.Compare)))
	}
	if cfg.MaxAnisotropy > 1 {
		gl.SamplerParameterf(name, textureMaxAnisotropy, cfg.MaxAnisotropy)
		// drivers without the extension reject the parameter
		if err := checkError("sampler anisotropy"); err != nil {
			core.LogDebug("sampler `%s`: %s", cfg.Name, err)
		}
	}
	if err := checkError("create sampler"); err != nil {
		gl.DeleteSamplers(1, &name)
		return 0, err
	}
	return driver.Sampler(name), nil
}

func (d *Device) DeleteSampler(s driver.Sampler) {
	name := uint32(s)
	gl.DeleteSamplers(1, &name)
}

func compileStage(stage uint32, source string) (uint32, error) {
	shader := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(msg))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile: %s", strings.TrimRight(msg, "\x00"))
	}
	return shader, nil
}

func (d *Device) CreateProgram(vertex, pixel string) (driver.Program, error) {
	vs, err := compileStage(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return 0, fmt.Errorf("vertex stage: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileStage(gl.FRAGMENT_SHADER, pixel)
	if err != nil {
		return 0, fmt.Errorf("pixel stage: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link: %s", strings.TrimRight(msg, "\x00"))
	}
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	return driver.Program(program), nil
}

func (d *Device) UniformLocation(p driver.Program, name string) driver.UniformLocation {
	return driver.UniformLocation(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) AttribLocation(p driver.Program, name string) driver.AttribLocation {
	return driver.AttribLocation(gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) DeleteProgram(p driver.Program) {
	gl.DeleteProgram(uint32(p))
}

func (d *Device) attach(attachment uint32, tex driver.Texture) error {
	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("attachment texture %d: %w", tex, core.ErrUndefinedResource)
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, t.target, uint32(tex), 0)
	return nil
}

func (d *Device) CreateFramebuffer(desc driver.FramebufferDesc) (driver.Framebuffer, error) {
	var name uint32
	gl.GenFramebuffers(1, &name)
	gl.BindFramebuffer(gl.FRAMEBUFFER, name)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	fail := func(err error) (driver.Framebuffer, error) {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &name)
		return 0, err
	}

	if desc.Color != 0 {
		if err := d.attach(gl.COLOR_ATTACHMENT0, desc.Color); err != nil {
			return fail(err)
		}
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}
	if desc.DepthStencil != 0 {
		attachment := uint32(gl.DEPTH_ATTACHMENT)
		if desc.DepthFormat.HasStencil() {
			attachment = gl.DEPTH_STENCIL_ATTACHMENT
		}
		if err := d.attach(attachment, desc.DepthStencil); err != nil {
			return fail(err)
		}
	}
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fail(fmt.Errorf("framebuffer incomplete, status %#x", status))
	}
	return driver.Framebuffer(name), nil
}

func (d *Device) DeleteFramebuffer(fb driver.Framebuffer) {
	name := uint32(fb)
	gl.DeleteFramebuffers(1, &name)
}

func (d *Device) BindFramebuffer(fb driver.Framebuffer, width, height uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Clear opens the write masks it needs; the next draw applies the pipeline
// masks again.
func (d *Device) Clear(flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32) {
	var mask uint32
	if flags&metadata.ClearColor != 0 {
		gl.ColorMask(true, true, true, true)
		gl.ClearColor(color.X, color.Y, color.Z, color.W)
		mask |= gl.COLOR_BUFFER_BIT
	}
	if flags&metadata.ClearDepth != 0 {
		gl.DepthMask(true)
		gl.ClearDepth(float64(depth))
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if flags&metadata.ClearStencil != 0 {
		gl.StencilMask(0xFF)
		gl.ClearStencil(int32(stencil))
		mask |= gl.STENCIL_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}
