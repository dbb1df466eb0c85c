// Package opengl implements the graphics device on OpenGL 4.1 core. The
// device must be opened, used and released on the thread that owns the
// current GL context.
package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const DriverName = "opengl"

// GL_TEXTURE_MAX_ANISOTROPY, core in 4.6 and an extension before.
const textureMaxAnisotropy = 0x84FE

func init() {
	driver.Register(DriverName, func() (driver.Device, error) {
		return New()
	})
}

type buffer struct {
	target uint32
	size   uint64
}

type texture struct {
	target uint32
	desc   driver.TextureDesc
	format pixelFormat
}

type Device struct {
	vao uint32

	buffers  map[driver.Buffer]buffer
	textures map[driver.Texture]texture

	// vertex attribute locations enabled by the current draw
	enabled []uint32
}

// New loads the GL entry points of the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		err = fmt.Errorf("failed to initialize OpenGL: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	core.LogInfo("OpenGL %s, GLSL %s, %s",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
		gl.GoStr(gl.GetString(gl.RENDERER)))

	d := &Device{
		buffers:  make(map[driver.Buffer]buffer),
		textures: make(map[driver.Texture]texture),
	}
	// core profile draws need a bound vertex array object
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	return d, nil
}

func (d *Device) Name() string {
	return DriverName
}

// checkError drains the GL error queue.
func checkError(op string) error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("%#x", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("%s: gl error %s", op, strings.Join(codes, ", "))
}

func (d *Device) Release() {
	if d.vao != 0 {
		gl.BindVertexArray(0)
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
	if n := len(d.buffers) + len(d.textures); n > 0 {
		core.LogWarn("OpenGL device released with %d live buffers and textures", n)
	}
}

func (d *Device) CreateBuffer(kind driver.BufferKind, size uint64, usage metadata.Usage, data []byte) (driver.Buffer, error) {
	b := buffer{target: bufferTarget(kind), size: size}
	var name uint32
	gl.GenBuffers(1, &name)
	gl.BindBuffer(b.target, name)
	if uint64(len(data)) >= size && size > 0 {
		gl.BufferData(b.target, int(size), gl.Ptr(data), bufferUsage(usage))
	} else {
		gl.BufferData(b.target, int(size), nil, bufferUsage(usage))
		if len(data) > 0 {
			gl.BufferSubData(b.target, 0, len(data), gl.Ptr(data))
		}
	}
	if err := checkError("create buffer"); err != nil {
		gl.DeleteBuffers(1, &name)
		return 0, err
	}
	d.buffers[driver.Buffer(name)] = b
	return driver.Buffer(name), nil
}

func (d *Device) UpdateBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("buffer %d: %w", buf, core.ErrUndefinedResource)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("update [%d,%d) of buffer %d sized %d: %w", offset, offset+uint64(len(data)), buf, b.size, core.ErrOutOfBounds)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(b.target, uint32(buf))
	gl.BufferSubData(b.target, int(offset), len(data), gl.Ptr(data))
	return checkError("update buffer")
}

func (d *Device) ReadBuffer(buf driver.Buffer, offset uint64, dst []byte) error {
	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("buffer %d: %w", buf, core.ErrUndefinedResource)
	}
	if offset+uint64(len(dst)) > b.size {
		return fmt.Errorf("read [%d,%d) of buffer %d sized %d: %w", offset, offset+uint64(len(dst)), buf, b.size, core.ErrOutOfBounds)
	}
	if len(dst) == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_READ_BUFFER, uint32(buf))
	gl.GetBufferSubData(gl.COPY_READ_BUFFER, int(offset), len(dst), gl.Ptr(dst))
	return checkError("read buffer")
}

func (d *Device) DeleteBuffer(buf driver.Buffer) {
	name := uint32(buf)
	gl.DeleteBuffers(1, &name)
	delete(d.buffers, buf)
}
