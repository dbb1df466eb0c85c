// Package driver is the boundary between the backend and a native graphics
// API. Everything below it deals in plain object names; everything above it
// deals in frontend objects.
package driver

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Native object names. Zero is never a valid object.
type (
	Buffer      uint32
	Texture     uint32
	Sampler     uint32
	Program     uint32
	Framebuffer uint32
)

// Locations resolved from a linked program; negative means absent.
type (
	UniformLocation int32
	AttribLocation  int32
)

const InvalidLocation = -1

// DefaultFramebuffer is the window surface.
const DefaultFramebuffer Framebuffer = 0

type BufferKind uint8

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
	BufferKindStorage
)

type TextureDesc struct {
	Width     uint32
	Height    uint32
	Depth     uint32
	MipLevels uint32
	Format    metadata.PixelFormat
}

type FramebufferDesc struct {
	Color Texture
	// DepthStencil may be zero. DepthFormat tells depth-only from
	// depth-stencil attachments.
	DepthStencil Texture
	DepthFormat  metadata.PixelFormat
}

type RasterState struct {
	Fill      metadata.FillMode
	Cull      metadata.CullMode
	FrontFace metadata.FrontFace
}

type DepthState struct {
	Test  bool
	Write bool
	Func  metadata.CompareFunc
}

// Device issues native calls. It is used from the engine thread only.
type Device interface {
	Name() string

	CreateBuffer(kind BufferKind, size uint64, usage metadata.Usage, data []byte) (Buffer, error)
	UpdateBuffer(buf Buffer, offset uint64, data []byte) error
	ReadBuffer(buf Buffer, offset uint64, dst []byte) error
	DeleteBuffer(buf Buffer)

	CreateTexture(desc TextureDesc) (Texture, error)
	UpdateTexture(tex Texture, level uint32, region metadata.Region, format metadata.PixelFormat, pixels []byte) error
	GenerateMipmaps(tex Texture)
	DeleteTexture(tex Texture)

	CreateSampler(cfg metadata.SamplerConfig) (Sampler, error)
	DeleteSampler(s Sampler)

	// CreateProgram compiles and links both stages.
	CreateProgram(vertex, pixel string) (Program, error)
	UniformLocation(p Program, name string) UniformLocation
	AttribLocation(p Program, name string) AttribLocation
	DeleteProgram(p Program)

	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DeleteFramebuffer(fb Framebuffer)
	BindFramebuffer(fb Framebuffer, width, height uint32)
	Clear(flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32)

	UseProgram(p Program)
	SetRasterState(state RasterState)
	SetDepthState(state DepthState)
	SetBlendState(target int, desc metadata.BlendDesc)
	BindVertexAttribute(loc AttribLocation, buf Buffer, format metadata.VertexFormat, offset, stride, divisor uint32)
	ResetVertexAttributes()
	BindIndexBuffer(buf Buffer)
	BindTexture(unit uint32, tex Texture, s Sampler)

	Uniform1fv(loc UniformLocation, count int32, v []float32)
	Uniform2fv(loc UniformLocation, count int32, v []float32)
	Uniform3fv(loc UniformLocation, count int32, v []float32)
	Uniform4fv(loc UniformLocation, count int32, v []float32)
	Uniform1iv(loc UniformLocation, count int32, v []int32)
	Uniform2iv(loc UniformLocation, count int32, v []int32)
	Uniform3iv(loc UniformLocation, count int32, v []int32)
	Uniform4iv(loc UniformLocation, count int32, v []int32)
	Uniform1uiv(loc UniformLocation, count int32, v []uint32)
	Uniform2uiv(loc UniformLocation, count int32, v []uint32)
	Uniform3uiv(loc UniformLocation, count int32, v []uint32)
	Uniform4uiv(loc UniformLocation, count int32, v []uint32)
	// Matrix data is column major. MxN has M columns and N rows.
	UniformMatrix2fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix3fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix4fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix2x3fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix3x2fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix2x4fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix4x2fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix3x4fv(loc UniformLocation, count int32, v []float32)
	UniformMatrix4x3fv(loc UniformLocation, count int32, v []float32)

	Draw(topology metadata.PolygonType, first, count, instances uint32)
	DrawIndexed(topology metadata.PolygonType, format metadata.IndexFormat, first, count, instances uint32)

	// Release frees device level objects. Objects created through the device
	// must be deleted first.
	Release()
}
