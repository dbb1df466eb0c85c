package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type pixelFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var pixelFormats = map[metadata.PixelFormat]pixelFormat{
	metadata.PixelFormatR8:              {gl.R8, gl.RED, gl.UNSIGNED_BYTE},
	metadata.PixelFormatRG8:             {gl.RG8, gl.RG, gl.UNSIGNED_BYTE},
	metadata.PixelFormatRGBA8:           {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	metadata.PixelFormatRGBA8SRGB:       {gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE},
	metadata.PixelFormatBGRA8:           {gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE},
	metadata.PixelFormatR16F:            {gl.R16F, gl.RED, gl.HALF_FLOAT},
	metadata.PixelFormatRG16F:           {gl.RG16F, gl.RG, gl.HALF_FLOAT},
	metadata.PixelFormatRGBA16F:         {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT},
	metadata.PixelFormatR32F:            {gl.R32F, gl.RED, gl.FLOAT},
	metadata.PixelFormatRG32F:           {gl.RG32F, gl.RG, gl.FLOAT},
	metadata.PixelFormatRGBA32F:         {gl.RGBA32F, gl.RGBA, gl.FLOAT},
	metadata.PixelFormatR32UI:           {gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT},
	metadata.PixelFormatDepth16:         {gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT},
	metadata.PixelFormatDepth24Stencil8: {gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8},
	metadata.PixelFormatDepth32F:        {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT},
}

type vertexFormat struct {
	xtype      uint32
	normalized bool
}

var vertexFormats = map[metadata.VertexFormat]vertexFormat{
	metadata.VertexFormatF32x1:     {gl.FLOAT, false},
	metadata.VertexFormatF32x2:     {gl.FLOAT, false},
	metadata.VertexFormatF32x3:     {gl.FLOAT, false},
	metadata.VertexFormatF32x4:     {gl.FLOAT, false},
	metadata.VertexFormatI32x1:     {gl.INT, false},
	metadata.VertexFormatI32x2:     {gl.INT, false},
	metadata.VertexFormatI32x3:     {gl.INT, false},
	metadata.VertexFormatI32x4:     {gl.INT, false},
	metadata.VertexFormatUI32x1:    {gl.UNSIGNED_INT, false},
	metadata.VertexFormatUI32x2:    {gl.UNSIGNED_INT, false},
	metadata.VertexFormatUI32x3:    {gl.UNSIGNED_INT, false},
	metadata.VertexFormatUI32x4:    {gl.UNSIGNED_INT, false},
	metadata.VertexFormatU8x4Norm:  {gl.UNSIGNED_BYTE, true},
	metadata.VertexFormatI16x2Norm: {gl.SHORT, true},
	metadata.VertexFormatI16x4Norm: {gl.SHORT, true},
}

func bufferTarget(kind driver.BufferKind) uint32 {
	if kind == driver.BufferKindIndex {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func bufferUsage(usage metadata.Usage) uint32 {
	switch usage {
	case metadata.UsageDynamic:
		return gl.DYNAMIC_DRAW
	case metadata.UsageStream:
		return gl.STREAM_READ
	}
	return gl.STATIC_DRAW
}

func topology(p metadata.PolygonType) uint32 {
	switch p {
	case metadata.PolygonTypeLine:
		return gl.LINES
	case metadata.PolygonTypePoint:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

func indexType(f metadata.IndexFormat) uint32 {
	if f == metadata.IndexFormatU16 {
		return gl.UNSIGNED_SHORT
	}
	return gl.UNSIGNED_INT
}

func compareFunc(f metadata.CompareFunc) uint32 {
	switch f {
	case metadata.CompareNever:
		return gl.NEVER
	case metadata.CompareLess:
		return gl.LESS
	case metadata.CompareEqual:
		return gl.EQUAL
	case metadata.CompareLessEqual:
		return gl.LEQUAL
	case metadata.CompareGreater:
		return gl.GREATER
	case metadata.CompareNotEqual:
		return gl.NOTEQUAL
	case metadata.CompareGreaterEqual:
		return gl.GEQUAL
	}
	return gl.ALWAYS
}

func blendFactor(f metadata.BlendFactor) uint32 {
	switch f {
	case metadata.BlendFactorZero:
		return gl.ZERO
	case metadata.BlendFactorSrcColor:
		return gl.SRC_COLOR
	case metadata.BlendFactorOneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	case metadata.BlendFactorDstColor:
		return gl.DST_COLOR
	case metadata.BlendFactorOneMinusDstColor:
		return gl.ONE_MINUS_DST_COLOR
	case metadata.BlendFactorSrcAlpha:
		return gl.SRC_ALPHA
	case metadata.BlendFactorOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case metadata.BlendFactorDstAlpha:
		return gl.DST_ALPHA
	case metadata.BlendFactorOneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	}
	return gl.ONE
}

func blendOp(op metadata.BlendOp) uint32 {
	switch op {
	case metadata.BlendOpSubtract:
		return gl.FUNC_SUBTRACT
	case metadata.BlendOpReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case metadata.BlendOpMin:
		return gl.MIN
	case metadata.BlendOpMax:
		return gl.MAX
	}
	return gl.FUNC_ADD
}

func minFilter(f metadata.FilterMode, mip metadata.MipFilterMode) int32 {
	switch {
	case mip == metadata.MipFilterNone && f == metadata.FilterNearest:
		return gl.NEAREST
	case mip == metadata.MipFilterNone:
		return gl.LINEAR
	case mip == metadata.MipFilterNearest && f == metadata.FilterNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case mip == metadata.MipFilterNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	case f == metadata.FilterNearest:
		return gl.NEAREST_MIPMAP_LINEAR
	}
	return gl.LINEAR_MIPMAP_LINEAR
}

func magFilter(f metadata.FilterMode) int32 {
	if f == metadata.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func addressMode(m metadata.AddressMode) int32 {
	switch m {
	case metadata.AddressMirroredRepeat:
		return gl.MIRRORED_REPEAT
	case metadata.AddressClampToEdge:
		return gl.CLAMP_TO_EDGE
	case metadata.AddressClampToBorder:
		return gl.CLAMP_TO_BORDER
	}
	return gl.REPEAT
}
