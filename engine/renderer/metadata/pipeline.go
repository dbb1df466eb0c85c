package metadata

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

type PolygonType uint8

const (
	PolygonTypeTriangle PolygonType = iota
	PolygonTypeLine
	PolygonTypePoint
)

func (p PolygonType) String() string {
	switch p {
	case PolygonTypeTriangle:
		return "triangle"
	case PolygonTypeLine:
		return "line"
	case PolygonTypePoint:
		return "point"
	}
	return fmt.Sprintf("PolygonType(%d)", uint8(p))
}

// ValidCount reports whether count vertices form whole primitives.
func (p PolygonType) ValidCount(count uint32) bool {
	switch p {
	case PolygonTypeTriangle:
		return count%3 == 0
	case PolygonTypeLine:
		return count%2 == 0
	}
	return true
}

type FillMode uint8

const (
	FillModeSolid FillMode = iota
	FillModeWireframe
	FillModePoint
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
	CullModeFrontAndBack
)

type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type ColorWriteMask uint8

const (
	ColorWriteRed ColorWriteMask = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha
	ColorWriteAll = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

// MaxRenderTargets is the number of per target blend descriptors.
const MaxRenderTargets = 8

type BlendDesc struct {
	Enabled   bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	ColorOp   BlendOp
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	AlphaOp   BlendOp
	WriteMask ColorWriteMask
}

func DefaultBlendDesc() BlendDesc {
	return BlendDesc{
		SrcColor:  BlendFactorOne,
		DstColor:  BlendFactorZero,
		ColorOp:   BlendOpAdd,
		SrcAlpha:  BlendFactorOne,
		DstAlpha:  BlendFactorZero,
		AlphaOp:   BlendOpAdd,
		WriteMask: ColorWriteAll,
	}
}

// AlphaBlendDesc is straight alpha "source over" blending.
func AlphaBlendDesc() BlendDesc {
	return BlendDesc{
		Enabled:   true,
		SrcColor:  BlendFactorSrcAlpha,
		DstColor:  BlendFactorOneMinusSrcAlpha,
		ColorOp:   BlendOpAdd,
		SrcAlpha:  BlendFactorOne,
		DstAlpha:  BlendFactorOneMinusSrcAlpha,
		AlphaOp:   BlendOpAdd,
		WriteMask: ColorWriteAll,
	}
}

type VertexFormat uint8

const (
	VertexFormatUndefined VertexFormat = iota
	VertexFormatF32x1
	VertexFormatF32x2
	VertexFormatF32x3
	VertexFormatF32x4
	VertexFormatI32x1
	VertexFormatI32x2
	VertexFormatI32x3
	VertexFormatI32x4
	VertexFormatUI32x1
	VertexFormatUI32x2
	VertexFormatUI32x3
	VertexFormatUI32x4
	VertexFormatU8x4Norm
	VertexFormatI16x2Norm
	VertexFormatI16x4Norm
	vertexFormatMax
)

type vertexFormatInfo struct {
	name       string
	components uint32
	size       uint32
}

var vertexFormats = [vertexFormatMax]vertexFormatInfo{
	VertexFormatUndefined: {"undefined", 0, 0},
	VertexFormatF32x1:     {"f32x1", 1, 4},
	VertexFormatF32x2:     {"f32x2", 2, 8},
	VertexFormatF32x3:     {"f32x3", 3, 12},
	VertexFormatF32x4:     {"f32x4", 4, 16},
	VertexFormatI32x1:     {"i32x1", 1, 4},
	VertexFormatI32x2:     {"i32x2", 2, 8},
	VertexFormatI32x3:     {"i32x3", 3, 12},
	VertexFormatI32x4:     {"i32x4", 4, 16},
	VertexFormatUI32x1:    {"ui32x1", 1, 4},
	VertexFormatUI32x2:    {"ui32x2", 2, 8},
	VertexFormatUI32x3:    {"ui32x3", 3, 12},
	VertexFormatUI32x4:    {"ui32x4", 4, 16},
	VertexFormatU8x4Norm:  {"u8x4n", 4, 4},
	VertexFormatI16x2Norm: {"i16x2n", 2, 4},
	VertexFormatI16x4Norm: {"i16x4n", 4, 8},
}

func (f VertexFormat) IsValid() bool {
	return f > VertexFormatUndefined && f < vertexFormatMax
}

// Size is the byte size of one attribute value.
func (f VertexFormat) Size() uint32 {
	if f >= vertexFormatMax {
		return 0
	}
	return vertexFormats[f].size
}

func (f VertexFormat) Components() uint32 {
	if f >= vertexFormatMax {
		return 0
	}
	return vertexFormats[f].components
}

// IsInteger reports formats read as integers by the shader.
func (f VertexFormat) IsInteger() bool {
	return f >= VertexFormatI32x1 && f <= VertexFormatUI32x4
}

func (f VertexFormat) String() string {
	if f >= vertexFormatMax {
		return fmt.Sprintf("VertexFormat(%d)", uint8(f))
	}
	return vertexFormats[f].name
}

// AutoOffset asks for the attribute to follow the previous attribute of the
// same array.
const AutoOffset int32 = -1

// MaxVertexArrays is the number of vertex array binding slots.
const MaxVertexArrays = 8

type VertexAttribute struct {
	Name       string
	Format     VertexFormat
	ArrayIndex uint32
	Offset     int32
	// InstanceStep advances the attribute once every N instances; 0 is per
	// vertex.
	InstanceStep uint32
}

type PipelineConfig struct {
	Name       string
	Shader     *Shader
	Polygon    PolygonType
	Fill       FillMode
	Cull       CullMode
	FrontFace  FrontFace
	DepthFunc  CompareFunc
	DepthWrite bool
	DepthTest  bool
	Blend      [MaxRenderTargets]BlendDesc
	Layout     []VertexAttribute
}

// DefaultPipelineConfig is back face culled, depth tested triangles with
// blending off.
func DefaultPipelineConfig(shader *Shader, layout []VertexAttribute) PipelineConfig {
	cfg := PipelineConfig{
		Shader:     shader,
		Polygon:    PolygonTypeTriangle,
		Fill:       FillModeSolid,
		Cull:       CullModeBack,
		FrontFace:  FrontFaceCCW,
		DepthFunc:  CompareLess,
		DepthWrite: true,
		DepthTest:  true,
		Layout:     layout,
	}
	for i := range cfg.Blend {
		cfg.Blend[i] = DefaultBlendDesc()
	}
	return cfg
}

/**
 * @brief Fixed function state for a draw. Immutable once created; the
 * backend applies it on every draw.
 */
type PipelineState struct {
	name       string
	shader     *Shader
	polygon    PolygonType
	fill       FillMode
	cull       CullMode
	frontFace  FrontFace
	depthFunc  CompareFunc
	depthWrite bool
	depthTest  bool
	blend      [MaxRenderTargets]BlendDesc
	layout     []VertexAttribute
	lookup     map[string]int
	strides    [MaxVertexArrays]uint32
}

func NewPipelineState(cfg PipelineConfig) (*PipelineState, error) {
	p, err := newPipelineState(cfg)
	if err != nil {
		err = fmt.Errorf("failed to create pipeline `%s`: %w", cfg.Name, err)
		core.LogError("%s", err)
		return nil, err
	}
	return p, nil
}

func newPipelineState(cfg PipelineConfig) (*PipelineState, error) {
	if cfg.Shader == nil {
		return nil, fmt.Errorf("no shader: %w", core.ErrInvalidPipeline)
	}
	if cfg.Polygon > PolygonTypePoint || cfg.Fill > FillModePoint || cfg.Cull > CullModeFrontAndBack ||
		cfg.FrontFace > FrontFaceCW || cfg.DepthFunc > CompareAlways {
		return nil, fmt.Errorf("unknown fixed function mode: %w", core.ErrInvalidPipeline)
	}

	p := &PipelineState{
		name:       cfg.Name,
		shader:     cfg.Shader,
		polygon:    cfg.Polygon,
		fill:       cfg.Fill,
		cull:       cfg.Cull,
		frontFace:  cfg.FrontFace,
		depthFunc:  cfg.DepthFunc,
		depthWrite: cfg.DepthWrite,
		depthTest:  cfg.DepthTest,
		blend:      cfg.Blend,
		layout:     make([]VertexAttribute, len(cfg.Layout)),
		lookup:     make(map[string]int, len(cfg.Layout)),
	}

	// running byte offset per array
	var cursor [MaxVertexArrays]uint32
	for i, a := range cfg.Layout {
		switch {
		case a.Name == "":
			return nil, fmt.Errorf("attribute %d has no name: %w", i, core.ErrInvalidPipeline)
		case !a.Format.IsValid():
			return nil, fmt.Errorf("attribute `%s` has unknown format %s: %w", a.Name, a.Format, core.ErrInvalidPipeline)
		case a.ArrayIndex >= MaxVertexArrays:
			return nil, fmt.Errorf("attribute `%s` array index %d not in [0,%d): %w", a.Name, a.ArrayIndex, MaxVertexArrays, core.ErrInvalidPipeline)
		case a.Offset < AutoOffset:
			return nil, fmt.Errorf("attribute `%s` has negative offset %d: %w", a.Name, a.Offset, core.ErrInvalidPipeline)
		}
		if _, dup := p.lookup[a.Name]; dup {
			return nil, fmt.Errorf("attribute `%s` declared twice: %w", a.Name, core.ErrInvalidPipeline)
		}
		if a.Offset == AutoOffset {
			a.Offset = int32(cursor[a.ArrayIndex])
		}
		end := uint32(a.Offset) + a.Format.Size()
		cursor[a.ArrayIndex] = end
		if end > p.strides[a.ArrayIndex] {
			p.strides[a.ArrayIndex] = end
		}
		p.layout[i] = a
		p.lookup[a.Name] = i
	}

	for _, name := range cfg.Shader.Attributes() {
		if _, ok := p.lookup[name]; !ok {
			core.LogWarn("pipeline `%s`: shader `%s` attribute `%s` is missing from the layout, draws will fail", cfg.Name, cfg.Shader.Name(), name)
		}
	}
	cfg.Shader.Acquire()
	return p, nil
}

func (p *PipelineState) Name() string {
	return p.name
}

func (p *PipelineState) Shader() *Shader {
	return p.shader
}

func (p *PipelineState) Polygon() PolygonType {
	return p.polygon
}

func (p *PipelineState) Fill() FillMode {
	return p.fill
}

func (p *PipelineState) Cull() CullMode {
	return p.cull
}

func (p *PipelineState) FrontFace() FrontFace {
	return p.frontFace
}

func (p *PipelineState) DepthFunc() CompareFunc {
	return p.depthFunc
}

func (p *PipelineState) DepthWrite() bool {
	return p.depthWrite
}

func (p *PipelineState) DepthTest() bool {
	return p.depthTest
}

func (p *PipelineState) Blend(target int) (BlendDesc, error) {
	if target < 0 || target >= MaxRenderTargets {
		err := fmt.Errorf("pipeline `%s` blend target %d of %d: %w", p.name, target, MaxRenderTargets, core.ErrInvalidArgument)
		core.LogError("%s", err)
		return BlendDesc{}, err
	}
	return p.blend[target], nil
}

// Blends returns the blend state of every render target.
func (p *PipelineState) Blends() [MaxRenderTargets]BlendDesc {
	return p.blend
}

// Layout returns the attributes with auto offsets resolved.
func (p *PipelineState) Layout() []VertexAttribute {
	return p.layout
}

// Attribute finds a layout attribute by name.
func (p *PipelineState) Attribute(name string) (VertexAttribute, bool) {
	i, ok := p.lookup[name]
	if !ok {
		return VertexAttribute{}, false
	}
	return p.layout[i], true
}

// PackedStride is the tightest stride that holds every attribute of the
// array at index.
func (p *PipelineState) PackedStride(index uint32) uint32 {
	if index >= MaxVertexArrays {
		return 0
	}
	return p.strides[index]
}

func (p *PipelineState) Release() {
	if p.shader != nil {
		p.shader.Release()
		p.shader = nil
	}
}
