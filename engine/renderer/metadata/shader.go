package metadata

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief The scalar type of a uniform. Texture uniforms are sampler bindings.
 */
type UniformType uint8

const (
	UniformTypeTexture UniformType = iota
	UniformTypeF32
	UniformTypeI32
	UniformTypeUI32
	UniformTypeBool
)

func (t UniformType) String() string {
	switch t {
	case UniformTypeTexture:
		return "Texture"
	case UniformTypeF32:
		return "F32"
	case UniformTypeI32:
		return "I32"
	case UniformTypeUI32:
		return "UI32"
	case UniformTypeBool:
		return "Bool"
	}
	return fmt.Sprintf("UniformType(%d)", uint8(t))
}

/**
 * @brief A uniform declaration. Width is the number of columns and Height the
 * number of rows of one element, so a vec4 is 4x1 and a mat3 is 3x3.
 */
type Uniform struct {
	Name   string
	Width  uint8
	Height uint8
	/** @brief Number of array elements, at least 1. */
	Count uint32
	Type  UniformType
}

// Components returns the number of scalars in one element.
func (u Uniform) Components() uint32 {
	return uint32(u.Width) * uint32(u.Height)
}

// ByteSize is the packed size of the whole uniform; every scalar takes 4
// bytes. Texture uniforms have no packed data.
func (u Uniform) ByteSize() uint32 {
	if u.Type == UniformTypeTexture {
		return 0
	}
	return u.Components() * u.Count * 4
}

func (u Uniform) IsMatrix() bool {
	return u.Height > 1
}

func (u Uniform) sameShape(other Uniform) bool {
	return u.Type == other.Type && u.Width == other.Width && u.Height == other.Height
}

func (u Uniform) String() string {
	return fmt.Sprintf("%s{%s,%dx%d,%d}", u.Name, u.Type, u.Width, u.Height, u.Count)
}

// Validate checks the shape and type rules of a single declaration.
func (u Uniform) Validate() error {
	switch {
	case u.Name == "":
		return fmt.Errorf("uniform with empty name: %w", core.ErrInvalidUniform)
	case u.Type > UniformTypeBool:
		return fmt.Errorf("uniform `%s` has unknown type %d: %w", u.Name, u.Type, core.ErrInvalidUniform)
	case u.Width < 1 || u.Width > 4:
		return fmt.Errorf("uniform `%s` width %d not in [1,4]: %w", u.Name, u.Width, core.ErrInvalidUniform)
	case u.Height < 1 || u.Height > 4:
		return fmt.Errorf("uniform `%s` height %d not in [1,4]: %w", u.Name, u.Height, core.ErrInvalidUniform)
	case u.Count == 0:
		return fmt.Errorf("uniform `%s` has zero elements: %w", u.Name, core.ErrInvalidUniform)
	case u.Height > 1 && u.Width < 2:
		return fmt.Errorf("uniform `%s` is a %dx%d column vector: %w", u.Name, u.Width, u.Height, core.ErrInvalidUniform)
	case u.Type == UniformTypeTexture && (u.Width != 1 || u.Height != 1):
		return fmt.Errorf("texture uniform `%s` must be 1x1, got %dx%d: %w", u.Name, u.Width, u.Height, core.ErrInvalidUniform)
	}
	return nil
}

/**
 * @brief Engine supplied uniforms.
 */
type SystemUniform uint8

const (
	SystemUniformModel SystemUniform = iota
	SystemUniformView
	SystemUniformProjection
	SystemUniformViewProjection
	SystemUniformModelViewProjection
	SystemUniformCameraPosition
	SystemUniformCameraForward
	SystemUniformCameraRight
	SystemUniformCameraUp
	SystemUniformTime
	SystemUniformMax
)

type systemUniformEntry struct {
	kind     SystemUniform
	expected Uniform
}

var systemUniformTable = []systemUniformEntry{
	{SystemUniformModel, Uniform{Name: "_ModelMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}},
	{SystemUniformView, Uniform{Name: "_ViewMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}},
	{SystemUniformProjection, Uniform{Name: "_ProjectionMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}},
	{SystemUniformViewProjection, Uniform{Name: "_ViewProjectionMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}},
	{SystemUniformModelViewProjection, Uniform{Name: "_ModelViewProjectionMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}},
	{SystemUniformCameraPosition, Uniform{Name: "_CameraPosition", Width: 3, Height: 1, Count: 1, Type: UniformTypeF32}},
	{SystemUniformCameraForward, Uniform{Name: "_CameraForward", Width: 3, Height: 1, Count: 1, Type: UniformTypeF32}},
	{SystemUniformCameraRight, Uniform{Name: "_CameraRight", Width: 3, Height: 1, Count: 1, Type: UniformTypeF32}},
	{SystemUniformCameraUp, Uniform{Name: "_CameraUp", Width: 3, Height: 1, Count: 1, Type: UniformTypeF32}},
	{SystemUniformTime, Uniform{Name: "_Time", Width: 1, Height: 1, Count: 1, Type: UniformTypeF32}},
}

// LookupSystemUniform finds a system uniform by its reserved name.
func LookupSystemUniform(name string) (SystemUniform, Uniform, bool) {
	for _, e := range systemUniformTable {
		if e.expected.Name == name {
			return e.kind, e.expected, true
		}
	}
	return SystemUniformMax, Uniform{}, false
}

// ExpectedSystemUniform returns the declaration the engine supplies for kind.
func ExpectedSystemUniform(kind SystemUniform) Uniform {
	if int(kind) >= len(systemUniformTable) {
		core.LogFatal("unknown system uniform %d", kind)
	}
	return systemUniformTable[kind].expected
}

func (s SystemUniform) String() string {
	if int(s) < len(systemUniformTable) {
		return systemUniformTable[s].expected.Name
	}
	return fmt.Sprintf("SystemUniform(%d)", uint8(s))
}

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStagePixel
	ShaderStageMax
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStagePixel:
		return "pixel"
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

/**
 * @brief Configuration of a shader. Uniforms are supplied by materials,
 * SystemUniforms by the engine.
 */
type ShaderConfig struct {
	Name           string
	VertexSource   string
	PixelSource    string
	Uniforms       []Uniform
	SystemUniforms []Uniform
	Attributes     []string
}

/**
 * @brief Represents a GPU program on the frontend. The metadata is fixed at
 * creation; only the stage sources can be replaced.
 */
type Shader struct {
	FrontendData

	name           string
	sources        [ShaderStageMax]string
	uniforms       []Uniform
	uniformLookup  map[string]int
	systemUniforms []SystemUniform
	systemMask     uint32
	attributes     []string
}

// NewShader validates cfg and creates the shader. No shader is returned
// when any declaration is malformed.
func NewShader(cfg ShaderConfig) (*Shader, error) {
	s, err := newShader(cfg)
	if err != nil {
		err = fmt.Errorf("failed to create shader `%s`: %w", cfg.Name, err)
		core.LogError("%s", err)
		return nil, err
	}
	return s, nil
}

func newShader(cfg ShaderConfig) (*Shader, error) {
	names := make(map[string]struct{}, len(cfg.Uniforms)+len(cfg.SystemUniforms))

	for _, u := range cfg.Uniforms {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, dup := names[u.Name]; dup {
			return nil, fmt.Errorf("uniform `%s` declared twice: %w", u.Name, core.ErrInvalidShader)
		}
		names[u.Name] = struct{}{}
	}
	for _, u := range cfg.SystemUniforms {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, dup := names[u.Name]; dup {
			return nil, fmt.Errorf("uniform `%s` declared twice: %w", u.Name, core.ErrInvalidShader)
		}
		names[u.Name] = struct{}{}
	}

	// user uniforms must not shadow engine supplied ones
	for _, u := range cfg.Uniforms {
		if _, _, reserved := LookupSystemUniform(u.Name); reserved {
			return nil, fmt.Errorf("uniform `%s` uses a reserved system name: %w", u.Name, core.ErrInvalidShader)
		}
	}

	s := &Shader{
		FrontendData:  newFrontendData(),
		name:          cfg.Name,
		uniforms:      append([]Uniform(nil), cfg.Uniforms...),
		uniformLookup: make(map[string]int, len(cfg.Uniforms)),
		attributes:    append([]string(nil), cfg.Attributes...),
	}
	s.sources[ShaderStageVertex] = cfg.VertexSource
	s.sources[ShaderStagePixel] = cfg.PixelSource
	for i, u := range s.uniforms {
		s.uniformLookup[u.Name] = i
	}

	for _, u := range cfg.SystemUniforms {
		kind, expected, ok := LookupSystemUniform(u.Name)
		if !ok {
			return nil, fmt.Errorf("`%s` is not a system uniform: %w", u.Name, core.ErrInvalidShader)
		}
		if !u.sameShape(expected) || u.Count != expected.Count {
			return nil, fmt.Errorf("system uniform %s does not match expected %s: %w", u, expected, core.ErrInvalidShader)
		}
		s.systemUniforms = append(s.systemUniforms, kind)
		s.systemMask |= 1 << kind
	}

	attrs := make(map[string]struct{}, len(s.attributes))
	for _, a := range s.attributes {
		if a == "" {
			return nil, fmt.Errorf("attribute with empty name: %w", core.ErrInvalidShader)
		}
		if _, dup := attrs[a]; dup {
			return nil, fmt.Errorf("attribute `%s` declared twice: %w", a, core.ErrInvalidShader)
		}
		attrs[a] = struct{}{}
	}
	return s, nil
}

func (s *Shader) Name() string {
	return s.name
}

func (s *Shader) Source(stage ShaderStage) string {
	if stage >= ShaderStageMax {
		return ""
	}
	return s.sources[stage]
}

// SetSource replaces the source of one stage. The metadata is unchanged, so
// the new source must declare the same uniforms and attributes.
func (s *Shader) SetSource(stage ShaderStage, source string) error {
	if stage >= ShaderStageMax {
		return fmt.Errorf("unknown shader stage %d: %w", stage, core.ErrInvalidArgument)
	}
	if s.sources[stage] == source {
		return nil
	}
	s.sources[stage] = source
	s.MarkDirty()
	return nil
}

// Uniforms returns the material supplied uniforms in declaration order.
func (s *Shader) Uniforms() []Uniform {
	return s.uniforms
}

func (s *Shader) UniformCount() int {
	return len(s.uniforms)
}

func (s *Shader) Uniform(id int) (Uniform, bool) {
	if id < 0 || id >= len(s.uniforms) {
		return Uniform{}, false
	}
	return s.uniforms[id], true
}

// UniformIndex resolves a material uniform by name.
func (s *Shader) UniformIndex(name string) (int, bool) {
	i, ok := s.uniformLookup[name]
	return i, ok
}

func (s *Shader) SystemUniforms() []SystemUniform {
	return s.systemUniforms
}

func (s *Shader) HasSystemUniform(kind SystemUniform) bool {
	return s.systemMask&(1<<kind) != 0
}

// Attributes returns the vertex input names in declaration order.
func (s *Shader) Attributes() []string {
	return s.attributes
}

func (s *Shader) Release() {
	s.release()
}
