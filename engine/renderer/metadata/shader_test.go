package metadata

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShaderUniformRules(t *testing.T) {
	cases := []struct {
		name    string
		uniform Uniform
		err     error
	}{
		{"scalar", Uniform{Name: "a", Width: 1, Height: 1, Count: 1, Type: UniformTypeF32}, nil},
		{"vec4", Uniform{Name: "a", Width: 4, Height: 1, Count: 1, Type: UniformTypeF32}, nil},
		{"mat3x2", Uniform{Name: "a", Width: 3, Height: 2, Count: 1, Type: UniformTypeF32}, nil},
		{"mat4 array", Uniform{Name: "a", Width: 4, Height: 4, Count: 16, Type: UniformTypeF32}, nil},
		{"texture", Uniform{Name: "a", Width: 1, Height: 1, Count: 1, Type: UniformTypeTexture}, nil},
		{"bool vec2", Uniform{Name: "a", Width: 2, Height: 1, Count: 1, Type: UniformTypeBool}, nil},
		{"width zero", Uniform{Name: "a", Width: 0, Height: 1, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"width five", Uniform{Name: "a", Width: 5, Height: 1, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"height zero", Uniform{Name: "a", Width: 1, Height: 0, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"height five", Uniform{Name: "a", Width: 4, Height: 5, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"no elements", Uniform{Name: "a", Width: 1, Height: 1, Count: 0, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"column vector", Uniform{Name: "a", Width: 1, Height: 4, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
		{"texture vector", Uniform{Name: "a", Width: 2, Height: 1, Count: 1, Type: UniformTypeTexture}, core.ErrInvalidUniform},
		{"texture matrix", Uniform{Name: "a", Width: 2, Height: 2, Count: 1, Type: UniformTypeTexture}, core.ErrInvalidUniform},
		{"unknown type", Uniform{Name: "a", Width: 1, Height: 1, Count: 1, Type: UniformType(42)}, core.ErrInvalidUniform},
		{"empty name", Uniform{Width: 1, Height: 1, Count: 1, Type: UniformTypeF32}, core.ErrInvalidUniform},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewShader(ShaderConfig{Name: tc.name, Uniforms: []Uniform{tc.uniform}})
			if tc.err == nil {
				require.NoError(t, err)
				require.NotNil(t, s)
				assert.Equal(t, 1, s.UniformCount())
				return
			}
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, s)
		})
	}
}

func TestNewShaderSystemUniforms(t *testing.T) {
	vp := Uniform{Name: "_ViewProjectionMatrix", Width: 4, Height: 4, Count: 1, Type: UniformTypeF32}
	pos := Uniform{Name: "_CameraPosition", Width: 3, Height: 1, Count: 1, Type: UniformTypeF32}

	s, err := NewShader(ShaderConfig{Name: "ok", SystemUniforms: []Uniform{vp, pos}})
	require.NoError(t, err)
	assert.True(t, s.HasSystemUniform(SystemUniformViewProjection))
	assert.True(t, s.HasSystemUniform(SystemUniformCameraPosition))
	assert.False(t, s.HasSystemUniform(SystemUniformModel))
	assert.Equal(t, []SystemUniform{SystemUniformViewProjection, SystemUniformCameraPosition}, s.SystemUniforms())
	assert.Zero(t, s.UniformCount())

	bad := vp
	bad.Width, bad.Height = 3, 3
	_, err = NewShader(ShaderConfig{Name: "shape", SystemUniforms: []Uniform{bad}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	bad = vp
	bad.Type = UniformTypeI32
	_, err = NewShader(ShaderConfig{Name: "type", SystemUniforms: []Uniform{bad}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	_, err = NewShader(ShaderConfig{Name: "unknown", SystemUniforms: []Uniform{{Name: "_Nope", Width: 1, Height: 1, Count: 1, Type: UniformTypeF32}}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	// user uniforms may not take reserved names
	_, err = NewShader(ShaderConfig{Name: "reserved", Uniforms: []Uniform{vp}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)
}

func TestNewShaderDuplicates(t *testing.T) {
	u := Uniform{Name: "Color", Width: 4, Height: 1, Count: 1, Type: UniformTypeF32}
	_, err := NewShader(ShaderConfig{Name: "dup", Uniforms: []Uniform{u, u}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	_, err = NewShader(ShaderConfig{Name: "attr", Attributes: []string{"position", "position"}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)

	_, err = NewShader(ShaderConfig{Name: "attr", Attributes: []string{""}})
	assert.ErrorIs(t, err, core.ErrInvalidShader)
}

func TestShaderLookupAndSource(t *testing.T) {
	s, err := NewShader(ShaderConfig{
		Name:         "lookup",
		VertexSource: "vs",
		PixelSource:  "ps",
		Uniforms: []Uniform{
			{Name: "Color", Width: 4, Height: 1, Count: 1, Type: UniformTypeF32},
			{Name: "Albedo", Width: 1, Height: 1, Count: 1, Type: UniformTypeTexture},
		},
		Attributes: []string{"position", "uv"},
	})
	require.NoError(t, err)

	id, ok := s.UniformIndex("Albedo")
	assert.True(t, ok)
	assert.Equal(t, 1, id)
	_, ok = s.UniformIndex("Missing")
	assert.False(t, ok)
	_, ok = s.Uniform(2)
	assert.False(t, ok)
	assert.Equal(t, []string{"position", "uv"}, s.Attributes())

	s.ClearDirty()
	require.NoError(t, s.SetSource(ShaderStagePixel, "ps"))
	assert.False(t, s.DirtyState(), "same source does not dirty")
	require.NoError(t, s.SetSource(ShaderStagePixel, "ps2"))
	assert.True(t, s.DirtyState())
	assert.Equal(t, "ps2", s.Source(ShaderStagePixel))
	assert.ErrorIs(t, s.SetSource(ShaderStageMax, "x"), core.ErrInvalidArgument)
}

func TestUniformByteSize(t *testing.T) {
	assert.Equal(t, uint32(16), Uniform{Width: 4, Height: 1, Count: 1, Type: UniformTypeF32}.ByteSize())
	assert.Equal(t, uint32(128), Uniform{Width: 4, Height: 4, Count: 2, Type: UniformTypeF32}.ByteSize())
	assert.Equal(t, uint32(0), Uniform{Width: 1, Height: 1, Count: 4, Type: UniformTypeTexture}.ByteSize())
}
