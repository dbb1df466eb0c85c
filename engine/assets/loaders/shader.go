package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type uniformFile struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Width  uint8  `toml:"width"`
	Height uint8  `toml:"height"`
	Count  uint32 `toml:"count"`
}

type shaderFile struct {
	Name           string        `toml:"name"`
	Vertex         string        `toml:"vertex"`
	Pixel          string        `toml:"pixel"`
	Attributes     []string      `toml:"attributes"`
	SystemUniforms []string      `toml:"system_uniforms"`
	Uniforms       []uniformFile `toml:"uniforms"`
}

/**
 * @brief A parsed .shadercfg with the stage sources already read.
 */
type ShaderResource struct {
	Config metadata.ShaderConfig
	// absolute paths of the stage sources, indexed by metadata.ShaderStage
	SourcePaths [metadata.ShaderStageMax]string
}

type ShaderLoader struct{}

// Load reads a .shadercfg. Stage paths are relative to the descriptor.
func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file shaderFile
	if err := toml.Unmarshal(data, &file); err != nil {
		err = fmt.Errorf("failed to parse shader config %s: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}
	if file.Name == "" {
		file.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	res := &ShaderResource{
		Config: metadata.ShaderConfig{
			Name:       file.Name,
			Attributes: file.Attributes,
		},
	}

	dir := filepath.Dir(path)
	stages := [metadata.ShaderStageMax]string{
		metadata.ShaderStageVertex: file.Vertex,
		metadata.ShaderStagePixel:  file.Pixel,
	}
	for stage, rel := range stages {
		if rel == "" {
			err := fmt.Errorf("shader %s has no %s stage: %w", file.Name, metadata.ShaderStage(stage), core.ErrInvalidShader)
			core.LogError("%s", err)
			return nil, err
		}
		res.SourcePaths[stage] = filepath.Join(dir, rel)
	}
	if res.Config.VertexSource, err = ReadShaderSource(res.SourcePaths[metadata.ShaderStageVertex]); err != nil {
		return nil, err
	}
	if res.Config.PixelSource, err = ReadShaderSource(res.SourcePaths[metadata.ShaderStagePixel]); err != nil {
		return nil, err
	}

	for _, u := range file.Uniforms {
		uniform, err := u.toUniform()
		if err != nil {
			err = fmt.Errorf("shader %s: %w", file.Name, err)
			core.LogError("%s", err)
			return nil, err
		}
		res.Config.Uniforms = append(res.Config.Uniforms, uniform)
	}
	for _, name := range file.SystemUniforms {
		_, expected, ok := metadata.LookupSystemUniform(name)
		if !ok {
			err := fmt.Errorf("shader %s: `%s` is not a system uniform: %w", file.Name, name, core.ErrInvalidShader)
			core.LogError("%s", err)
			return nil, err
		}
		res.Config.SystemUniforms = append(res.Config.SystemUniforms, expected)
	}

	return &Resource{
		Name:     file.Name,
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(res.Config.VertexSource) + len(res.Config.PixelSource)),
		Data:     res,
	}, nil
}

// ReadShaderSource reads one stage source file.
func ReadShaderSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read shader source %s: %w", path, err)
		core.LogError("%s", err)
		return "", err
	}
	return string(data), nil
}

var uniformTypes = map[string]metadata.UniformType{
	"texture": metadata.UniformTypeTexture,
	"f32":     metadata.UniformTypeF32,
	"float":   metadata.UniformTypeF32,
	"i32":     metadata.UniformTypeI32,
	"int":     metadata.UniformTypeI32,
	"ui32":    metadata.UniformTypeUI32,
	"uint":    metadata.UniformTypeUI32,
	"bool":    metadata.UniformTypeBool,
}

// toUniform fills in 1x1x1 for omitted dimensions.
func (u uniformFile) toUniform() (metadata.Uniform, error) {
	typ, ok := uniformTypes[strings.ToLower(u.Type)]
	if !ok {
		return metadata.Uniform{}, fmt.Errorf("uniform `%s` has unknown type %q: %w", u.Name, u.Type, core.ErrInvalidUniform)
	}
	uniform := metadata.Uniform{
		Name:   u.Name,
		Type:   typ,
		Width:  u.Width,
		Height: u.Height,
		Count:  u.Count,
	}
	if uniform.Width == 0 {
		uniform.Width = 1
	}
	if uniform.Height == 0 {
		uniform.Height = 1
	}
	if uniform.Count == 0 {
		uniform.Count = 1
	}
	return uniform, uniform.Validate()
}
