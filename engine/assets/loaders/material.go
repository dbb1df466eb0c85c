package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief Contents of a .amt material descriptor. Values are keyed by the
 * uniform name of the material's shader.
 */
type MaterialConfig struct {
	Name     string               `toml:"name"`
	Shader   string               `toml:"shader"`
	Floats   map[string][]float32 `toml:"floats"`
	Ints     map[string][]int32   `toml:"ints"`
	UInts    map[string][]uint32  `toml:"uints"`
	Bools    map[string][]bool    `toml:"bools"`
	Textures map[string]string    `toml:"textures"`
}

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string) (*Resource, error) {
	mCfg, err := parseAMTFile(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     mCfg.Name,
		FullPath: path,
		Type:     ResourceTypeMaterial,
		Data:     mCfg,
	}, nil
}

func parseAMTFile(filename string) (*MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	materialConfig := &MaterialConfig{}
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(materialConfig); err != nil {
		err = fmt.Errorf("failed to parse material %s: %w", filename, err)
		core.LogError("%s", err)
		return nil, err
	}
	if materialConfig.Name == "" {
		materialConfig.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if err := validateMaterial(materialConfig); err != nil {
		err = fmt.Errorf("material %s: %w", filename, err)
		core.LogError("%s", err)
		return nil, err
	}
	return materialConfig, nil
}

// validateMaterial rejects a uniform assigned by two tables.
func validateMaterial(cfg *MaterialConfig) error {
	if cfg.Shader == "" {
		return fmt.Errorf("no shader named: %w", core.ErrInvalidArgument)
	}
	seen := make(map[string]struct{})
	mark := func(name string) error {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("uniform `%s` assigned twice: %w", name, core.ErrInvalidArgument)
		}
		seen[name] = struct{}{}
		return nil
	}
	for name := range cfg.Floats {
		if err := mark(name); err != nil {
			return err
		}
	}
	for name := range cfg.Ints {
		if err := mark(name); err != nil {
			return err
		}
	}
	for name := range cfg.UInts {
		if err := mark(name); err != nil {
			return err
		}
	}
	for name := range cfg.Bools {
		if err := mark(name); err != nil {
			return err
		}
	}
	for name := range cfg.Textures {
		if err := mark(name); err != nil {
			return err
		}
	}
	return nil
}
