package engine

import (
	"errors"
	"io/fs"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
)

type ApplicationConfig struct {
	// Optional TOML file layered over the defaults.
	Path   string
	Config *config.Config
}

// NewApplicationConfig loads path, falling back to the defaults when the
// file does not exist.
func NewApplicationConfig(path string) (*ApplicationConfig, error) {
	if path == "" {
		return &ApplicationConfig{Config: config.Default()}, nil
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", path)
		return &ApplicationConfig{Path: path, Config: config.Default()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ApplicationConfig{Path: path, Config: cfg}, nil
}
