package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
)

type Application struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting size, if applicable.
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
}

type Renderer struct {
	// Registered graphics driver, "opengl" or "headless".
	Driver string `toml:"driver"`
	VSync  bool   `toml:"vsync"`
	// Requests a debug context from the driver.
	Debug bool `toml:"debug"`
}

type Log struct {
	Level string `toml:"level"`
}

type Assets struct {
	Path string `toml:"path"`
	// Watches Path and reloads shaders when their files change.
	HotReload bool `toml:"hot_reload"`
}

type Config struct {
	Application Application `toml:"application"`
	Renderer    Renderer    `toml:"renderer"`
	Log         Log         `toml:"log"`
	Assets      Assets      `toml:"assets"`
}

func Default() *Config {
	return &Config{
		Application: Application{
			Name:        "Prism",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Renderer: Renderer{
			Driver: "opengl",
			VSync:  true,
		},
		Log: Log{
			Level: "info",
		},
		Assets: Assets{
			Path:      "assets",
			HotReload: true,
		},
	}
}

// Load reads path over the defaults. Keys the configuration does not know
// are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config `%s`: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}
	cfg := Default()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		err = fmt.Errorf("failed to parse config `%s`: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		err = fmt.Errorf("config `%s`: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return fmt.Errorf("window size %dx%d: %w", c.Application.StartWidth, c.Application.StartHeight, core.ErrInvalidArgument)
	}
	if c.Renderer.Driver == "" {
		return fmt.Errorf("renderer driver is empty: %w", core.ErrInvalidArgument)
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		err = fmt.Errorf("failed to write config `%s`: %w", path, err)
		core.LogError("%s", err)
		return err
	}
	return nil
}
