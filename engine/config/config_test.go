package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[application]
name = "sandbox"
start_width = 800

[renderer]
driver = "headless"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sandbox", cfg.Application.Name)
	assert.Equal(t, uint32(800), cfg.Application.StartWidth)
	assert.Equal(t, uint32(720), cfg.Application.StartHeight)
	assert.Equal(t, "headless", cfg.Renderer.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nbackend = \"vulkan\"\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte("[application]\nstart_height = 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prism.toml")
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Assets.HotReload = false
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
