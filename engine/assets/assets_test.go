package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const texturedShader = `
name = "textured"
vertex = "textured.vert"
pixel = "textured.frag"
attributes = ["position", "uv"]
system_uniforms = ["_ModelViewProjectionMatrix"]

[[uniforms]]
name = "Tint"
type = "f32"
width = 4

[[uniforms]]
name = "Albedo"
type = "texture"
`

const crateMaterial = `
shader = "textured"

[floats]
Tint = [1.0, 0.5, 0.25, 1.0]

[textures]
Albedo = "checker.png"
`

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// newAssetDir lays out shaders/, textures/ and materials/ under a temp root.
func newAssetDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "shaders", "textured.shadercfg"), texturedShader)
	write(t, filepath.Join(root, "shaders", "textured.vert"), "void main() {}")
	write(t, filepath.Join(root, "shaders", "textured.frag"), "void main() {}")
	write(t, filepath.Join(root, "materials", "crate.amt"), crateMaterial)
	write(t, filepath.Join(root, "notes.txt"), "ignored")
	writePNG(t, filepath.Join(root, "textures", "checker.png"), 2)
	return root
}

func newManager(t *testing.T, root string, hotReload bool) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root, hotReload))
	return am
}

func TestFind(t *testing.T) {
	am := newManager(t, newAssetDir(t), false)
	defer am.Shutdown()

	info, err := am.Find("textured", loaders.ResourceTypeShader)
	require.NoError(t, err)
	assert.Equal(t, "shaders/textured.shadercfg", info.Rel)

	for _, name := range []string{"checker", "checker.png", "textures/checker.png"} {
		_, err = am.Find(name, loaders.ResourceTypeImage)
		assert.NoError(t, err, name)
	}

	_, err = am.Find("textured", loaders.ResourceTypeMaterial)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = am.Find("notes", loaders.ResourceTypeNone)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestLoadMaterial(t *testing.T) {
	am := newManager(t, newAssetDir(t), false)
	defer am.Shutdown()

	material, err := am.LoadMaterial("crate")
	require.NoError(t, err)
	assert.Equal(t, "crate", material.Name())
	assert.Equal(t, "textured", material.Shader().Name())

	id, err := material.ResolveUniform("Tint")
	require.NoError(t, err)
	tint, err := material.UniformF32(id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.5, 0.25, 1}, tint)

	id, err = material.ResolveUniform("Albedo")
	require.NoError(t, err)
	binding, err := material.UniformTexture(id, 0)
	require.NoError(t, err)
	require.NotNil(t, binding.Texture)
	assert.Equal(t, uint32(2), binding.Texture.Width())
	assert.Equal(t, metadata.PixelFormatRGBA8, binding.Texture.Format())
	assert.True(t, binding.Texture.FullMipChain())
	assert.NotNil(t, binding.ResolvedSampler())

	again, err := am.LoadMaterial("crate")
	require.NoError(t, err)
	assert.Same(t, material, again)

	shader, err := am.LoadShader("textured")
	require.NoError(t, err)
	assert.Same(t, material.Shader(), shader)
}

func TestLoadMaterialValueCountMismatch(t *testing.T) {
	root := newAssetDir(t)
	write(t, filepath.Join(root, "materials", "short.amt"), "shader = \"textured\"\n[floats]\nTint = [1.0, 0.5]\n")
	am := newManager(t, root, false)
	defer am.Shutdown()

	_, err := am.LoadMaterial("short")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRegisterTexture(t *testing.T) {
	root := newAssetDir(t)
	write(t, filepath.Join(root, "materials", "generated.amt"), "shader = \"textured\"\n[textures]\nAlbedo = \"generated\"\n")
	am := newManager(t, root, false)

	texture := metadata.NewTexture2D("generated", 4, 4, metadata.PixelFormatRGBA8)
	require.NoError(t, am.RegisterTexture("generated", texture))
	assert.ErrorIs(t, am.RegisterTexture("generated", texture), core.ErrInvalidArgument)

	material, err := am.LoadMaterial("generated")
	require.NoError(t, err)
	id, _ := material.ResolveUniform("Albedo")
	binding, err := material.UniformTexture(id, 0)
	require.NoError(t, err)
	assert.Same(t, texture, binding.Texture)

	am.Shutdown()
	assert.Equal(t, int32(1), texture.RefCount())
	texture.Release()
}

func TestPollReloadsShaderSource(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, false)
	defer am.Shutdown()

	shader, err := am.LoadShader("textured")
	require.NoError(t, err)
	shader.ClearDirty()
	assert.Nil(t, am.Poll())

	require.True(t, core.EventSystemInitialize())
	var events []*core.AssetEvent
	id := core.EventRegister(core.EVENT_CODE_ASSET_RELOADED, func(ctx core.EventContext) bool {
		events = append(events, ctx.Data.(*core.AssetEvent))
		return false
	})
	defer core.EventUnregister(core.EVENT_CODE_ASSET_RELOADED, id)

	vert := filepath.Join(root, "shaders", "textured.vert")
	write(t, vert, "void main() { gl_Position = vec4(0); }")
	am.handleEvent(fsnotify.Event{Name: vert, Op: fsnotify.Write})

	assert.Equal(t, []string{"textured"}, am.Poll())
	assert.Equal(t, "void main() { gl_Position = vec4(0); }", shader.Source(metadata.ShaderStageVertex))
	assert.Equal(t, "void main() {}", shader.Source(metadata.ShaderStagePixel))
	assert.True(t, shader.DirtyState())
	require.Len(t, events, 1)
	assert.Equal(t, "textured", events[0].Name)
	assert.Equal(t, vert, events[0].Path)

	// drained
	assert.Nil(t, am.Poll())
}

func TestPollReloadsShaderConfig(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, false)
	defer am.Shutdown()

	shader, err := am.LoadShader("textured")
	require.NoError(t, err)

	write(t, filepath.Join(root, "shaders", "other.frag"), "// other")
	cfg := filepath.Join(root, "shaders", "textured.shadercfg")
	write(t, cfg, `
name = "textured"
vertex = "textured.vert"
pixel = "other.frag"
attributes = ["position", "uv"]
system_uniforms = ["_ModelViewProjectionMatrix"]

[[uniforms]]
name = "Tint"
type = "f32"
width = 4

[[uniforms]]
name = "Albedo"
type = "texture"
`)
	am.handleEvent(fsnotify.Event{Name: cfg, Op: fsnotify.Write})
	assert.Equal(t, []string{"textured"}, am.Poll())
	assert.Equal(t, "// other", shader.Source(metadata.ShaderStagePixel))

	// the new pixel source is now tracked
	other := filepath.Join(root, "shaders", "other.frag")
	write(t, other, "// changed")
	am.handleEvent(fsnotify.Event{Name: other, Op: fsnotify.Write})
	assert.Equal(t, []string{"textured"}, am.Poll())
	assert.Equal(t, "// changed", shader.Source(metadata.ShaderStagePixel))
}

func TestPollReloadsTexture(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, false)
	defer am.Shutdown()

	texture, err := am.LoadTexture("checker.png")
	require.NoError(t, err)
	generation := texture.StorageGeneration()

	path := filepath.Join(root, "textures", "checker.png")
	writePNG(t, path, 4)
	am.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})

	assert.Equal(t, []string{"checker.png"}, am.Poll())
	assert.Equal(t, uint32(4), texture.Width())
	assert.Equal(t, uint32(3), texture.MipLevels())
	assert.NotEqual(t, generation, texture.StorageGeneration())
}

func TestPollIgnoresUnloadedAssets(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, false)
	defer am.Shutdown()

	vert := filepath.Join(root, "shaders", "textured.vert")
	am.handleEvent(fsnotify.Event{Name: vert, Op: fsnotify.Write})
	assert.Empty(t, am.Poll())
}

func TestRemovedAssetLeavesIndex(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, false)
	defer am.Shutdown()

	path := filepath.Join(root, "materials", "crate.amt")
	require.NoError(t, os.Remove(path))
	am.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})

	_, err := am.LoadMaterial("crate")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestShutdownReleasesAssets(t *testing.T) {
	am := newManager(t, newAssetDir(t), false)

	material, err := am.LoadMaterial("crate")
	require.NoError(t, err)
	shader := material.Shader()
	texture, err := am.LoadTexture("checker.png")
	require.NoError(t, err)

	am.Shutdown()
	assert.True(t, material.IsReleased())
	assert.True(t, shader.IsReleased())
	assert.True(t, texture.IsReleased())
}

func TestShutdownWithoutInitialize(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	am.Shutdown()
}

func TestWatcherQueuesChanges(t *testing.T) {
	root := newAssetDir(t)
	am := newManager(t, root, true)
	defer am.Shutdown()

	shader, err := am.LoadShader("textured")
	require.NoError(t, err)

	frag := filepath.Join(root, "shaders", "textured.frag")
	write(t, frag, "// hot")

	require.Eventually(t, func() bool {
		am.Poll()
		return shader.Source(metadata.ShaderStagePixel) == "// hot"
	}, 5*time.Second, 20*time.Millisecond)

	// files in directories created after start are indexed too
	write(t, filepath.Join(root, "extra", "late.amt"), crateMaterial)
	require.Eventually(t, func() bool {
		_, err := am.Find("late", loaders.ResourceTypeMaterial)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLoadTexturesDecodesInParallel(t *testing.T) {
	root := newAssetDir(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		writePNG(t, filepath.Join(root, "textures", name+".png"), 4)
	}
	am := newManager(t, root, false)
	defer am.Shutdown()

	cached, err := am.LoadTexture("checker")
	require.NoError(t, err)

	textures, err := am.LoadTextures("a", "b", "checker", "c", "d", "a")
	require.NoError(t, err)
	require.Len(t, textures, 6)
	assert.Same(t, cached, textures[2])
	assert.Same(t, textures[0], textures[5])
	for _, tex := range textures {
		assert.True(t, tex.IsDefined())
	}
	assert.Equal(t, uint32(4), textures[1].Width())

	_, err = am.LoadTextures("a", "missing")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}
