package renderer

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/backend"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `
in vec3 position;
uniform mat4 _ModelViewProjectionMatrix;
uniform float _Time;
void main() { gl_Position = _ModelViewProjectionMatrix * vec4(position, _Time); }
`

const pixelSource = `
uniform vec4 Tint;
out vec4 frag;
void main() { frag = Tint; }
`

type scene struct {
	dev      *headless.Device
	renderer *Renderer
	pipeline *metadata.PipelineState
	material *metadata.Material
	vertices *metadata.RendererArray
}

func newScene(t *testing.T) *scene {
	t.Helper()
	shader, err := metadata.NewShader(metadata.ShaderConfig{
		Name:         "flat",
		VertexSource: vertexSource,
		PixelSource:  pixelSource,
		Uniforms: []metadata.Uniform{
			{Name: "Tint", Width: 4, Height: 1, Count: 1, Type: metadata.UniformTypeF32},
		},
		SystemUniforms: []metadata.Uniform{
			metadata.ExpectedSystemUniform(metadata.SystemUniformModelViewProjection),
			metadata.ExpectedSystemUniform(metadata.SystemUniformTime),
		},
		Attributes: []string{"position"},
	})
	require.NoError(t, err)
	pipeline, err := metadata.NewPipelineState(metadata.DefaultPipelineConfig(shader, []metadata.VertexAttribute{
		{Name: "position", Format: metadata.VertexFormatF32x3, Offset: metadata.AutoOffset},
	}))
	require.NoError(t, err)
	material, err := metadata.NewMaterial("flat", shader)
	require.NoError(t, err)

	dev := headless.New()
	return &scene{
		dev:      dev,
		renderer: New(backend.New(dev), &metadata.FixedSurface{W: 640, H: 480}),
		pipeline: pipeline,
		material: material,
		vertices: metadata.NewVertexArray(metadata.ArrayConfig{Name: "tri", Count: 6, Stride: 12}),
	}
}

func TestNewBackendFromRegistry(t *testing.T) {
	assert.Contains(t, driver.Available(), headless.DriverName)

	b, err := NewBackend(headless.DriverName)
	require.NoError(t, err)
	assert.Zero(t, b.LiveObjects())

	_, err = NewBackend("software-rasterizer")
	assert.ErrorIs(t, err, core.ErrDriverNotFound)
}

func TestRendererFrame(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	camera := components.NewCamera("main")
	camera.SetPosition(math.NewVec3(0, 0, 5))

	require.NoError(t, r.BeginFrame(0.5))
	require.NoError(t, r.BeginCamera(camera))
	fb, w, h := s.dev.Framebuffer()
	assert.Zero(t, fb)
	assert.Equal(t, [2]uint32{640, 480}, [2]uint32{w, h})
	assert.Equal(t, 1, s.dev.Clears)

	require.NoError(t, r.BindVertexArray(0, s.vertices))
	require.NoError(t, r.Draw(s.pipeline, s.material, 0, 6, 1, math.NewMat4Identity()))
	require.NoError(t, r.EndFrame())

	require.Len(t, s.dev.Draws, 1)
	timeValue, ok := s.dev.Uniform(s.dev.CurrentProgram(), "_Time")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5}, timeValue.F32)

	mvp, ok := s.dev.Uniform(s.dev.CurrentProgram(), "_ModelViewProjectionMatrix")
	require.True(t, ok)
	want := camera.GetViewProjection(640.0 / 480.0)
	assert.Equal(t, want.Data[:], mvp.F32)

	assert.Equal(t, uint64(1), r.Metrics().DrawCalls)
	assert.Nil(t, r.Camera())
}

func TestRendererRecordsRejectedDraws(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	require.NoError(t, r.BindVertexArray(0, s.vertices))

	err := r.Draw(s.pipeline, s.material, 0, 4, 1, math.NewMat4Identity())
	assert.ErrorIs(t, err, core.ErrInvalidDraw)
	assert.Equal(t, uint64(1), r.Metrics().DrawFailures)
	assert.Zero(t, s.dev.CallCount())
}

func TestRendererDrawIndexed(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	indices := metadata.NewIndexArray(metadata.IndexFormatU16, metadata.ArrayConfig{Name: "idx", Count: 3, Data: []byte{0, 0, 1, 0, 2, 0}})

	require.NoError(t, r.BindVertexArray(0, s.vertices))
	assert.ErrorIs(t, r.BindIndexArray(s.vertices), core.ErrInvalidArgument)
	assert.ErrorIs(t, r.BindVertexArray(0, indices), core.ErrInvalidArgument)
	assert.ErrorIs(t, r.BindVertexArray(metadata.MaxVertexArrays, s.vertices), core.ErrOutOfBounds)

	err := r.DrawIndexed(s.pipeline, s.material, 0, 3, 1, math.NewMat4Identity())
	assert.ErrorIs(t, err, core.ErrUndefinedResource, "no index array bound")

	require.NoError(t, r.BindIndexArray(indices))
	require.NoError(t, r.DrawIndexed(s.pipeline, s.material, 0, 3, 2, math.NewMat4Identity()))
	require.Len(t, s.dev.Draws, 1)
	assert.True(t, s.dev.Draws[0].Indexed)
	assert.Equal(t, metadata.IndexFormatU16, s.dev.Draws[0].IndexFormat)
	assert.Equal(t, uint32(2), s.dev.Draws[0].Instances)
}

func TestRendererCameraRenderTarget(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	color := metadata.NewTexture2D("color", 128, 64, metadata.PixelFormatRGBA8)
	target, err := metadata.NewRenderTarget("offscreen", color, nil)
	require.NoError(t, err)

	camera := components.NewCamera("offscreen")
	camera.SetRenderTarget(target)
	camera.ClearFlags = metadata.ClearNone

	require.NoError(t, r.BeginCamera(camera))
	fb, w, h := s.dev.Framebuffer()
	assert.NotZero(t, fb)
	assert.Equal(t, [2]uint32{128, 64}, [2]uint32{w, h})
	assert.Zero(t, s.dev.Clears)

	require.NoError(t, r.Clear(nil, metadata.ClearColor, math.NewVec4(0, 0, 0, 1), 1, 0))
	fb, _, _ = s.dev.Framebuffer()
	assert.Zero(t, fb)
	assert.Equal(t, 1, s.dev.Clears)
}

func TestRendererFrameOrder(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	assert.ErrorIs(t, r.EndFrame(), core.ErrInvalidArgument)
	require.NoError(t, r.BeginFrame(0.016))
	assert.ErrorIs(t, r.BeginFrame(0.016), core.ErrInvalidArgument)
	require.NoError(t, r.EndFrame())
}

func TestRendererResizeAndShutdown(t *testing.T) {
	s := newScene(t)
	r := s.renderer
	r.Resize(1024, 768)
	assert.Equal(t, uint32(1024), r.Surface().Width())

	require.NoError(t, r.BindVertexArray(0, s.vertices))
	require.NoError(t, r.Draw(s.pipeline, s.material, 0, 3, 1, math.NewMat4Identity()))
	assert.NotZero(t, r.Backend().LiveObjects())

	r.Shutdown()
	assert.Zero(t, r.Backend().LiveObjects())
	assert.Zero(t, s.dev.LiveObjects())
}

func TestRendererCountsLoggedProblems(t *testing.T) {
	s := newScene(t)
	r := s.renderer

	core.LogWarn("slot %d is stale", 3)
	core.LogError("device lost")
	assert.Equal(t, uint64(1), r.Metrics().Warnings())
	assert.Equal(t, uint64(1), r.Metrics().Errors())

	r.Shutdown()
	core.LogError("after shutdown")
	assert.Equal(t, uint64(1), r.Metrics().Errors())
}
