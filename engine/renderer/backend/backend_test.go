package backend

import (
	"encoding/binary"
	"errors"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `
in vec3 position;
in vec2 uv;
uniform mat4 _ModelViewProjectionMatrix;
out vec2 v_uv;
void main() { v_uv = uv; gl_Position = _ModelViewProjectionMatrix * vec4(position, 1.0); }
`

const pixelSource = `
uniform vec4 Color;
uniform sampler2D Albedo;
in vec2 v_uv;
out vec4 frag;
void main() { frag = Color * texture(Albedo, v_uv); }
`

type fixture struct {
	dev      *headless.Device
	backend  *Backend
	shader   *metadata.Shader
	pipeline *metadata.PipelineState
	material *metadata.Material
	vertices *metadata.RendererArray
	texture  *metadata.Texture
}

func newFixture(t *testing.T, vertexCount uint32) *fixture {
	t.Helper()
	shader, err := metadata.NewShader(metadata.ShaderConfig{
		Name:         "textured",
		VertexSource: vertexSource,
		PixelSource:  pixelSource,
		Uniforms: []metadata.Uniform{
			{Name: "Color", Width: 4, Height: 1, Count: 1, Type: metadata.UniformTypeF32},
			{Name: "Albedo", Width: 1, Height: 1, Count: 1, Type: metadata.UniformTypeTexture},
		},
		SystemUniforms: []metadata.Uniform{metadata.ExpectedSystemUniform(metadata.SystemUniformModelViewProjection)},
		Attributes:     []string{"position", "uv"},
	})
	require.NoError(t, err)
	pipeline, err := metadata.NewPipelineState(metadata.DefaultPipelineConfig(shader, []metadata.VertexAttribute{
		{Name: "position", Format: metadata.VertexFormatF32x3, Offset: metadata.AutoOffset},
		{Name: "uv", Format: metadata.VertexFormatF32x2, Offset: metadata.AutoOffset},
	}))
	require.NoError(t, err)
	material, err := metadata.NewMaterial("textured", shader)
	require.NoError(t, err)

	texture := metadata.NewTexture2D("albedo", 2, 2, metadata.PixelFormatRGBA8)
	texture.SetSampler(metadata.NewSampler(metadata.DefaultSamplerConfig()))
	require.NoError(t, material.SetUniformTexture(1, texture, nil))

	dev := headless.New()
	return &fixture{
		dev:      dev,
		backend:  New(dev),
		shader:   shader,
		pipeline: pipeline,
		material: material,
		vertices: metadata.NewVertexArray(metadata.ArrayConfig{Name: "quad", Count: vertexCount, Stride: pipeline.PackedStride(0)}),
		texture:  texture,
	}
}

func (f *fixture) call(count uint32) *metadata.DrawCall {
	d := &metadata.DrawCall{
		Pipeline:  f.pipeline,
		Material:  f.material,
		Count:     count,
		Instances: 1,
		Model:     math.NewMat4Identity(),
		View:      metadata.NewViewState(),
	}
	d.VertexArrays[0] = f.vertices
	return d
}

func f32Bytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], stdmath.Float32bits(v))
	}
	return out
}

func TestDrawUploadsColorUniform(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.material.SetUniformF32ByName("Color", []float32{1, 0, 0, 1}, 1, 0))

	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.Equal(t, f32Bytes(1, 0, 0, 1), f.backend.MaterialBytes(f.material))

	program := f.dev.CurrentProgram()
	color, ok := f.dev.Uniform(program, "Color")
	require.True(t, ok)
	assert.Equal(t, "Uniform4fv", color.Setter)
	assert.Equal(t, []float32{1, 0, 0, 1}, color.F32)

	albedo, ok := f.dev.Uniform(program, "Albedo")
	require.True(t, ok)
	assert.Equal(t, []int32{0}, albedo.I32)

	require.Len(t, f.dev.Draws, 1)
	draw := f.dev.Draws[0]
	assert.Equal(t, metadata.PolygonTypeTriangle, draw.Topology)
	assert.Equal(t, uint32(3), draw.Count)
	assert.Len(t, draw.Attributes, 2)
	assert.Len(t, draw.Textures, 1)
	assert.Equal(t, Stats{Draws: 1}, f.backend.Stats())
}

func TestDrawRejectsPartialTriangles(t *testing.T) {
	f := newFixture(t, 12)
	err := f.backend.Draw(f.call(10))
	assert.ErrorIs(t, err, core.ErrInvalidDraw)
	assert.Zero(t, f.dev.CallCount(), "no native call for a rejected draw")
	assert.Empty(t, f.dev.Draws)
	assert.Equal(t, uint64(1), f.backend.Stats().Rejected)
}

func TestDrawRejectsUndefinedTexture(t *testing.T) {
	f := newFixture(t, 3)
	empty := metadata.NewTexture2D("empty", 0, 0, metadata.PixelFormatRGBA8)
	assert.False(t, empty.IsDefined())
	require.NoError(t, f.material.SetUniformTexture(1, empty, metadata.NewSampler(metadata.DefaultSamplerConfig())))

	err := f.backend.Draw(f.call(3))
	assert.ErrorIs(t, err, core.ErrUndefinedResource)
	assert.Zero(t, f.dev.CallCount())

	_, err = f.backend.CheckTextureBackendData(empty)
	assert.ErrorIs(t, err, core.ErrBackendSync)
	assert.True(t, empty.BackendHandle().IsNil())
}

func TestShaderLinkFailureTearsDown(t *testing.T) {
	f := newFixture(t, 3)
	f.dev.FailOn("CreateProgram", errors.New("link failed"))

	err := f.backend.Draw(f.call(3))
	assert.ErrorIs(t, err, core.ErrBackendSync)
	assert.True(t, f.shader.BackendHandle().IsNil())
	assert.True(t, f.shader.DirtyState())
	assert.Zero(t, f.dev.CountCalls("Draw"))
	assert.Equal(t, uint64(1), f.backend.Stats().Failed)

	f.dev.FailOn("CreateProgram", nil)
	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.False(t, f.shader.BackendHandle().IsNil())
	assert.False(t, f.shader.DirtyState())
	live := f.backend.LiveObjects()

	// a failed rebuild discards the old program too
	require.NoError(t, f.shader.SetSource(metadata.ShaderStagePixel, pixelSource+"\n"))
	f.dev.FailOn("CreateProgram", errors.New("link failed"))
	assert.ErrorIs(t, f.backend.Draw(f.call(3)), core.ErrBackendSync)
	assert.True(t, f.shader.BackendHandle().IsNil())
	assert.Equal(t, 1, f.dev.CountCalls("DeleteProgram"))
	assert.Equal(t, live-1, f.backend.LiveObjects())
}

func TestShaderRebuildOnSourceChange(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.backend.Draw(f.call(3)))
	first := f.dev.CurrentProgram()

	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.Equal(t, 1, f.dev.CountCalls("CreateProgram"), "clean shaders are not relinked")

	require.NoError(t, f.shader.SetSource(metadata.ShaderStageVertex, vertexSource+"\n"))
	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.Equal(t, 2, f.dev.CountCalls("CreateProgram"))
	assert.Equal(t, 1, f.dev.CountCalls("DeleteProgram"))
	assert.NotEqual(t, first, f.dev.CurrentProgram())
}

func TestShaderMissingDeclarationFailsLink(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.shader.SetSource(metadata.ShaderStageVertex, "in vec3 position; uniform mat4 _ModelViewProjectionMatrix;"))

	_, err := f.backend.CheckShaderBackendData(f.shader)
	assert.ErrorIs(t, err, core.ErrBackendSync)
	assert.Contains(t, err.Error(), "uv")
	assert.Equal(t, 1, f.dev.CountCalls("DeleteProgram"), "the half built program is freed")
	assert.Zero(t, f.dev.LiveObjects())
}

func TestDrawSetsOnlyDeclaredSystemUniforms(t *testing.T) {
	f := newFixture(t, 3)
	call := f.call(3)
	call.Model = math.NewMat4Translation(math.NewVec3(1, 2, 3))
	call.View.Projection = math.NewMat4Scale(math.NewVec3(2, 2, 2))
	require.NoError(t, f.backend.Draw(call))

	program := f.dev.CurrentProgram()
	mvp, ok := f.dev.Uniform(program, "_ModelViewProjectionMatrix")
	require.True(t, ok)
	want := call.Model.Mul(call.View.View.Mul(call.View.Projection))
	assert.Equal(t, want.Data[:], mvp.F32)

	_, ok = f.dev.Uniform(program, "_ViewMatrix")
	assert.False(t, ok)
	assert.Zero(t, f.dev.CountCalls("Uniform3fv"))
}

func TestArrayUploadsDirtyRange(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.Equal(t, 1, f.dev.CountCalls("CreateBuffer"))

	vertex := f32Bytes(1, 2, 3, 4, 5)
	require.NoError(t, f.vertices.UpdateDataRegion(1, 1, vertex))
	require.NoError(t, f.backend.Draw(f.call(3)))
	assert.Equal(t, 1, f.dev.CountCalls("CreateBuffer"))
	assert.Equal(t, 1, f.dev.CountCalls("UpdateBuffer"))

	data, err := f.backend.CheckArrayBackendData(f.vertices)
	require.NoError(t, err)
	assert.Equal(t, vertex, f.dev.BufferData(data.buffer)[20:40])
	start, end := f.vertices.DirtyRange()
	assert.Equal(t, start, end)
}

func TestArrayReadBack(t *testing.T) {
	dev := headless.New()
	b := New(dev)
	arr := metadata.NewComputeArray(metadata.ArrayConfig{Count: 4, Stride: 4, Access: &metadata.ResourceAccessMode{
		Read:              metadata.CPUAccessFrequentPartial,
		GPUUnorderedWrite: true,
	}})
	data, err := b.CheckArrayBackendData(arr)
	require.NoError(t, err)

	// pretend a compute pass wrote the buffer
	copy(dev.BufferData(data.buffer)[4:], []byte{1, 2, 3, 4})
	region, err := arr.LockDataRegion(1, 1, metadata.LockRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, region)
	require.NoError(t, arr.UnlockDataRegion())
}

func TestTextureUploadAndResize(t *testing.T) {
	f := newFixture(t, 3)
	pixels := make([]byte, 16)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	require.NoError(t, f.texture.UpdateRegion(0, f.texture.FullLevelRegion(0), pixels))

	data, err := f.backend.CheckTextureBackendData(f.texture)
	require.NoError(t, err)
	assert.Equal(t, pixels, f.dev.TextureData(data.texture, 0))

	again, err := f.backend.CheckTextureBackendData(f.texture)
	require.NoError(t, err)
	assert.Same(t, data, again)

	require.NoError(t, f.texture.Resize(4, 4, 1))
	resized, err := f.backend.CheckTextureBackendData(f.texture)
	require.NoError(t, err)
	assert.NotEqual(t, data.texture, resized.texture)
	assert.Len(t, f.dev.TextureData(resized.texture, 0), 64)
	assert.Equal(t, 1, f.dev.CountCalls("DeleteTexture"))
}

func TestRenderTargetMismatchNeverGetsHandle(t *testing.T) {
	dev := headless.New()
	b := New(dev)
	surface := &metadata.FixedSurface{W: 800, H: 600}

	color := metadata.NewTexture2D("color", 64, 64, metadata.PixelFormatRGBA8)
	depth := metadata.NewTexture2D("depth", 64, 64, metadata.PixelFormatDepth24Stencil8)
	rt, err := metadata.NewRenderTarget("offscreen", color, depth)
	require.NoError(t, err)

	require.NoError(t, depth.Resize(32, 32, 1))
	_, _, _, err = b.CheckRenderTargetBackendData(rt, surface)
	assert.ErrorIs(t, err, core.ErrSizeMismatch)
	assert.True(t, rt.BackendHandle().IsNil())
	assert.Zero(t, dev.CountCalls("CreateFramebuffer"))

	require.NoError(t, color.Resize(32, 32, 1))
	fb, w, h, err := b.CheckRenderTargetBackendData(rt, surface)
	require.NoError(t, err)
	assert.NotZero(t, fb)
	assert.Equal(t, [2]uint32{32, 32}, [2]uint32{w, h})
	assert.False(t, rt.BackendHandle().IsNil())

	// both attachments removed: back to the default surface
	require.NoError(t, rt.SetAttachments(nil, nil))
	fb, w, h, err = b.CheckRenderTargetBackendData(rt, surface)
	require.NoError(t, err)
	assert.Zero(t, fb)
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})
	assert.True(t, rt.BackendHandle().IsNil())
	assert.Equal(t, 1, dev.CountCalls("DeleteFramebuffer"))
}

func TestRenderTargetRebuildsAfterAttachmentResize(t *testing.T) {
	dev := headless.New()
	b := New(dev)
	color := metadata.NewTexture2D("color", 16, 16, metadata.PixelFormatRGBA8)
	rt, err := metadata.NewRenderTarget("rt", color, nil)
	require.NoError(t, err)
	surface := &metadata.FixedSurface{W: 1, H: 1}

	require.NoError(t, b.BindRenderTarget(rt, surface))
	require.NoError(t, b.BindRenderTarget(rt, surface))
	assert.Equal(t, 1, dev.CountCalls("CreateFramebuffer"))

	require.NoError(t, color.Resize(8, 8, 1))
	require.NoError(t, b.BindRenderTarget(rt, surface))
	assert.Equal(t, 2, dev.CountCalls("CreateFramebuffer"))
	_, w, h := dev.Framebuffer()
	assert.Equal(t, [2]uint32{8, 8}, [2]uint32{w, h})
}

func TestReleaseFreesBackendData(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.backend.Draw(f.call(3)))
	// shader, material, texture, sampler, vertex array
	assert.Equal(t, 5, f.backend.LiveObjects())

	f.vertices.Release()
	assert.Equal(t, 4, f.backend.LiveObjects())
	assert.Equal(t, 1, f.dev.CountCalls("DeleteBuffer"))
}

func TestShutdownDestroysInRegistryOrder(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.backend.Draw(f.call(3)))
	before := f.dev.CallCount()

	f.backend.Shutdown()
	assert.Zero(t, f.backend.LiveObjects())
	assert.Zero(t, f.dev.LiveObjects())

	// creation order: shader, material, texture, sampler, vertex array
	var deletes []string
	for _, c := range f.dev.Calls()[before:] {
		if c != "Release" {
			deletes = append(deletes, c)
		}
	}
	assert.Equal(t, []string{"DeleteProgram", "DeleteTexture", "DeleteSampler", "DeleteBuffer"}, deletes)

	calls := f.dev.CallCount()
	f.vertices.Release()
	f.material.Release()
	assert.Equal(t, calls, f.dev.CallCount(), "stale handles are ignored")
}

func TestDrawIndexedAndInstanced(t *testing.T) {
	f := newFixture(t, 4)
	indices := metadata.NewIndexArray(metadata.IndexFormatU32, metadata.ArrayConfig{Name: "indices", Count: 6})
	idx := make([]byte, 24)
	for i, v := range []uint32{0, 1, 2, 2, 3, 0} {
		binary.LittleEndian.PutUint32(idx[4*i:], v)
	}
	require.NoError(t, indices.UpdateDataRegion(6, 0, idx))

	call := f.call(6)
	call.Indexed = true
	call.IndexArray = indices
	call.Instances = 3
	require.NoError(t, f.backend.Draw(call))

	require.Len(t, f.dev.Draws, 1)
	draw := f.dev.Draws[0]
	assert.True(t, draw.Indexed)
	assert.Equal(t, metadata.IndexFormatU32, draw.IndexFormat)
	assert.NotZero(t, draw.IndexBuffer)
	assert.Equal(t, uint32(3), draw.Instances)
}
