package testbed

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	gridSize       = 16
	gridSpacing    = 1.5
	gridJitter     = 0.2
	gridSteps      = 3
	gridStepHeight = 0.25
	moveSpeed      = 10.0
	turnSpeed      = 1.5
	checkerSize    = 64
	checkerTiles   = 8
	worldCamera    = "world"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine      *engine.Engine
	WorldCamera *components.Camera

	width  uint32
	height uint32

	pipeline *metadata.PipelineState
	material *metadata.Material
	checker  *metadata.Texture
	quad     *metadata.RendererArray
	offsets  *metadata.RendererArray
	indices  *metadata.RendererArray
	model    *math.Transform

	statsTimer float64
}

func NewTestGame(cfg *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	state.engine = e

	state.checker = newChecker()
	if err := e.Assets().RegisterTexture("checker", state.checker); err != nil {
		return err
	}
	material, err := e.Assets().LoadMaterial("grid")
	if err != nil {
		return err
	}
	state.material = material

	pipelineConfig := metadata.DefaultPipelineConfig(material.Shader(), []metadata.VertexAttribute{
		{Name: "position", Format: metadata.VertexFormatF32x3, Offset: metadata.AutoOffset},
		{Name: "uv", Format: metadata.VertexFormatF32x2, Offset: metadata.AutoOffset},
		{Name: "offset", Format: metadata.VertexFormatF32x3, ArrayIndex: 1, Offset: metadata.AutoOffset, InstanceStep: 1},
	})
	pipelineConfig.Name = "grid"
	// quads are seen from both sides
	pipelineConfig.Cull = metadata.CullModeNone
	state.pipeline, err = metadata.NewPipelineState(pipelineConfig)
	if err != nil {
		return err
	}

	state.quad = metadata.NewVertexArray(metadata.ArrayConfig{
		Name:   "quad",
		Count:  4,
		Stride: state.pipeline.PackedStride(0),
		Data: packFloats(
			-0.5, 0, -0.5, 0, 0,
			0.5, 0, -0.5, 1, 0,
			0.5, 0, 0.5, 1, 1,
			-0.5, 0, 0.5, 0, 1,
		),
	})
	state.indices = metadata.NewIndexArray(metadata.IndexFormatU16, metadata.ArrayConfig{
		Name:  "quad-indices",
		Count: 6,
		Data:  packU16(0, 1, 2, 2, 3, 0),
	})

	offsets := make([]float32, 0, gridSize*gridSize*3)
	half := float32(gridSize-1) * gridSpacing * 0.5
	for z := 0; z < gridSize; z++ {
		for x := 0; x < gridSize; x++ {
			// stepped heights with a little horizontal jitter
			jitter := math.RandomFloatInRange(-gridJitter, gridJitter)
			y := float32(math.RandomInRange(0, gridSteps)) * gridStepHeight
			offsets = append(offsets, float32(x)*gridSpacing-half+jitter, y, float32(z)*gridSpacing-half-jitter)
		}
	}
	state.offsets = metadata.NewVertexArray(metadata.ArrayConfig{
		Name:   "grid-offsets",
		Count:  gridSize * gridSize,
		Stride: state.pipeline.PackedStride(1),
		Data:   packFloats(offsets...),
	})

	state.model = math.NewTransform()

	camera, err := e.Renderer().Cameras().Acquire(worldCamera)
	if err != nil {
		return err
	}
	camera.SetPosition(math.NewVec3(0, 8, 22))
	camera.SetEulerRotation(math.NewVec3(math.DegToRad(-20), 0, 0))
	camera.ClearColor = math.NewVec4(0.08, 0.09, 0.12, 1)
	state.WorldCamera = camera

	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	input := state.engine.Input()
	camera := state.WorldCamera
	step := float32(deltaTime)

	if input.IsKeyDown(core.KEY_W) {
		camera.MoveForward(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_S) {
		camera.MoveBackward(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_A) {
		camera.MoveLeft(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_D) {
		camera.MoveRight(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_E) {
		camera.MoveUp(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_Q) {
		camera.MoveDown(moveSpeed * step)
	}
	if input.IsKeyDown(core.KEY_LEFT) {
		camera.Yaw(turnSpeed * step)
	}
	if input.IsKeyDown(core.KEY_RIGHT) {
		camera.Yaw(-turnSpeed * step)
	}
	if input.IsKeyDown(core.KEY_UP) {
		camera.Pitch(turnSpeed * step)
	}
	if input.IsKeyDown(core.KEY_DOWN) {
		camera.Pitch(-turnSpeed * step)
	}
	if input.IsKeyPressed(core.KEY_R) {
		camera.Reset()
	}

	// slow spin of the whole grid
	state.model.Rotate(math.NewQuatFromAxisAngle(math.NewVec3Up(), 0.1*step, false))
	return nil
}

func (g *TestGame) Render(r *renderer.Renderer, deltaTime float64) error {
	state := g.state()
	if err := r.BeginCamera(state.WorldCamera); err != nil {
		return err
	}
	if err := r.BindVertexArray(0, state.quad); err != nil {
		return err
	}
	if err := r.BindVertexArray(1, state.offsets); err != nil {
		return err
	}
	if err := r.BindIndexArray(state.indices); err != nil {
		return err
	}
	if err := r.DrawIndexed(state.pipeline, state.material, 0, 6, gridSize*gridSize, state.model.World()); err != nil {
		return err
	}

	state.statsTimer += deltaTime
	if state.statsTimer >= 2 {
		state.statsTimer = 0
		m := r.Metrics()
		core.LogDebug("%.0f fps, %.2f ms, %d draws, %d rejected, %d warnings, %d errors",
			m.FPS(), m.FrameTime(), m.DrawCalls, m.DrawFailures, m.Warnings(), m.Errors())
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width, state.height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	state := g.state()
	for _, arr := range []*metadata.RendererArray{state.quad, state.offsets, state.indices} {
		if arr != nil {
			arr.Release()
		}
	}
	if state.pipeline != nil {
		state.pipeline.Release()
	}
	if state.checker != nil {
		state.checker.Release()
	}
	if state.WorldCamera != nil {
		state.engine.Renderer().Cameras().Release(worldCamera)
	}
	return nil
}

// newChecker builds a two tone checkerboard with a full mip chain.
func newChecker() *metadata.Texture {
	sampler := metadata.NewSampler(metadata.DefaultSamplerConfig())
	sampler.SetMaxAnisotropy(8)
	texture := metadata.NewTexture(metadata.TextureConfig{
		Name:         "checker",
		Width:        checkerSize,
		Height:       checkerSize,
		Depth:        1,
		Format:       metadata.PixelFormatRGBA8,
		FullMipChain: true,
		Sampler:      sampler,
	})
	sampler.Release()

	pixels := make([]byte, checkerSize*checkerSize*4)
	tile := checkerSize / checkerTiles
	for y := 0; y < checkerSize; y++ {
		for x := 0; x < checkerSize; x++ {
			c := byte(60)
			if (x/tile+y/tile)%2 == 0 {
				c = 230
			}
			i := (y*checkerSize + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = c, c, c, 255
		}
	}
	if err := texture.UpdateRegion(0, texture.FullLevelRegion(0), pixels); err != nil {
		core.LogError("%s", err)
	}
	return texture
}

func packFloats(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], stdmath.Float32bits(v))
	}
	return out
}

func packU16(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}
