package components

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraRegistryAcquireRelease(t *testing.T) {
	_, err := NewCameraRegistry(0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	cr, err := NewCameraRegistry(2)
	require.NoError(t, err)

	def, err := cr.Acquire(DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cr.GetDefault(), def)
	assert.Zero(t, cr.Count())

	world, err := cr.Acquire("world")
	require.NoError(t, err)
	again, err := cr.Acquire("world")
	require.NoError(t, err)
	assert.Same(t, world, again)
	assert.Equal(t, "world", world.Name)

	_, err = cr.Acquire("ui")
	require.NoError(t, err)
	_, err = cr.Acquire("shadow")
	assert.ErrorIs(t, err, core.ErrOutOfBounds)

	world.SetPosition(math.NewVec3(1, 2, 3))
	cr.Release("world")
	assert.Equal(t, 2, cr.Count(), "still referenced once")
	cr.Release("world")
	assert.Equal(t, 1, cr.Count())
	assert.Equal(t, math.NewVec3Zero(), world.GetPosition())

	fresh, err := cr.Acquire("world")
	require.NoError(t, err)
	assert.NotSame(t, world, fresh)

	cr.Release("unknown")
	cr.Release(DEFAULT_CAMERA_NAME)
}

func TestCameraRegistryShutdownDropsTargets(t *testing.T) {
	cr, err := NewCameraRegistry(4)
	require.NoError(t, err)

	color := metadata.NewTexture2D("color", 8, 8, metadata.PixelFormatRGBA8)
	target, err := metadata.NewRenderTarget("offscreen", color, nil)
	require.NoError(t, err)

	cam, err := cr.Acquire("offscreen")
	require.NoError(t, err)
	cam.SetRenderTarget(target)
	assert.Equal(t, int32(2), target.RefCount())

	cr.Shutdown()
	assert.Equal(t, int32(1), target.RefCount())
	assert.Nil(t, cam.RenderTarget())
	assert.Zero(t, cr.Count())
}
