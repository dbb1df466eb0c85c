package metadata

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTargetSizeMismatch(t *testing.T) {
	color := NewTexture2D("color", 64, 64, PixelFormatRGBA8)
	depth := NewTexture2D("depth", 32, 64, PixelFormatDepth24Stencil8)

	rt, err := NewRenderTarget("mismatch", color, depth)
	assert.ErrorIs(t, err, core.ErrSizeMismatch)
	assert.Nil(t, rt)
	assert.Equal(t, int32(1), color.RefCount(), "nothing acquired on failure")

	rt, err = NewRenderTarget("color only", color, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, rt.SetDepthStencil(depth), core.ErrSizeMismatch)
	assert.Nil(t, rt.DepthStencil())

	require.NoError(t, depth.Resize(64, 64, 1))
	require.NoError(t, rt.SetDepthStencil(depth))
	w, h, ok := rt.Size()
	assert.True(t, ok)
	assert.Equal(t, [2]uint32{64, 64}, [2]uint32{w, h})
	assert.NoError(t, rt.SizeMatches())

	// attachments resized after the fact are caught at sync time
	require.NoError(t, depth.Resize(16, 16, 1))
	assert.ErrorIs(t, rt.SizeMatches(), core.ErrSizeMismatch)
}

func TestRenderTargetAttachments(t *testing.T) {
	color := NewTexture2D("color", 8, 8, PixelFormatRGBA8)
	depth := NewTexture2D("depth", 8, 8, PixelFormatDepth32F)

	_, err := NewRenderTarget("swapped", depth, color)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	rt, err := NewRenderTarget("", nil, nil)
	require.NoError(t, err)
	assert.True(t, rt.IsDefault())
	_, _, ok := rt.Size()
	assert.False(t, ok)

	require.NoError(t, rt.SetAttachments(color, depth))
	assert.False(t, rt.IsDefault())
	assert.Equal(t, int32(2), color.RefCount())

	rt.ClearDirty()
	color.ClearDirty()
	depth.ClearDirty()
	assert.False(t, rt.AttachmentsDirty())
	require.NoError(t, color.UpdateRegion(0, color.FullLevelRegion(0), make([]byte, 8*8*4)))
	assert.True(t, rt.AttachmentsDirty())

	rt.Release()
	assert.Equal(t, int32(1), color.RefCount())
	assert.Equal(t, int32(1), depth.RefCount())
}

func TestRenderTargetFormatErrorNamesFormat(t *testing.T) {
	color := NewTexture2D("color", 4, 4, PixelFormatRGBA16F)
	depth := NewTexture2D("depth", 4, 4, PixelFormatDepth32F)

	_, err := NewRenderTarget("swapped", depth, color)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Depth32F")
}
