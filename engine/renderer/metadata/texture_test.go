package metadata

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureZeroSizeIsNotDefined(t *testing.T) {
	tex := NewTexture2D("empty", 0, 0, PixelFormatRGBA8)
	assert.False(t, tex.IsDefined())
	assert.Nil(t, tex.LevelData(0))

	_, err := tex.LockRegion(0, Region{Width: 1, Height: 1, Depth: 1}, LockWrite)
	assert.ErrorIs(t, err, core.ErrUndefinedResource)

	assert.False(t, NewTexture2D("noformat", 4, 4, PixelFormatUndefined).IsDefined())
	assert.False(t, NewTexture(TextureConfig{Width: 4, Height: 4, Depth: 1, Format: PixelFormatRGBA8}).IsDefined(), "zero mip levels")

	require.NoError(t, tex.Resize(2, 2, 1))
	assert.True(t, tex.IsDefined())
}

func TestTextureMipSizing(t *testing.T) {
	assert.Equal(t, uint32(1), MaxMipLevels(1, 1, 1))
	assert.Equal(t, uint32(9), MaxMipLevels(256, 256, 1))
	assert.Equal(t, uint32(9), MaxMipLevels(300, 7, 1))
	assert.Equal(t, uint32(0), MaxMipLevels(0, 0, 0))

	tex := NewTexture(TextureConfig{Name: "chain", Width: 16, Height: 4, Depth: 1, Format: PixelFormatRGBA8, FullMipChain: true})
	require.True(t, tex.IsDefined())
	assert.Equal(t, uint32(5), tex.MipLevels())

	sizes := [][3]uint32{{16, 4, 1}, {8, 2, 1}, {4, 1, 1}, {2, 1, 1}, {1, 1, 1}}
	for level, want := range sizes {
		w, h, d := tex.MipLevelSize(uint32(level))
		assert.Equal(t, want, [3]uint32{w, h, d}, "level %d", level)
		assert.Len(t, tex.LevelData(uint32(level)), int(want[0]*want[1]*4))
	}

	clamped := NewTexture(TextureConfig{Width: 4, Height: 4, Depth: 1, MipLevels: 10, Format: PixelFormatR8})
	assert.Equal(t, uint32(3), clamped.MipLevels())
}

func TestTextureRegionLock(t *testing.T) {
	tex := NewTexture(TextureConfig{
		Name: "grid", Width: 4, Height: 4, Depth: 1, MipLevels: 1, Format: PixelFormatR8,
		Access: &ResourceAccessMode{Write: CPUAccessRarePartial, Read: CPUAccessRarePartial},
	})
	tex.ClearDirty()
	tex.ClearDirtyLevels()

	r := Region{X: 1, Y: 2, Width: 2, Height: 2, Depth: 1}
	staging, err := tex.LockRegion(0, r, LockWrite)
	require.NoError(t, err)
	require.Len(t, staging, 4)
	copy(staging, []byte{1, 2, 3, 4})

	_, err = tex.LockRegion(0, r, LockRead)
	assert.ErrorIs(t, err, core.ErrAlreadyLocked)
	assert.ErrorIs(t, tex.Resize(8, 8, 1), core.ErrAlreadyLocked)

	require.NoError(t, tex.UnlockRegion())
	assert.True(t, tex.DirtyState())
	assert.Equal(t, uint64(1), tex.DirtyLevels())
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
	}, tex.LevelData(0))

	staging, err = tex.LockRegion(0, r, LockRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, staging)
	require.NoError(t, tex.UnlockRegion())
	assert.ErrorIs(t, tex.UnlockRegion(), core.ErrNotLocked)

	_, err = tex.LockRegion(0, Region{X: 3, Width: 2, Height: 1, Depth: 1}, LockWrite)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
	_, err = tex.LockRegion(1, r, LockWrite)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
}

func TestTextureUpdateRegion(t *testing.T) {
	tex := NewTexture2D("update", 2, 2, PixelFormatRGBA8)
	gen := tex.StorageGeneration()

	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, tex.UpdateRegion(0, tex.FullLevelRegion(0), pixels))
	assert.Equal(t, pixels, tex.LevelData(0))
	assert.ErrorIs(t, tex.UpdateRegion(0, tex.FullLevelRegion(0), pixels[:4]), core.ErrOutOfBounds)

	require.NoError(t, tex.Resize(4, 4, 1))
	assert.Equal(t, gen+1, tex.StorageGeneration())
	assert.Len(t, tex.LevelData(0), 64)
}

func TestTextureSamplerReferences(t *testing.T) {
	s := NewSampler(DefaultSamplerConfig())
	tex := NewTexture(TextureConfig{Width: 1, Height: 1, Depth: 1, MipLevels: 1, Format: PixelFormatRGBA8, Sampler: s})
	assert.Equal(t, int32(2), s.RefCount())

	s.ClearDirty()
	s.SetFilter(FilterNearest, FilterNearest, MipFilterNone)
	assert.True(t, s.DirtyState())

	tex.Release()
	assert.Equal(t, int32(1), s.RefCount())
}

func TestTextureExplicitNotAllowedAccess(t *testing.T) {
	tex := NewTexture(TextureConfig{
		Name: "sealed", Width: 2, Height: 2, Depth: 1, MipLevels: 1, Format: PixelFormatRGBA8,
		Access: &ResourceAccessMode{},
	})
	assert.Equal(t, CPUAccessNotAllowed, tex.Access().Write)
	assert.ErrorIs(t, tex.UpdateRegion(0, tex.FullLevelRegion(0), make([]byte, 16)), core.ErrAccessDenied)
	_, err := tex.LockRegion(0, tex.FullLevelRegion(0), LockWrite)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
	assert.False(t, tex.IsLocked())
}

func TestTextureFullMipChainWritesLevelZeroOnly(t *testing.T) {
	tex := NewTexture(TextureConfig{
		Name: "chain", Width: 4, Height: 4, Depth: 1, Format: PixelFormatR8, FullMipChain: true,
		Access: &ResourceAccessMode{Write: CPUAccessRarePartial, Read: CPUAccessRareFull},
	})
	require.Equal(t, uint32(3), tex.MipLevels())
	tex.ClearDirtyLevels()

	assert.ErrorIs(t, tex.UpdateRegion(1, tex.FullLevelRegion(1), make([]byte, 4)), core.ErrInvalidArgument)
	_, err := tex.LockRegion(2, tex.FullLevelRegion(2), LockWrite)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, uint64(0), tex.DirtyLevels())

	require.NoError(t, tex.UpdateRegion(0, tex.FullLevelRegion(0), make([]byte, 16)))
	assert.Equal(t, uint64(1), tex.DirtyLevels())

	// generated levels stay readable
	_, err = tex.LockRegion(1, tex.FullLevelRegion(1), LockRead)
	require.NoError(t, err)
	require.NoError(t, tex.UnlockRegion())
}

func TestPixelFormatNames(t *testing.T) {
	assert.Equal(t, "RGBA8", PixelFormatRGBA8.String())
	assert.Equal(t, "Depth24Stencil8", PixelFormatDepth24Stencil8.String())
	assert.Equal(t, "PixelFormat(200)", PixelFormat(200).String())
}
