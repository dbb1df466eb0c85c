package metadata

import (
	"fmt"
	"math/bits"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/**
 * @brief Pixel layout of a texture.
 */
type PixelFormat uint8

const (
	PixelFormatUndefined PixelFormat = iota
	PixelFormatR8
	PixelFormatRG8
	PixelFormatRGBA8
	PixelFormatRGBA8SRGB
	PixelFormatBGRA8
	PixelFormatR16F
	PixelFormatRG16F
	PixelFormatRGBA16F
	PixelFormatR32F
	PixelFormatRG32F
	PixelFormatRGBA32F
	PixelFormatR32UI
	PixelFormatDepth16
	PixelFormatDepth24Stencil8
	PixelFormatDepth32F
	PixelFormatMax
)

var pixelFormatSizes = [PixelFormatMax]uint32{
	PixelFormatUndefined:       0,
	PixelFormatR8:              1,
	PixelFormatRG8:             2,
	PixelFormatRGBA8:           4,
	PixelFormatRGBA8SRGB:       4,
	PixelFormatBGRA8:           4,
	PixelFormatR16F:            2,
	PixelFormatRG16F:           4,
	PixelFormatRGBA16F:         8,
	PixelFormatR32F:            4,
	PixelFormatRG32F:           8,
	PixelFormatRGBA32F:         16,
	PixelFormatR32UI:           4,
	PixelFormatDepth16:         2,
	PixelFormatDepth24Stencil8: 4,
	PixelFormatDepth32F:        4,
}

var pixelFormatNames = [PixelFormatMax]string{
	PixelFormatUndefined:       "Undefined",
	PixelFormatR8:              "R8",
	PixelFormatRG8:             "RG8",
	PixelFormatRGBA8:           "RGBA8",
	PixelFormatRGBA8SRGB:       "RGBA8_SRGB",
	PixelFormatBGRA8:           "BGRA8",
	PixelFormatR16F:            "R16F",
	PixelFormatRG16F:           "RG16F",
	PixelFormatRGBA16F:         "RGBA16F",
	PixelFormatR32F:            "R32F",
	PixelFormatRG32F:           "RG32F",
	PixelFormatRGBA32F:         "RGBA32F",
	PixelFormatR32UI:           "R32UI",
	PixelFormatDepth16:         "Depth16",
	PixelFormatDepth24Stencil8: "Depth24Stencil8",
	PixelFormatDepth32F:        "Depth32F",
}

func (f PixelFormat) String() string {
	if f >= PixelFormatMax {
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
	return pixelFormatNames[f]
}

// BytesPerPixel returns 0 for undefined or unknown formats.
func (f PixelFormat) BytesPerPixel() uint32 {
	if f >= PixelFormatMax {
		return 0
	}
	return pixelFormatSizes[f]
}

func (f PixelFormat) IsDepth() bool {
	return f == PixelFormatDepth16 || f == PixelFormatDepth24Stencil8 || f == PixelFormatDepth32F
}

func (f PixelFormat) HasStencil() bool {
	return f == PixelFormatDepth24Stencil8
}

// Region is a box inside one mip level.
type Region struct {
	X, Y, Z              uint32
	Width, Height, Depth uint32
}

func (r Region) texels() uint64 {
	return uint64(r.Width) * uint64(r.Height) * uint64(r.Depth)
}

// MaxMipLevels is floor(log2(max(w, h, d))) + 1, or 0 for an empty extent.
func MaxMipLevels(width, height, depth uint32) uint32 {
	m := math.Max(width, math.Max(height, depth))
	if m == 0 {
		return 0
	}
	return uint32(bits.Len32(m))
}

// MipExtent halves size per level and clamps to 1.
func MipExtent(size, level uint32) uint32 {
	if level >= 32 {
		return 1
	}
	return math.Max(size>>level, 1)
}

/**
 * @brief Configuration used to create a texture.
 */
type TextureConfig struct {
	Name   string
	Width  uint32
	Height uint32
	Depth  uint32
	/** @brief Ignored when FullMipChain is set. */
	MipLevels uint32
	Format    PixelFormat
	/** @brief Allocates every level down to 1x1x1 and lets the backend generate them. */
	FullMipChain bool
	/** @brief Defaults to DefaultAccessMode when nil. */
	Access  *ResourceAccessMode
	Sampler *Sampler
}

/**
 * @brief Represents a texture on the frontend. Pixels live in a CPU shadow
 * per mip level until the backend uploads them.
 */
type Texture struct {
	FrontendData

	name         string
	width        uint32
	height       uint32
	depth        uint32
	mipLevels    uint32
	requestedMip uint32
	format       PixelFormat
	fullMipChain bool
	access       ResourceAccessMode
	sampler      *Sampler

	levels      [][]byte
	dirtyLevels uint64
	// bumped whenever size or format change, the backend recreates storage
	storageGeneration uint32

	lock       lockWindow
	lockLevel  uint32
	lockRegion Region
	staging    []byte
}

// NewTexture creates a texture. Zero extents or an undefined format are
// accepted and yield a texture that is not defined.
func NewTexture(cfg TextureConfig) *Texture {
	if cfg.Name == "" {
		cfg.Name = "texture-" + uuid.NewString()
	}
	access := DefaultAccessMode()
	if cfg.Access != nil {
		access = *cfg.Access
	}
	t := &Texture{
		FrontendData: newFrontendData(),
		name:         cfg.Name,
		format:       cfg.Format,
		fullMipChain: cfg.FullMipChain,
		access:       access,
	}
	if cfg.Sampler != nil {
		cfg.Sampler.Acquire()
		t.sampler = cfg.Sampler
	}
	t.allocate(cfg.Width, cfg.Height, cfg.Depth, cfg.MipLevels)
	return t
}

// NewTexture2D creates a single level 2D texture.
func NewTexture2D(name string, width, height uint32, format PixelFormat) *Texture {
	return NewTexture(TextureConfig{
		Name:      name,
		Width:     width,
		Height:    height,
		Depth:     1,
		MipLevels: 1,
		Format:    format,
	})
}

func (t *Texture) allocate(width, height, depth, mipLevels uint32) {
	t.width, t.height, t.depth = width, height, depth
	t.requestedMip = mipLevels
	limit := MaxMipLevels(width, height, depth)
	switch {
	case t.fullMipChain:
		mipLevels = limit
	case mipLevels > limit && limit > 0:
		core.LogWarn("texture `%s` asks for %d mip levels, clamping to %d", t.name, mipLevels, limit)
		mipLevels = limit
	}
	t.mipLevels = mipLevels

	t.levels = nil
	t.dirtyLevels = 0
	if t.IsDefined() {
		t.levels = make([][]byte, t.mipLevels)
		for level := uint32(0); level < t.mipLevels; level++ {
			t.levels[level] = make([]byte, t.LevelByteSize(level))
		}
	}
	t.storageGeneration++
	t.MarkDirty()
}

// IsDefined requires at least 1x1x1 texels, one mip level and a format.
func (t *Texture) IsDefined() bool {
	return t.width >= 1 && t.height >= 1 && t.depth >= 1 &&
		t.mipLevels >= 1 && t.format != PixelFormatUndefined && t.format < PixelFormatMax
}

func (t *Texture) Name() string {
	return t.name
}

func (t *Texture) Width() uint32 {
	return t.width
}

func (t *Texture) Height() uint32 {
	return t.height
}

func (t *Texture) Depth() uint32 {
	return t.depth
}

func (t *Texture) MipLevels() uint32 {
	return t.mipLevels
}

func (t *Texture) Format() PixelFormat {
	return t.format
}

func (t *Texture) FullMipChain() bool {
	return t.fullMipChain
}

func (t *Texture) Access() ResourceAccessMode {
	return t.access
}

func (t *Texture) Sampler() *Sampler {
	return t.sampler
}

// SetSampler replaces the texture's own sampler, used when a material binds
// the texture without one.
func (t *Texture) SetSampler(s *Sampler) {
	if s == t.sampler {
		return
	}
	if s != nil {
		s.Acquire()
	}
	if t.sampler != nil {
		t.sampler.Release()
	}
	t.sampler = s
	t.MarkDirty()
}

// MipLevelSize returns the extent of level.
func (t *Texture) MipLevelSize(level uint32) (uint32, uint32, uint32) {
	return MipExtent(t.width, level), MipExtent(t.height, level), MipExtent(t.depth, level)
}

func (t *Texture) LevelByteSize(level uint32) uint64 {
	w, h, d := t.MipLevelSize(level)
	return uint64(w) * uint64(h) * uint64(d) * uint64(t.format.BytesPerPixel())
}

// LevelData returns the CPU shadow of level, nil if out of range.
func (t *Texture) LevelData(level uint32) []byte {
	if level >= uint32(len(t.levels)) {
		return nil
	}
	return t.levels[level]
}

// DirtyLevels is a bit mask of levels written since the last upload.
func (t *Texture) DirtyLevels() uint64 {
	return t.dirtyLevels
}

// ClearDirtyLevels is called by the backend after uploading.
func (t *Texture) ClearDirtyLevels() {
	t.dirtyLevels = 0
}

func (t *Texture) StorageGeneration() uint32 {
	return t.storageGeneration
}

// Resize reallocates every level. The pixel contents are discarded.
func (t *Texture) Resize(width, height, depth uint32) error {
	if t.lock.isOpen() {
		err := fmt.Errorf("texture `%s` cannot be resized while locked: %w", t.name, core.ErrAlreadyLocked)
		core.LogError("%s", err)
		return err
	}
	t.allocate(width, height, depth, t.requestedMip)
	return nil
}

// FullLevelRegion covers the whole of level.
func (t *Texture) FullLevelRegion(level uint32) Region {
	w, h, d := t.MipLevelSize(level)
	return Region{Width: w, Height: h, Depth: d}
}

func (t *Texture) checkRegion(level uint32, r Region, mode LockMode) error {
	if !t.IsDefined() {
		return fmt.Errorf("texture `%s` (%dx%dx%d, %d mips): %w", t.name, t.width, t.height, t.depth, t.mipLevels, core.ErrUndefinedResource)
	}
	if level >= t.mipLevels {
		return fmt.Errorf("texture `%s` level %d of %d: %w", t.name, level, t.mipLevels, core.ErrOutOfBounds)
	}
	// generated levels are rebuilt from level 0 on upload
	if t.fullMipChain && level > 0 && mode&LockWrite != 0 {
		return fmt.Errorf("texture `%s` level %d is generated from level 0: %w", t.name, level, core.ErrInvalidArgument)
	}
	w, h, d := t.MipLevelSize(level)
	if err := checkWindow(uint64(r.Width), uint64(r.X), uint64(w)); err != nil {
		return fmt.Errorf("texture `%s` x: %w", t.name, err)
	}
	if err := checkWindow(uint64(r.Height), uint64(r.Y), uint64(h)); err != nil {
		return fmt.Errorf("texture `%s` y: %w", t.name, err)
	}
	if err := checkWindow(uint64(r.Depth), uint64(r.Z), uint64(d)); err != nil {
		return fmt.Errorf("texture `%s` z: %w", t.name, err)
	}
	partial := r != t.FullLevelRegion(level)
	if err := t.access.ValidateLock(mode, partial); err != nil {
		return fmt.Errorf("texture `%s`: %w", t.name, err)
	}
	return nil
}

// copyRegion moves texels between the tightly packed buf and level. toLevel
// selects the direction.
func (t *Texture) copyRegion(level uint32, r Region, buf []byte, toLevel bool) {
	bpp := uint64(t.format.BytesPerPixel())
	w, h, _ := t.MipLevelSize(level)
	rowBytes := uint64(r.Width) * bpp
	dst := t.levels[level]
	var src uint64
	for z := uint64(r.Z); z < uint64(r.Z+r.Depth); z++ {
		for y := uint64(r.Y); y < uint64(r.Y+r.Height); y++ {
			off := ((z*uint64(h)+y)*uint64(w) + uint64(r.X)) * bpp
			if toLevel {
				copy(dst[off:off+rowBytes], buf[src:src+rowBytes])
			} else {
				copy(buf[src:src+rowBytes], dst[off:off+rowBytes])
			}
			src += rowBytes
		}
	}
}

// UpdateRegion copies tightly packed pixels into r of level.
func (t *Texture) UpdateRegion(level uint32, r Region, pixels []byte) error {
	if t.lock.isOpen() {
		err := fmt.Errorf("texture `%s` update while locked: %w", t.name, core.ErrAlreadyLocked)
		core.LogError("%s", err)
		return err
	}
	if err := t.checkRegion(level, r, LockWrite); err != nil {
		core.LogError("%s", err)
		return err
	}
	need := r.texels() * uint64(t.format.BytesPerPixel())
	if uint64(len(pixels)) < need {
		err := fmt.Errorf("texture `%s` update needs %d bytes, got %d: %w", t.name, need, len(pixels), core.ErrOutOfBounds)
		core.LogError("%s", err)
		return err
	}
	t.copyRegion(level, r, pixels, true)
	t.dirtyLevels |= 1 << level
	t.MarkDirty()
	return nil
}

// LockRegion opens a lock on r of level and returns a tightly packed
// staging slice. Read locks fill it from the shadow.
func (t *Texture) LockRegion(level uint32, r Region, mode LockMode) ([]byte, error) {
	if t.lock.isOpen() {
		err := fmt.Errorf("texture `%s` is already locked: %w", t.name, core.ErrAlreadyLocked)
		core.LogError("%s", err)
		return nil, err
	}
	if err := t.checkRegion(level, r, mode); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	size := r.texels() * uint64(t.format.BytesPerPixel())
	if uint64(cap(t.staging)) < size {
		t.staging = make([]byte, size)
	}
	t.staging = t.staging[:size]
	if mode&LockRead != 0 {
		t.copyRegion(level, r, t.staging, false)
	}
	t.lock.open(0, size, mode)
	t.lockLevel = level
	t.lockRegion = r
	return t.staging, nil
}

// UnlockRegion closes the lock. Write locks commit the staging slice.
func (t *Texture) UnlockRegion() error {
	if !t.lock.isOpen() {
		err := fmt.Errorf("texture `%s` is not locked: %w", t.name, core.ErrNotLocked)
		core.LogError("%s", err)
		return err
	}
	if t.lock.mode&LockWrite != 0 {
		t.copyRegion(t.lockLevel, t.lockRegion, t.staging, true)
		t.dirtyLevels |= 1 << t.lockLevel
		t.MarkDirty()
	}
	t.lock.close()
	return nil
}

func (t *Texture) IsLocked() bool {
	return t.lock.isOpen()
}

func (t *Texture) Release() {
	if !t.release() {
		return
	}
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	t.levels = nil
	t.staging = nil
}
