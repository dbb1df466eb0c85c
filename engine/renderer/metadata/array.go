package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
)

type ArrayType uint8

const (
	ArrayTypeVertex ArrayType = iota
	ArrayTypeIndex
	ArrayTypeCompute
)

func (t ArrayType) String() string {
	switch t {
	case ArrayTypeVertex:
		return "vertex"
	case ArrayTypeIndex:
		return "index"
	case ArrayTypeCompute:
		return "compute"
	}
	return fmt.Sprintf("ArrayType(%d)", uint8(t))
}

type IndexFormat uint8

const (
	IndexFormatU16 IndexFormat = iota
	IndexFormatU32
)

func (f IndexFormat) Size() uint32 {
	if f == IndexFormatU16 {
		return 2
	}
	return 4
}

// ArrayState follows Undefined -> Created -> {Unlocked <-> Locked}.
type ArrayState uint8

const (
	ArrayStateUndefined ArrayState = iota
	ArrayStateUnlocked
	ArrayStateLocked
)

/**
 * @brief A vertex, index or compute buffer. Contents live in a CPU shadow
 * and the byte range written since the last upload is tracked.
 */
type RendererArray struct {
	FrontendData

	name        string
	arrayType   ArrayType
	count       uint32
	stride      uint32
	indexFormat IndexFormat
	access      ResourceAccessMode

	data  []byte
	dirty dirtyRange
	lock  lockWindow
}

type ArrayConfig struct {
	Name   string
	Count  uint32
	Stride uint32
	// Access defaults to DefaultAccessMode when nil.
	Access *ResourceAccessMode
	// Data is copied; it may be shorter than Count*Stride.
	Data []byte
}

func newRendererArray(t ArrayType, cfg ArrayConfig) *RendererArray {
	if cfg.Name == "" {
		cfg.Name = t.String() + "-array-" + uuid.NewString()
	}
	access := DefaultAccessMode()
	if cfg.Access != nil {
		access = *cfg.Access
	}
	a := &RendererArray{
		FrontendData: newFrontendData(),
		name:         cfg.Name,
		arrayType:    t,
		count:        cfg.Count,
		stride:       cfg.Stride,
		access:       access,
	}
	if a.State() != ArrayStateUndefined {
		size := uint64(a.count) * uint64(a.stride)
		a.data = make([]byte, size)
		copy(a.data, cfg.Data)
		a.dirty.extend(0, size)
	}
	return a
}

func NewVertexArray(cfg ArrayConfig) *RendererArray {
	return newRendererArray(ArrayTypeVertex, cfg)
}

// NewIndexArray derives the stride from format.
func NewIndexArray(format IndexFormat, cfg ArrayConfig) *RendererArray {
	cfg.Stride = format.Size()
	a := newRendererArray(ArrayTypeIndex, cfg)
	a.indexFormat = format
	return a
}

func NewComputeArray(cfg ArrayConfig) *RendererArray {
	return newRendererArray(ArrayTypeCompute, cfg)
}

func (a *RendererArray) Name() string {
	return a.name
}

func (a *RendererArray) Type() ArrayType {
	return a.arrayType
}

func (a *RendererArray) Count() uint32 {
	return a.count
}

func (a *RendererArray) Stride() uint32 {
	return a.stride
}

func (a *RendererArray) ByteSize() uint64 {
	return uint64(a.count) * uint64(a.stride)
}

func (a *RendererArray) IndexFormat() IndexFormat {
	return a.indexFormat
}

func (a *RendererArray) Access() ResourceAccessMode {
	return a.access
}

func (a *RendererArray) State() ArrayState {
	switch {
	case a.count == 0 || a.stride == 0:
		return ArrayStateUndefined
	case a.lock.isOpen():
		return ArrayStateLocked
	}
	return ArrayStateUnlocked
}

func (a *RendererArray) IsDefined() bool {
	return a.State() != ArrayStateUndefined
}

// Data returns the CPU shadow. The backend reads it when uploading.
func (a *RendererArray) Data() []byte {
	return a.data
}

// DirtyRange returns the byte range written since the last upload.
func (a *RendererArray) DirtyRange() (uint64, uint64) {
	return a.dirty.start, a.dirty.end
}

// ClearDirtyRange is called by the backend after uploading.
func (a *RendererArray) ClearDirtyRange() {
	a.dirty.reset()
}

// LockDataRegion opens the window of count elements at offset and returns
// the bytes of that window. Exactly one window may be open.
func (a *RendererArray) LockDataRegion(count, offset uint32, mode LockMode) ([]byte, error) {
	if err := a.checkLock(count, offset, mode); err != nil {
		err = fmt.Errorf("failed to lock %s array `%s`: %w", a.arrayType, a.name, err)
		core.LogError("%s", err)
		return nil, err
	}

	start := uint64(offset) * uint64(a.stride)
	end := start + uint64(count)*uint64(a.stride)

	// pull GPU written contents back before handing them out
	if mode&LockRead != 0 && a.access.GPUUnorderedWrite && !a.handle.IsNil() {
		if reader, ok := a.owner.(BackendDataReader); ok {
			if err := reader.ReadArrayData(a.handle, start, a.data[start:end]); err != nil {
				err = fmt.Errorf("failed to read back %s array `%s`: %w", a.arrayType, a.name, err)
				core.LogError("%s", err)
				return nil, err
			}
		}
	}

	a.lock.open(start, end, mode)
	return a.data[start:end:end], nil
}

func (a *RendererArray) checkLock(count, offset uint32, mode LockMode) error {
	if a.State() == ArrayStateUndefined {
		return fmt.Errorf("count %d stride %d: %w", a.count, a.stride, core.ErrUndefinedResource)
	}
	if a.lock.isOpen() {
		return core.ErrAlreadyLocked
	}
	if err := checkWindow(uint64(count), uint64(offset), uint64(a.count)); err != nil {
		return err
	}
	partial := offset != 0 || count != a.count
	return a.access.ValidateLock(mode, partial)
}

// UnlockDataRegion closes the window. Write locks commit the window and mark
// the array dirty.
func (a *RendererArray) UnlockDataRegion() error {
	if !a.lock.isOpen() {
		err := fmt.Errorf("failed to unlock %s array `%s`: %w", a.arrayType, a.name, core.ErrNotLocked)
		core.LogError("%s", err)
		return err
	}
	if a.lock.mode&LockWrite != 0 {
		a.dirty.extend(a.lock.start, a.lock.end)
		a.MarkDirty()
	}
	a.lock.close()
	return nil
}

// UpdateDataRegion writes count elements from data at offset.
func (a *RendererArray) UpdateDataRegion(count, offset uint32, data []byte) error {
	need := uint64(count) * uint64(a.stride)
	if uint64(len(data)) < need {
		err := fmt.Errorf("update of %s array `%s` needs %d bytes, got %d: %w", a.arrayType, a.name, need, len(data), core.ErrOutOfBounds)
		core.LogError("%s", err)
		return err
	}
	region, err := a.LockDataRegion(count, offset, LockWrite)
	if err != nil {
		return err
	}
	copy(region, data)
	return a.UnlockDataRegion()
}

func (a *RendererArray) Release() {
	if !a.release() {
		return
	}
	a.data = nil
}
