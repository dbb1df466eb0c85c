package metadata

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

// CPUAccess describes how often, and how much of, a resource the CPU
// reads or writes.
type CPUAccess uint8

const (
	CPUAccessNotAllowed CPUAccess = iota
	CPUAccessRareFull
	CPUAccessRarePartial
	CPUAccessFrequentFull
	CPUAccessFrequentPartial
)

func (a CPUAccess) String() string {
	switch a {
	case CPUAccessNotAllowed:
		return "NotAllowed"
	case CPUAccessRareFull:
		return "RareFull"
	case CPUAccessRarePartial:
		return "RarePartial"
	case CPUAccessFrequentFull:
		return "FrequentFull"
	case CPUAccessFrequentPartial:
		return "FrequentPartial"
	}
	return fmt.Sprintf("CPUAccess(%d)", uint8(a))
}

func (a CPUAccess) allowed() bool {
	return a != CPUAccessNotAllowed
}

func (a CPUAccess) partial() bool {
	return a == CPUAccessRarePartial || a == CPUAccessFrequentPartial
}

func (a CPUAccess) frequent() bool {
	return a == CPUAccessFrequentFull || a == CPUAccessFrequentPartial
}

// LockMode is the access requested by a region lock.
type LockMode uint8

const (
	LockRead LockMode = 1 << iota
	LockWrite

	LockReadWrite = LockRead | LockWrite
)

func (m LockMode) String() string {
	switch m {
	case LockRead:
		return "Read"
	case LockWrite:
		return "Write"
	case LockReadWrite:
		return "ReadWrite"
	}
	return fmt.Sprintf("LockMode(%d)", uint8(m))
}

// Usage is the native storage hint derived from an access mode.
type Usage uint8

const (
	UsageStatic Usage = iota
	UsageDynamic
	UsageStream
)

// ResourceAccessMode is shared by arrays and textures.
type ResourceAccessMode struct {
	Write CPUAccess
	Read  CPUAccess
	// GPU access outside of the fixed pipeline (compute, image stores)
	GPUUnorderedRead  bool
	GPUUnorderedWrite bool
}

// DefaultAccessMode allows rare, possibly partial, writes from the CPU only.
func DefaultAccessMode() ResourceAccessMode {
	return ResourceAccessMode{Write: CPUAccessRarePartial}
}

// Usage selects the native storage hint.
func (a ResourceAccessMode) Usage() Usage {
	switch {
	case a.Write.frequent():
		return UsageDynamic
	case a.Read.allowed() || a.GPUUnorderedWrite:
		return UsageStream
	}
	return UsageStatic
}

// ValidateLock checks mode against the access mode. partial is true when the
// requested window does not span the whole resource.
func (a ResourceAccessMode) ValidateLock(mode LockMode, partial bool) error {
	if mode&LockReadWrite == 0 || mode&^LockReadWrite != 0 {
		return fmt.Errorf("invalid lock mode %s: %w", mode, core.ErrInvalidArgument)
	}
	if mode&LockWrite != 0 {
		if !a.Write.allowed() {
			return fmt.Errorf("cpu write is %s: %w", a.Write, core.ErrAccessDenied)
		}
		if partial && !a.Write.partial() {
			return fmt.Errorf("partial write with cpu write %s: %w", a.Write, core.ErrAccessDenied)
		}
	}
	if mode&LockRead != 0 {
		if !a.Read.allowed() {
			return fmt.Errorf("cpu read is %s: %w", a.Read, core.ErrAccessDenied)
		}
		if partial && !a.Read.partial() {
			return fmt.Errorf("partial read with cpu read %s: %w", a.Read, core.ErrAccessDenied)
		}
	}
	return nil
}

// lockWindow is the open lock of an array or texture. It is empty when
// start == end.
type lockWindow struct {
	start, end uint64
	mode       LockMode
}

func (w *lockWindow) isOpen() bool {
	return w.start != w.end
}

func (w *lockWindow) open(start, end uint64, mode LockMode) {
	w.start, w.end, w.mode = start, end, mode
}

func (w *lockWindow) close() {
	*w = lockWindow{}
}

// dirtyRange accumulates the byte range written since the last upload.
type dirtyRange struct {
	start, end uint64
}

func (r *dirtyRange) extend(start, end uint64) {
	if r.start == r.end {
		r.start, r.end = start, end
		return
	}
	if start < r.start {
		r.start = start
	}
	if end > r.end {
		r.end = end
	}
}

func (r *dirtyRange) reset() {
	*r = dirtyRange{}
}

// checkWindow validates an element window [offset, offset+count) against
// total without overflowing.
func checkWindow(count, offset, total uint64) error {
	if count == 0 {
		return fmt.Errorf("empty window: %w", core.ErrInvalidArgument)
	}
	end := offset + count
	if end < offset || end > total {
		return fmt.Errorf("window [%d, %d+%d) exceeds %d elements: %w", offset, offset, count, total, core.ErrOutOfBounds)
	}
	return nil
}
