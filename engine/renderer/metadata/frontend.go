package metadata

import (
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
)

// BackendHandle is a key into the registry of the backend that synchronized
// the object. The zero handle means "never synchronized".
type BackendHandle = containers.Handle

// BackendDataOwner is implemented by the backend that allocated a handle.
// It is notified when the last reference to the frontend object goes away.
type BackendDataOwner interface {
	DeleteBackendData(handle BackendHandle)
}

// BackendDataReader is optionally implemented by owners that can read GPU
// written array contents back into the CPU shadow.
type BackendDataReader interface {
	ReadArrayData(handle BackendHandle, offset uint64, dst []byte) error
}

// FrontendObject is any GPU-backed object synchronized by a backend.
type FrontendObject interface {
	Frontend() *FrontendData
}

// FrontendData is embedded in every GPU-backed frontend object. It carries
// the backend handle, the dirty flag and the reference count.
type FrontendData struct {
	handle   BackendHandle
	owner    BackendDataOwner
	isDirty  bool
	refs     int32
	released bool
}

func newFrontendData() FrontendData {
	return FrontendData{isDirty: true, refs: 1}
}

func (fd *FrontendData) Frontend() *FrontendData {
	return fd
}

// MarkDirty is called by every mutator.
func (fd *FrontendData) MarkDirty() {
	fd.isDirty = true
}

func (fd *FrontendData) DirtyState() bool {
	return fd.isDirty
}

// ClearDirty is called by the backend after a successful rebuild.
func (fd *FrontendData) ClearDirty() {
	fd.isDirty = false
}

func (fd *FrontendData) BackendHandle() BackendHandle {
	return fd.handle
}

func (fd *FrontendData) BackendOwner() BackendDataOwner {
	return fd.owner
}

// SetBackendHandle is called by the backend only. A zero handle detaches the
// object from its owner without notifying it.
func (fd *FrontendData) SetBackendHandle(owner BackendDataOwner, handle BackendHandle) {
	if handle.IsNil() {
		owner = nil
	}
	fd.handle = handle
	fd.owner = owner
}

// IsReleased reports whether the last reference was dropped.
func (fd *FrontendData) IsReleased() bool {
	return fd.released
}

func (fd *FrontendData) RefCount() int32 {
	return fd.refs
}

// Acquire adds a reference.
func (fd *FrontendData) Acquire() {
	if fd.released {
		core.LogFatal("acquire on a released frontend object")
	}
	fd.refs++
}

// release drops a reference and reports whether it was the last one. On the
// last reference the owning backend frees its side first, then the handle
// is cleared.
func (fd *FrontendData) release() bool {
	if fd.released || fd.refs <= 0 {
		core.LogFatal("release on a frontend object with no references")
	}
	fd.refs--
	if fd.refs > 0 {
		return false
	}
	if !fd.handle.IsNil() && fd.owner != nil {
		fd.owner.DeleteBackendData(fd.handle)
	}
	fd.handle = 0
	fd.owner = nil
	fd.released = true
	return true
}
