// Package backend keeps native objects in step with frontend objects. Every
// frontend object is synchronized lazily, the first time a draw needs it and
// again whenever it was marked dirty.
package backend

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// backendObject is the native side of one frontend object.
type backendObject interface {
	destroy(dev driver.Device)
}

// Stats counts draw outcomes since the backend was created.
type Stats struct {
	Draws    uint64
	Rejected uint64
	Failed   uint64
}

/**
 * @brief Owns every native object created on behalf of frontend objects.
 */
type Backend struct {
	device   driver.Device
	registry *containers.HandleTable[backendObject]
	stats    Stats

	// scratch space reused by uniform uploads
	f32Scratch  []float32
	i32Scratch  []int32
	ui32Scratch []uint32
}

func New(device driver.Device) *Backend {
	return &Backend{
		device:   device,
		registry: containers.NewHandleTable[backendObject](256),
	}
}

func (b *Backend) Device() driver.Device {
	return b.device
}

func (b *Backend) Stats() Stats {
	return b.stats
}

// LiveObjects is the number of frontend objects with backend data.
func (b *Backend) LiveObjects() int {
	return b.registry.Len()
}

// DeleteBackendData frees the native side of handle. Unknown or already
// freed handles are ignored, the frontend may be mid destruction.
func (b *Backend) DeleteBackendData(handle metadata.BackendHandle) {
	obj, ok := b.registry.Remove(handle)
	if !ok {
		return
	}
	obj.destroy(b.device)
}

// ReadArrayData copies GPU written array contents into dst.
func (b *Backend) ReadArrayData(handle metadata.BackendHandle, offset uint64, dst []byte) error {
	obj, ok := b.registry.Get(handle)
	data, isArray := obj.(*arrayData)
	if !ok || !isArray {
		return fmt.Errorf("handle %#x is not a live array: %w", uint64(handle), core.ErrUndefinedResource)
	}
	return b.device.ReadBuffer(data.buffer, offset, dst)
}

// Shutdown destroys every native object in ascending registry order and
// releases the device. Frontend objects released afterwards find their
// handles stale and do nothing.
func (b *Backend) Shutdown() {
	handles := make([]containers.Handle, 0, b.registry.Len())
	b.registry.Each(func(h containers.Handle, _ backendObject) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		b.DeleteBackendData(h)
	}
	b.device.Release()
	core.LogInfo("renderer backend shut down, %d objects destroyed", len(handles))
}

// strategy describes how one resource type is synchronized.
type strategy[B backendObject] struct {
	kind string
	// stale reports changes the dirty flag does not cover, may be nil
	stale func(current B) bool
	// rebuild creates or refreshes the native object. exists tells whether
	// current is valid. On error rebuild must free whatever it created;
	// current is destroyed by the caller.
	rebuild func(current B, exists bool) (B, error)
}

// check is the single "is the backend data current, else rebuild it" path
// shared by every resource type.
func check[B backendObject](b *Backend, name string, obj metadata.FrontendObject, s strategy[B]) (B, error) {
	var zero B
	fd := obj.Frontend()
	if fd.IsReleased() {
		return zero, fmt.Errorf("%s `%s` was released: %w", s.kind, name, core.ErrUndefinedResource)
	}

	handle := fd.BackendHandle()
	var current B
	exists := false
	if !handle.IsNil() {
		if owner := fd.BackendOwner(); owner != nil && owner != metadata.BackendDataOwner(b) {
			core.LogWarn("%s `%s` is owned by another backend, rebuilding", s.kind, name)
			fd.SetBackendHandle(nil, 0)
			fd.MarkDirty()
			handle = 0
		} else if stored, ok := b.registry.Get(handle); ok {
			current, exists = stored.(B)
		}
		if !exists && !handle.IsNil() {
			fd.SetBackendHandle(nil, 0)
			handle = 0
		}
	}

	if exists && !fd.DirtyState() && (s.stale == nil || !s.stale(current)) {
		return current, nil
	}

	next, err := s.rebuild(current, exists)
	if err != nil {
		if exists {
			b.DeleteBackendData(handle)
			fd.SetBackendHandle(nil, 0)
		}
		fd.MarkDirty()
		err = fmt.Errorf("failed to synchronize %s `%s`: %w: %w", s.kind, name, core.ErrBackendSync, err)
		core.LogError("%s", err)
		return zero, err
	}

	if exists {
		if err := b.registry.Replace(handle, next); err != nil {
			core.LogFatal("registry lost %s `%s` during rebuild", s.kind, name)
		}
	} else {
		fd.SetBackendHandle(b, b.registry.Insert(next))
	}
	fd.ClearDirty()
	return next, nil
}
