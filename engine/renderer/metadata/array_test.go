package metadata

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readWrite = ResourceAccessMode{Write: CPUAccessFrequentPartial, Read: CPUAccessFrequentPartial}

func TestArrayLockPastEndFails(t *testing.T) {
	a := NewVertexArray(ArrayConfig{Name: "quad", Count: 24, Stride: 12})
	region, err := a.LockDataRegion(10, 20, LockWrite)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
	assert.Nil(t, region)
	assert.Equal(t, ArrayStateUnlocked, a.State())

	region, err = a.LockDataRegion(4, 20, LockWrite)
	require.NoError(t, err)
	assert.Len(t, region, 48)
	require.NoError(t, a.UnlockDataRegion())
}

func TestArrayLockRoundTrip(t *testing.T) {
	a := NewVertexArray(ArrayConfig{Count: 8, Stride: 4, Access: &readWrite})
	a.ClearDirty()
	a.ClearDirtyRange()

	region, err := a.LockDataRegion(2, 3, LockWrite)
	require.NoError(t, err)
	assert.Equal(t, ArrayStateLocked, a.State())
	copy(region, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	_, err = a.LockDataRegion(1, 0, LockRead)
	assert.ErrorIs(t, err, core.ErrAlreadyLocked, "one window at a time")

	require.NoError(t, a.UnlockDataRegion())
	assert.True(t, a.DirtyState())
	start, end := a.DirtyRange()
	assert.Equal(t, uint64(12), start)
	assert.Equal(t, uint64(20), end)

	region, err = a.LockDataRegion(2, 3, LockRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, region)
	require.NoError(t, a.UnlockDataRegion())

	// read locks leave the dirty range alone
	start, end = a.DirtyRange()
	assert.Equal(t, uint64(12), start)
	assert.Equal(t, uint64(20), end)
}

func TestArrayLockFailures(t *testing.T) {
	undefined := NewVertexArray(ArrayConfig{Count: 0, Stride: 4})
	_, err := undefined.LockDataRegion(1, 0, LockWrite)
	assert.ErrorIs(t, err, core.ErrUndefinedResource)
	assert.False(t, undefined.IsDefined())

	a := NewVertexArray(ArrayConfig{Count: 4, Stride: 4})
	_, err = a.LockDataRegion(0, 0, LockWrite)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = a.LockDataRegion(2, ^uint32(0), LockWrite)
	assert.ErrorIs(t, err, core.ErrOutOfBounds)
	_, err = a.LockDataRegion(4, 0, LockRead)
	assert.ErrorIs(t, err, core.ErrAccessDenied, "default access cannot read")

	full := NewVertexArray(ArrayConfig{Count: 4, Stride: 4, Access: &ResourceAccessMode{Write: CPUAccessRareFull}})
	_, err = full.LockDataRegion(2, 0, LockWrite)
	assert.ErrorIs(t, err, core.ErrAccessDenied, "partial window on a full-only array")
	_, err = full.LockDataRegion(4, 0, LockWrite)
	require.NoError(t, err)
	require.NoError(t, full.UnlockDataRegion())

	assert.ErrorIs(t, a.UnlockDataRegion(), core.ErrNotLocked)
}

func TestArrayUpdateAndIndexFormat(t *testing.T) {
	ib := NewIndexArray(IndexFormatU16, ArrayConfig{Count: 6})
	assert.Equal(t, uint32(2), ib.Stride())
	assert.Equal(t, ArrayTypeIndex, ib.Type())
	assert.Equal(t, uint64(12), ib.ByteSize())

	require.NoError(t, ib.UpdateDataRegion(3, 3, []byte{1, 0, 2, 0, 3, 0}))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0, 2, 0, 3, 0}, ib.Data())
	assert.ErrorIs(t, ib.UpdateDataRegion(3, 0, []byte{1}), core.ErrOutOfBounds)
	assert.Equal(t, ArrayStateUnlocked, ib.State())
}

type fakeOwner struct {
	deleted  []BackendHandle
	readback []byte
}

func (o *fakeOwner) DeleteBackendData(h BackendHandle) {
	o.deleted = append(o.deleted, h)
}

func (o *fakeOwner) ReadArrayData(_ BackendHandle, offset uint64, dst []byte) error {
	copy(dst, o.readback[offset:])
	return nil
}

func TestArrayReadBackFromGPU(t *testing.T) {
	owner := &fakeOwner{readback: []byte{9, 8, 7, 6, 5, 4, 3, 2}}
	a := NewComputeArray(ArrayConfig{Count: 2, Stride: 4, Access: &ResourceAccessMode{
		Read:              CPUAccessFrequentPartial,
		GPUUnorderedWrite: true,
	}})

	// nothing to read back before the backend has the array
	region, err := a.LockDataRegion(1, 1, LockRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, region)
	require.NoError(t, a.UnlockDataRegion())

	a.SetBackendHandle(owner, containers.Handle(1))
	region, err = a.LockDataRegion(1, 1, LockRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 4, 3, 2}, region)
	require.NoError(t, a.UnlockDataRegion())

	a.Release()
	assert.Equal(t, []BackendHandle{1}, owner.deleted)
	assert.True(t, a.BackendHandle().IsNil())
}

func TestArrayExplicitNotAllowedAccess(t *testing.T) {
	sealed := ResourceAccessMode{Write: CPUAccessNotAllowed, Read: CPUAccessNotAllowed}
	a := NewVertexArray(ArrayConfig{Name: "sealed", Count: 4, Stride: 4, Access: &sealed})
	assert.Equal(t, sealed, a.Access())

	_, err := a.LockDataRegion(4, 0, LockWrite)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
	_, err = a.LockDataRegion(4, 0, LockRead)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
	assert.ErrorIs(t, a.UpdateDataRegion(1, 0, make([]byte, 4)), core.ErrAccessDenied)

	defaulted := NewVertexArray(ArrayConfig{Name: "defaulted", Count: 4, Stride: 4})
	assert.Equal(t, DefaultAccessMode(), defaulted.Access())
}
