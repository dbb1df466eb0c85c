package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTableGenerations(t *testing.T) {
	table := NewHandleTable[string](2)
	var zero Handle
	assert.True(t, zero.IsNil())
	assert.False(t, table.Contains(zero))

	a := table.Insert("a")
	b := table.Insert("b")
	assert.False(t, a.IsNil())
	assert.Equal(t, 2, table.Len())

	v, ok := table.Remove(a)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = table.Remove(a)
	assert.False(t, ok, "double remove")

	// the freed slot is reused under a new generation
	c := table.Insert("c")
	assert.NotEqual(t, a, c)
	assert.Equal(t, a.index(), c.index())
	_, ok = table.Get(a)
	assert.False(t, ok)
	got, ok := table.Get(c)
	require.True(t, ok)
	assert.Equal(t, "c", got)

	assert.ErrorIs(t, table.Replace(a, "x"), ErrStaleHandle)
	require.NoError(t, table.Replace(b, "B"))
	got, _ = table.Get(b)
	assert.Equal(t, "B", got)
}

func TestHandleTableEachOrder(t *testing.T) {
	table := NewHandleTable[int](4)
	handles := make([]Handle, 4)
	for i := range handles {
		handles[i] = table.Insert(i)
	}
	table.Remove(handles[1])

	var seen []int
	table.Each(func(h Handle, v int) bool {
		seen = append(seen, v)
		return true
	})
	assert.Equal(t, []int{0, 2, 3}, seen)

	seen = nil
	table.Each(func(h Handle, v int) bool {
		seen = append(seen, v)
		return false
	})
	assert.Equal(t, []int{0}, seen)
}

func TestRingQueueWraps(t *testing.T) {
	q := NewRingQueue[int](2)
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue(3), ErrQueueFull)

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, q.Enqueue(3))

	v, _ = q.Peek()
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, q.Len())
	v, _ = q.Dequeue()
	assert.Equal(t, 2, v)
	v, _ = q.Dequeue()
	assert.Equal(t, 3, v)
	assert.True(t, q.IsEmpty())
}
