package containers

import "errors"

var ErrStaleHandle = errors.New("stale or invalid handle")

// Handle is a generational key into a HandleTable. The low 32 bits hold
// slot index+1 and the high 32 bits the slot generation, so the zero
// Handle never refers to a live entry.
type Handle uint64

func makeHandle(index int, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index+1))
}

func (h Handle) index() int {
	return int(uint32(h)) - 1
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) IsNil() bool {
	return h == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// HandleTable is a slot map. Freed slots are reused and their generation
// bumped, so handles to a freed entry stop resolving.
type HandleTable[T any] struct {
	slots []slot[T]
	free  []int
	count int
}

func NewHandleTable[T any](capacity int) *HandleTable[T] {
	return &HandleTable[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

// Insert stores value in a free slot, or appends a new one.
func (t *HandleTable[T]) Insert(value T) Handle {
	t.count++
	if n := len(t.free); n > 0 {
		// Existing free spot. Take it.
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[i].value = value
		t.slots[i].occupied = true
		return makeHandle(i, t.slots[i].generation)
	}
	t.slots = append(t.slots, slot[T]{value: value, generation: 1, occupied: true})
	return makeHandle(len(t.slots)-1, 1)
}

func (t *HandleTable[T]) Get(h Handle) (T, bool) {
	i := h.index()
	if h.IsNil() || i < 0 || i >= len(t.slots) {
		var zero T
		return zero, false
	}
	s := &t.slots[i]
	if !s.occupied || s.generation != h.generation() {
		var zero T
		return zero, false
	}
	return s.value, true
}

func (t *HandleTable[T]) Contains(h Handle) bool {
	_, ok := t.Get(h)
	return ok
}

// Replace swaps the value stored under a live handle.
func (t *HandleTable[T]) Replace(h Handle, value T) error {
	if !t.Contains(h) {
		return ErrStaleHandle
	}
	t.slots[h.index()].value = value
	return nil
}

// Remove frees the slot and returns the value it held.
func (t *HandleTable[T]) Remove(h Handle) (T, bool) {
	value, ok := t.Get(h)
	if !ok {
		return value, false
	}
	i := h.index()
	var zero T
	t.slots[i].value = zero
	t.slots[i].occupied = false
	t.slots[i].generation++
	t.free = append(t.free, i)
	t.count--
	return value, true
}

func (t *HandleTable[T]) Len() int {
	return t.count
}

// Each visits live entries in ascending slot order. Returning false stops
// the iteration.
func (t *HandleTable[T]) Each(fn func(h Handle, value T) bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(makeHandle(i, s.generation), s.value) {
			return
		}
	}
}
