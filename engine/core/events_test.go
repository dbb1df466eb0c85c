package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDispatchStopsWhenHandled(t *testing.T) {
	require.True(t, EventSystemInitialize())
	const code EventCode = MAX_EVENT_CODE + 1

	var calls []string
	first := EventRegister(code, func(ctx EventContext) bool {
		calls = append(calls, "first")
		return ctx.Data == "stop"
	})
	second := EventRegister(code, func(ctx EventContext) bool {
		calls = append(calls, "second")
		return false
	})
	defer EventUnregister(code, second)

	assert.False(t, EventFire(EventContext{Type: code}))
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	assert.True(t, EventFire(EventContext{Type: code, Data: "stop"}))
	assert.Equal(t, []string{"first"}, calls)

	assert.True(t, EventUnregister(code, first))
	assert.False(t, EventUnregister(code, first))
	calls = nil
	EventFire(EventContext{Type: code, Data: "stop"})
	assert.Equal(t, []string{"second"}, calls)
}

func TestInputActionsReplayOnUpdate(t *testing.T) {
	ic := NewInputController()
	var got []bool
	ic.BindAction(KEY_SPACE, func(key KeyCode, pressed, repeat bool) {
		got = append(got, pressed)
	})

	require.NoError(t, ic.ProcessKey(KEY_SPACE, true, false))
	assert.True(t, ic.IsKeyDown(KEY_SPACE))
	assert.True(t, ic.IsKeyPressed(KEY_SPACE))
	assert.Empty(t, got, "actions wait for Update")

	require.NoError(t, ic.ProcessKey(KEY_SPACE, false, false))
	require.NoError(t, ic.Update(0.016))
	assert.Equal(t, []bool{true, false}, got)
	assert.True(t, ic.IsKeyUp(KEY_SPACE))
	assert.False(t, ic.IsKeyReleased(KEY_SPACE))

	// unbound keys are tracked but not queued
	require.NoError(t, ic.ProcessKey(KEY_A, true, false))
	require.NoError(t, ic.Update(0.016))
	assert.Len(t, got, 2)
	assert.True(t, ic.WasKeyDown(KEY_A))
}
