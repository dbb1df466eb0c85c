package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data: *MouseEvent
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data: *MouseEvent
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data: *MouseEvent
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel. Data: *MouseEvent
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS. Data: *ResizeEvent
	EVENT_CODE_RESIZED EventCode = 0x08
	// An asset was reloaded from disk. Data: *AssetEvent
	EVENT_CODE_ASSET_RELOADED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type EventContext struct {
	Type   EventCode
	Sender interface{}
	Data   interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
	Repeat  bool
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type AssetEvent struct {
	Name string
	Path string
}

// Should return true if handled.
type FnOnEvent func(ctx EventContext) bool

type registeredEvent struct {
	id       int
	callback FnOnEvent
}

// State structure.
type eventSystemState struct {
	nextID     int
	registered [MAX_MESSAGE_CODES][]registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	return eventState != nil
}

// EventSystemShutdown drops every registration.
func EventSystemShutdown() {
	if eventState == nil {
		return
	}
	for i := range eventState.registered {
		eventState.registered[i] = nil
	}
}

// EventRegister adds onEvent to the listeners of code and returns an id
// for EventUnregister. Returns -1 before initialization.
func EventRegister(code EventCode, onEvent FnOnEvent) int {
	if eventState == nil || int(code) >= MAX_MESSAGE_CODES || onEvent == nil {
		return -1
	}
	eventState.nextID++
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		id:       eventState.nextID,
		callback: onEvent,
	})
	return eventState.nextID
}

// EventUnregister removes the listener with the given id. Returns false if
// nothing matched.
func EventUnregister(code EventCode, id int) bool {
	if eventState == nil || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	events := eventState.registered[code]
	for i := range events {
		if events[i].id == id {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire dispatches ctx to the listeners of ctx.Type in registration
// order. The first listener returning true stops the dispatch.
func EventFire(ctx EventContext) bool {
	if eventState == nil || int(ctx.Type) >= MAX_MESSAGE_CODES {
		return false
	}
	for _, e := range eventState.registered[ctx.Type] {
		if e.callback(ctx) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
