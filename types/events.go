package types

import "fpcontrol-go/errcode"

// Event is the one-byte tag sent to the consumer over the event link.
// The numeric values are part of the wire protocol and must not change.
type Event byte

const (
	EventInvalid   Event = 0
	EventTest      Event = 1
	EventIRQ       Event = 2
	EventScreenOff Event = 3
	EventScreenOn  Event = 4
	EventTouchDown Event = 5
	EventTouchUp   Event = 6
	EventUIReady   Event = 7
	EventExit      Event = 8
)

// eventNames is the closed table used by the event-forward endpoint.
// EventInvalid is deliberately absent: it cannot be requested by name.
var eventNames = map[string]Event{
	"test":       EventTest,
	"irq":        EventIRQ,
	"screen_off": EventScreenOff,
	"screen_on":  EventScreenOn,
	"touch_down": EventTouchDown,
	"touch_up":   EventTouchUp,
	"ui_ready":   EventUIReady,
	"exit":       EventExit,
}

// ParseEvent resolves a forward-endpoint name to its wire tag.
func ParseEvent(name string) (Event, error) {
	if ev, ok := eventNames[name]; ok {
		return ev, nil
	}
	return EventInvalid, errcode.InvalidArgument
}

func (e Event) String() string {
	switch e {
	case EventTest:
		return "test"
	case EventIRQ:
		return "irq"
	case EventScreenOff:
		return "screen_off"
	case EventScreenOn:
		return "screen_on"
	case EventTouchDown:
		return "touch_down"
	case EventTouchUp:
		return "touch_up"
	case EventUIReady:
		return "ui_ready"
	case EventExit:
		return "exit"
	default:
		return "invalid"
	}
}

// Command is a fixed numeric control code (the privileged command surface).
type Command int

const (
	CmdReset          Command = 1
	CmdEnablePower    Command = 2
	CmdDisablePower   Command = 3
	CmdClearTouchFlag Command = 4
)

// Display notification payload values (produced by the external display
// subsystem, consumed by the display observer).
const (
	BlankPowerdown = "powerdown"
	BlankUnblank   = "unblank"

	OpModeUIReady = "ui_ready"
	OpModeUIGone  = "ui_disappear"
)
