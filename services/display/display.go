// services/display/display.go
//
// Display state observer. The display subsystem publishes blank
// transitions and on-screen-fingerprint UI notifications on the bus;
// this service tracks whether the panel is dark and relays the
// corresponding events to the consumer.
package display

import (
	"context"
	"sync"

	"fpcontrol-go/bus"
	"fpcontrol-go/pkg/log"
	"fpcontrol-go/services/eventlink"
	"fpcontrol-go/types"
	"fpcontrol-go/x/timex"
)

// Handled is the reply payload for every display notification. The
// notifier only needs to know the message was consumed; decoding
// problems are logged, never bounced back.
const Handled = "handled"

type Observer struct {
	log  *log.Logger
	link eventlink.Emitter

	mu          sync.Mutex
	screenBlack bool
}

func New(link eventlink.Emitter, lg *log.Logger) *Observer {
	if lg == nil {
		lg = log.Discard()
	}
	return &Observer{log: lg.Named("display"), link: link}
}

// ScreenBlack reports whether the last blank notification put the panel
// to sleep.
func (o *Observer) ScreenBlack() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.screenBlack
}

// Start subscribes to the display topics and consumes notifications
// until ctx ends. The connection is disconnected on exit.
func (o *Observer) Start(ctx context.Context, conn *bus.Connection) {
	blank := conn.Subscribe(bus.T("display", "blank"))
	osfp := conn.Subscribe(bus.T("display", "onscreenfp"))
	o.publishState(conn)

	go func() {
		defer conn.Disconnect()
		for {
			select {
			case msg, ok := <-blank.Channel():
				if !ok {
					return
				}
				o.handleBlank(conn, msg)
			case msg, ok := <-osfp.Channel():
				if !ok {
					return
				}
				o.handleOnscreenFP(conn, msg)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (o *Observer) handleBlank(conn *bus.Connection, msg *bus.Message) {
	defer conn.Reply(msg, Handled, false)

	state, ok := msg.Payload.(string)
	if !ok {
		o.log.Warn("blank notification with non-string payload")
		return
	}
	switch state {
	case types.BlankPowerdown:
		o.setScreenBlack(true)
		o.publishState(conn)
		o.relay(types.EventScreenOff)
	case types.BlankUnblank:
		o.setScreenBlack(false)
		o.publishState(conn)
		o.relay(types.EventScreenOn)
	default:
		o.log.Warn("unrecognized blank state", "state", state)
	}
}

func (o *Observer) handleOnscreenFP(conn *bus.Connection, msg *bus.Message) {
	defer conn.Reply(msg, Handled, false)

	mode, ok := msg.Payload.(string)
	if !ok {
		o.log.Warn("onscreenfp notification with non-string payload")
		return
	}
	switch mode {
	case types.OpModeUIReady:
		o.relay(types.EventUIReady)
	case types.OpModeUIGone:
		// The UI going away needs no consumer event.
		o.log.Debug("fingerprint ui disappeared")
	default:
		o.log.Warn("unrecognized onscreenfp mode", "mode", mode)
	}
}

func (o *Observer) setScreenBlack(black bool) {
	o.mu.Lock()
	o.screenBlack = black
	o.mu.Unlock()
}

func (o *Observer) relay(ev types.Event) {
	if o.link == nil {
		return
	}
	if err := o.link.Emit(ev); err != nil {
		// Best-effort channel; the consumer may simply not be running.
		o.log.Debug("event not delivered", "event", ev.String(), "err", err)
	}
}

// publishState keeps a retained display/state document on the bus.
func (o *Observer) publishState(conn *bus.Connection) {
	o.mu.Lock()
	black := o.screenBlack
	o.mu.Unlock()
	conn.Publish(conn.NewMessage(bus.T("display", "state"), map[string]any{
		"screen_black": black,
		"ts_ms":        timex.NowMs(),
	}, true))
}
