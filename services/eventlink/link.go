// services/eventlink/link.go
package eventlink

import (
	"net"
	"sync"
	"time"

	"fpcontrol-go/errcode"
	"fpcontrol-go/pkg/log"
	"fpcontrol-go/types"
)

// sendTimeout bounds a single datagram write; the link never blocks a
// hardware path on a slow consumer.
const sendTimeout = 5 * time.Millisecond

// Config for the event link.
type Config struct {
	// Socket is the consumer's unixgram path; the one fixed destination.
	Socket string `yaml:"socket"`
	// WakeHoldMS overrides the 400 ms default wake hold.
	WakeHoldMS int `yaml:"wake_hold_ms,omitempty"`
}

func (c Config) WakeHold() time.Duration {
	if c.WakeHoldMS <= 0 {
		return DefaultWakeHold
	}
	return time.Duration(c.WakeHoldMS) * time.Millisecond
}

// Emitter is the narrow surface the observer and control services need.
type Emitter interface {
	Emit(ev types.Event) error
	TouchEvent(down bool) error
	ClearTouch()
}

// Link sends one-byte event messages to the single fixed consumer.
// Delivery is best effort: an unreachable or saturated consumer drops the
// message without retry.
type Link struct {
	log  *log.Logger
	path string
	wake *WakeAssertion

	connMu sync.Mutex
	conn   *net.UnixConn

	// Touch dedup latch. Guarded by its own mutex so a touch transition and
	// a concurrent clear command cannot race.
	touchMu   sync.Mutex
	touchDown bool
}

func New(cfg Config, wake *WakeAssertion, lg *log.Logger) *Link {
	if lg == nil {
		lg = log.Discard()
	}
	if wake == nil {
		wake = NewWakeAssertion(NopHolder{}, cfg.WakeHold())
	}
	return &Link{
		log:  lg.Named("eventlink"),
		path: cfg.Socket,
		wake: wake,
	}
}

// Wake exposes the assertion for tests and teardown.
func (l *Link) Wake() *WakeAssertion { return l.wake }

func (l *Link) dial() (*net.UnixConn, error) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		return l.conn, nil
	}
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: l.path, Net: "unixgram"})
	if err != nil {
		return nil, err
	}
	l.conn = conn
	return conn, nil
}

func (l *Link) dropConn() {
	l.connMu.Lock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	l.connMu.Unlock()
}

// Emit sends the one-byte wire tag for ev. No retry, no buffering.
func (l *Link) Emit(ev types.Event) error {
	conn, err := l.dial()
	if err != nil {
		l.log.Debug("consumer unreachable", "event", ev.String(), "err", err)
		return errcode.Wrap(errcode.ChannelUnavailable, "eventlink.emit", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if _, err := conn.Write([]byte{byte(ev)}); err != nil {
		// The consumer may have gone away and come back; re-dial next time.
		l.dropConn()
		l.log.Debug("send failed", "event", ev.String(), "err", err)
		return errcode.Wrap(errcode.ChannelUnavailable, "eventlink.emit", err)
	}
	l.log.Debug("event sent", "event", ev.String())
	return nil
}

// TouchEvent latches the touch state and emits only on a transition.
// On a transition the wake assertion is taken before the send is
// attempted, so the consumer gets its window even if the system is
// already heading into suspend.
func (l *Link) TouchEvent(down bool) error {
	l.touchMu.Lock()
	defer l.touchMu.Unlock()

	if down == l.touchDown {
		return nil
	}

	ev := types.EventTouchUp
	if down {
		ev = types.EventTouchDown
	}
	l.wake.Assert()
	err := l.Emit(ev)
	// The latch follows the hardware state even when the send was dropped;
	// delivery is best effort, dedup is not.
	l.touchDown = down
	return err
}

// ClearTouch resets the latch to neutral (finger up). Idempotent.
func (l *Link) ClearTouch() {
	l.touchMu.Lock()
	l.touchDown = false
	l.touchMu.Unlock()
	l.log.Debug("touch latch cleared")
}

// Close tears the link down and drops any live wake hold.
func (l *Link) Close() error {
	l.wake.Stop()
	l.dropConn()
	return nil
}
