// services/eventlink/wake.go
package eventlink

import (
	"sync"
	"time"
)

// DefaultWakeHold is how long the system is kept from suspending after a
// touch transition, giving the consumer a window to react.
const DefaultWakeHold = 400 * time.Millisecond

// Holder is the platform mechanism that actually blocks suspend while the
// assertion is live.
type Holder interface {
	Hold() error
	Drop() error
}

// NopHolder satisfies Holder on hosts without a suspend blocker.
type NopHolder struct{}

func (NopHolder) Hold() error { return nil }
func (NopHolder) Drop() error { return nil }

// WakeAssertion is a bounded-duration wake hold. Assert (re)arms the
// expiry; the hold self-clears when it lapses and never needs an explicit
// release.
type WakeAssertion struct {
	holder Holder
	hold   time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	held   bool
	expiry time.Time
}

func NewWakeAssertion(holder Holder, hold time.Duration) *WakeAssertion {
	if holder == nil {
		holder = NopHolder{}
	}
	if hold <= 0 {
		hold = DefaultWakeHold
	}
	return &WakeAssertion{holder: holder, hold: hold}
}

// Assert takes (or extends) the hold for the configured duration.
func (w *WakeAssertion) Assert() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expiry = time.Now().Add(w.hold)
	if !w.held {
		if err := w.holder.Hold(); err != nil {
			// Without the holder the bound still applies; the consumer just
			// loses its suspend guarantee.
			return
		}
		w.held = true
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.hold, w.expire)
	} else {
		w.timer.Reset(w.hold)
	}
}

func (w *WakeAssertion) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.held || time.Now().Before(w.expiry) {
		return
	}
	_ = w.holder.Drop()
	w.held = false
}

// Held reports whether the assertion is currently live.
func (w *WakeAssertion) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}

// Stop drops the hold immediately. Used during teardown only.
func (w *WakeAssertion) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.held {
		_ = w.holder.Drop()
		w.held = false
	}
}
