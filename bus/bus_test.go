// bus_test.go
package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription, d time.Duration) *Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(d):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func expectPayload(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	m := recv(t, sub, 200*time.Millisecond)
	if s, ok := m.Payload.(string); !ok || s != want {
		t.Fatalf("unexpected payload %v (want %q)", m.Payload, want)
	}
}

func expectNone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPubSub_Exact(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("display", "blank"))
	c.Publish(c.NewMessage(T("display", "blank"), "powerdown", false))
	expectPayload(t, sub, "powerdown")
}

func TestPubSub_RetainedDeliveredOnSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	c.Publish(c.NewMessage(T("railctl", "state"), "powered", true))
	sub := c.Subscribe(T("railctl", "state"))
	expectPayload(t, sub, "powered")

	// Clearing removes the stored value.
	c.Publish(c.NewMessage(T("railctl", "state"), nil, true))
	late := c.Subscribe(T("railctl", "state"))
	expectNone(t, late)
}

func TestPubSub_Wildcards(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	one := c.Subscribe(T("display", WildcardOne))
	rest := c.Subscribe(T(WildcardRest))
	exact := c.Subscribe(T("display"))

	c.Publish(c.NewMessage(T("display", "blank"), "m1", false))
	expectPayload(t, one, "m1")
	expectPayload(t, rest, "m1")
	expectNone(t, exact)

	c.Publish(c.NewMessage(T("display"), "m2", false))
	expectPayload(t, rest, "m2")
	expectPayload(t, exact, "m2")
	expectNone(t, one)

	c.Publish(c.NewMessage(T("display", "blank", "extra"), "m3", false))
	expectPayload(t, rest, "m3")
	expectNone(t, one)
	expectNone(t, exact)
}

func TestPubSub_RetainedWildcardScan(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(c.NewMessage(T("config", "railctl"), "r0", true))
	c.Publish(c.NewMessage(T("config", "eventlink"), "r1", true))
	c.Publish(c.NewMessage(T("config", "ctl", "listen"), "r2", true))

	sub := c.Subscribe(T("config", WildcardRest))
	var got []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(got) < 3 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			got = append(got, m.Payload.(string))
		case <-time.After(10 * time.Millisecond):
		}
	}
	sort.Strings(got)
	want := []string{"r0", "r1", "r2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")
	respConn := b.NewConnection("responder")

	reqTopic := T("ctl", "command", "hw_reset")
	respSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(respSub)

	go func() {
		if msg, ok := <-respSub.Channel(); ok {
			respConn.Reply(msg, "ok", false)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := reqConn.RequestWait(ctx, b.NewMessage(reqTopic, nil, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "ok" {
		t.Fatalf("unexpected reply payload: %#v", reply.Payload)
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("requester")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.RequestWait(ctx, b.NewMessage(T("nobody", "home"), nil, false)); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("display", "blank"))
	c.Unsubscribe(sub)
	c.Publish(c.NewMessage(T("display", "blank"), "late", false))
	if _, ok := <-sub.Channel(); ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-comparable token")
		}
	}()
	_ = T([]byte{1, 2, 3})
}
