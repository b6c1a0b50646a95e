// services/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fpcontrol-go/bus"
)

func TestDefaultMatchesReferenceBoard(t *testing.T) {
	f := Default()

	if f.Rail.Regulator != "ldo" {
		t.Fatalf("regulator %q", f.Rail.Regulator)
	}
	if f.Rail.Voltage.MinUV != 3_300_000 || f.Rail.Voltage.MaxUV != 3_300_000 {
		t.Fatalf("voltage window %+v", f.Rail.Voltage)
	}
	if f.Rail.LoadUA != 150_000 {
		t.Fatalf("load %d", f.Rail.LoadUA)
	}
	if f.Rail.ResetAssert != "anc_reset_reset" || f.Rail.ResetRelease != "anc_reset_active" {
		t.Fatalf("reset configs %q/%q", f.Rail.ResetAssert, f.Rail.ResetRelease)
	}
	states, ok := f.Rail.PinConfigs["anc_reset_active"]
	if !ok || len(states) != 1 || states[0].Pin != "FP_RST" || !states[0].Level {
		t.Fatalf("anc_reset_active states %+v", states)
	}
	if f.Events.Socket == "" || f.Control.Socket == "" {
		t.Fatal("socket paths must have defaults")
	}
}

func TestLoadOverlaysDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.yaml")
	doc := `
log_level: debug
rail:
  power_gpio: FP_PWR_EN
events:
  socket: /tmp/ev.sock
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.LogLevel != "debug" {
		t.Fatalf("log level %q", f.LogLevel)
	}
	if f.Rail.PowerGPIO != "FP_PWR_EN" {
		t.Fatalf("power gpio %q", f.Rail.PowerGPIO)
	}
	if f.Events.Socket != "/tmp/ev.sock" {
		t.Fatalf("event socket %q", f.Events.Socket)
	}
	// Untouched sections keep the embedded values.
	if f.Rail.Regulator != "ldo" || f.Rail.LoadUA != 150_000 {
		t.Fatalf("default rail lost: %+v", f.Rail)
	}
	if f.Control.Socket != Default().Control.Socket {
		t.Fatalf("control socket %q", f.Control.Socket)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file must fail")
	}
	path := filepath.Join(t.TempDir(), "broken.yaml")
	os.WriteFile(path, []byte("rail: ["), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("broken yaml must fail")
	}
}

func TestPublishRetainsSections(t *testing.T) {
	b := bus.NewBus(8)
	Publish(b.NewConnection("config"), Default())

	conn := b.NewConnection("late")
	defer conn.Disconnect()
	sub := conn.Subscribe(bus.T("config", bus.WildcardOne))

	seen := map[string]bool{}
	timeout := time.After(time.Second)
	for len(seen) < 5 {
		select {
		case msg := <-sub.Channel():
			seen[msg.Topic[1].(string)] = true
		case <-timeout:
			t.Fatalf("retained sections %v, want all 5", seen)
		}
	}
	for _, want := range []string{"log", "rail", "platform", "events", "control"} {
		if !seen[want] {
			t.Fatalf("missing section %s", want)
		}
	}
}
