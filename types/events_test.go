package types

import "testing"

func TestParseEventClosedTable(t *testing.T) {
	ev, err := ParseEvent("touch_down")
	if err != nil || ev != EventTouchDown {
		t.Fatalf("touch_down: %v %v", ev, err)
	}

	// The table is closed: no prefixes, no invalid, no made-up names.
	for _, name := range []string{"touch", "invalid", "screen", "TOUCH_DOWN", ""} {
		if _, err := ParseEvent(name); err == nil {
			t.Errorf("ParseEvent(%q) accepted", name)
		}
	}
}

func TestEventNamesRoundTrip(t *testing.T) {
	for name, ev := range eventNames {
		if ev.String() != name {
			t.Errorf("%d: String()=%q, table name %q", ev, ev.String(), name)
		}
	}
	if EventInvalid.String() != "invalid" {
		t.Errorf("invalid: %q", EventInvalid.String())
	}
}
