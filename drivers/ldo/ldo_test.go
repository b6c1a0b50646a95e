// drivers/ldo/ldo_test.go
package ldo

import (
	"testing"
)

// fakeI2C records register writes and serves reads from a register file.
type fakeI2C struct {
	regs map[byte]byte
}

func newFakeI2C() *fakeI2C { return &fakeI2C{regs: map[byte]byte{}} }

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) == 2 && len(r) == 0: // register write
		f.regs[w[0]] = w[1]
	case len(w) == 1 && len(r) == 1: // register read
		r[0] = f.regs[w[0]]
	}
	return nil
}

func TestVSelCode(t *testing.T) {
	cases := []struct {
		minUV, maxUV int
		code         byte
		wantErr      bool
	}{
		{3_300_000, 3_300_000, 36, false}, // (3.3V-1.5V)/50mV
		{1_500_000, 1_500_000, 0, false},
		{1_480_000, 1_520_000, 0, false}, // window straddles the base step
		{1_510_000, 1_540_000, 0, true},  // no step inside window
		{9_000_000, 9_500_000, 0, true},  // beyond VSEL range
	}
	for _, tc := range cases {
		code, err := VSelCode(tc.minUV, tc.maxUV)
		if tc.wantErr {
			if err == nil {
				t.Errorf("VSelCode(%d,%d): expected error", tc.minUV, tc.maxUV)
			}
			continue
		}
		if err != nil {
			t.Errorf("VSelCode(%d,%d): %v", tc.minUV, tc.maxUV, err)
			continue
		}
		if code != tc.code {
			t.Errorf("VSelCode(%d,%d) = %d, want %d", tc.minUV, tc.maxUV, code, tc.code)
		}
		if v := VSelUV(code); v < tc.minUV || v > tc.maxUV {
			t.Errorf("decoded %d uV outside window %d..%d", v, tc.minUV, tc.maxUV)
		}
	}
}

func TestILimCode(t *testing.T) {
	if code, err := ILimCode(150_000); err != nil || code != 5 {
		t.Fatalf("ILimCode(150000) = %d, %v; want 5", code, err)
	}
	if _, err := ILimCode(0); err == nil {
		t.Fatal("expected error for zero load")
	}
	if _, err := ILimCode(10_000_000); err == nil {
		t.Fatal("expected error for out-of-range load")
	}
}

func TestDevice_EnableDisableRoundTrip(t *testing.T) {
	bus := newFakeI2C()
	d := New(bus, 0x48)

	if err := d.SetVoltage(3_300_000, 3_300_000); err != nil {
		t.Fatalf("SetVoltage: %v", err)
	}
	if err := d.SetLoad(150_000); err != nil {
		t.Fatalf("SetLoad: %v", err)
	}
	if err := d.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !d.Enabled() {
		t.Fatal("device should report enabled")
	}
	if bus.regs[regVSel] != 36 || bus.regs[regILim] != 5 {
		t.Fatalf("unexpected register file: %v", bus.regs)
	}
	if err := d.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if d.Enabled() {
		t.Fatal("device should report disabled")
	}
	// Release keeps the programmed registers intact.
	if err := d.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if bus.regs[regVSel] != 36 {
		t.Fatal("release must not clear VSEL")
	}
}
