//go:build !linux || nogpio

package platform

import (
	"fpcontrol-go/services/railctl"
)

// New on non-Linux hosts (or with the nogpio tag) always returns the
// in-memory backend so the daemon can be exercised without hardware.
func New(cfg Config) (railctl.PinFactory, railctl.RegulatorFactory, error) {
	return NewMemoryPins(), NewMemoryRegulators(), nil
}
