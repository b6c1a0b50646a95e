//go:build linux && !nogpio

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"fpcontrol-go/drivers/ldo"
	"fpcontrol-go/services/railctl"
)

// New builds the hardware factories for this host. host.Init is safe to
// call more than once.
func New(cfg Config) (railctl.PinFactory, railctl.RegulatorFactory, error) {
	if cfg.Backend == "memory" {
		return NewMemoryPins(), NewMemoryRegulators(), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("platform: host init: %w", err)
	}

	pins := periphPins{}

	switch cfg.Backend {
	case "", "sysfs":
		if cfg.RegulatorDir == "" {
			return nil, nil, errors.New("platform: sysfs backend needs regulator_dir")
		}
		return pins, sysfsRegulators{dir: cfg.RegulatorDir}, nil
	case "i2c":
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, nil, fmt.Errorf("platform: i2c open: %w", err)
		}
		return pins, ldoRegulators{factory: func() railctl.Regulator {
			return ldo.New(bus, cfg.I2CAddr)
		}}, nil
	default:
		return nil, nil, fmt.Errorf("platform: unknown backend %q", cfg.Backend)
	}
}

// -----------------------------------------------------------------------------
// periph.io GPIO
// -----------------------------------------------------------------------------

type periphPins struct{}

func (periphPins) ByName(name string) (railctl.Pin, bool) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p}, true
}

type periphPin struct {
	p    gpio.PinIO
	last bool
}

func (p *periphPin) ConfigureOutput(initial bool) error {
	p.last = initial
	return p.p.Out(gpio.Level(initial))
}

func (p *periphPin) Set(level bool) error {
	p.last = level
	return p.p.Out(gpio.Level(level))
}

func (p *periphPin) Level() bool  { return p.last }
func (p *periphPin) Name() string { return p.p.Name() }

// -----------------------------------------------------------------------------
// Sysfs regulator consumer
// -----------------------------------------------------------------------------

type sysfsRegulators struct {
	dir string
}

func (f sysfsRegulators) ByName(name string) (railctl.Regulator, error) {
	if _, err := os.Stat(f.dir); err != nil {
		return nil, fmt.Errorf("regulator %s: %w", name, err)
	}
	return &sysfsRegulator{dir: f.dir}, nil
}

// sysfsRegulator drives a userspace regulator consumer node: voltage and
// load windows as microvolt/microamp attributes, on/off via "state".
type sysfsRegulator struct {
	dir string
}

func (r *sysfsRegulator) writeAttr(attr, val string) error {
	return os.WriteFile(filepath.Join(r.dir, attr), []byte(val), 0o644)
}

func (r *sysfsRegulator) SetVoltage(minUV, maxUV int) error {
	// Max first so the window never inverts from the kernel's view.
	if err := r.writeAttr("max_microvolts", fmt.Sprintf("%d", maxUV)); err != nil {
		return err
	}
	return r.writeAttr("min_microvolts", fmt.Sprintf("%d", minUV))
}

func (r *sysfsRegulator) SetLoad(uA int) error {
	return r.writeAttr("min_microamps", fmt.Sprintf("%d", uA))
}

func (r *sysfsRegulator) Enable() error  { return r.writeAttr("state", "enabled") }
func (r *sysfsRegulator) Disable() error { return r.writeAttr("state", "disabled") }

func (r *sysfsRegulator) Enabled() bool {
	b, err := os.ReadFile(filepath.Join(r.dir, "state"))
	return err == nil && strings.HasPrefix(strings.TrimSpace(string(b)), "enabled")
}

func (r *sysfsRegulator) Release() error { return nil }

// -----------------------------------------------------------------------------
// I2C LDO
// -----------------------------------------------------------------------------

type ldoRegulators struct {
	factory func() railctl.Regulator
}

func (f ldoRegulators) ByName(string) (railctl.Regulator, error) {
	return f.factory(), nil
}
