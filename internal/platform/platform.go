// internal/platform/platform.go
//
// Platform factories for the rail controller. The Linux build drives real
// GPIO lines through periph.io and regulators through sysfs or an I2C LDO;
// everywhere else (and with the nogpio tag) an in-memory fake keeps the
// daemon runnable for development.
package platform

import (
	"sync"

	"fpcontrol-go/services/railctl"
)

// Config selects the hardware backend.
type Config struct {
	// Backend: "sysfs" (default on Linux), "i2c" or "memory".
	Backend string `yaml:"backend,omitempty"`

	// Sysfs regulator consumer directory, e.g.
	// /sys/devices/platform/reg-userspace-consumer.0
	RegulatorDir string `yaml:"regulator_dir,omitempty"`

	// I2C LDO backend.
	I2CBus  string `yaml:"i2c_bus,omitempty"`
	I2CAddr uint16 `yaml:"i2c_addr,omitempty"`
}

// -----------------------------------------------------------------------------
// In-memory backend
// -----------------------------------------------------------------------------

type memPin struct {
	name  string
	mu    sync.Mutex
	level bool
}

func (p *memPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.level = initial
	p.mu.Unlock()
	return nil
}
func (p *memPin) Set(level bool) error {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	return nil
}
func (p *memPin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
func (p *memPin) Name() string { return p.name }

// MemoryPins resolves any name to a fresh in-memory line.
type MemoryPins struct {
	mu   sync.Mutex
	pins map[string]*memPin
}

func NewMemoryPins() *MemoryPins { return &MemoryPins{pins: map[string]*memPin{}} }

func (f *MemoryPins) ByName(name string) (railctl.Pin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[name]
	if !ok {
		p = &memPin{name: name}
		f.pins[name] = p
	}
	return p, true
}

type memReg struct {
	mu      sync.Mutex
	minUV   int
	maxUV   int
	loadUA  int
	enabled bool
}

func (r *memReg) SetVoltage(minUV, maxUV int) error {
	r.mu.Lock()
	r.minUV, r.maxUV = minUV, maxUV
	r.mu.Unlock()
	return nil
}
func (r *memReg) SetLoad(uA int) error {
	r.mu.Lock()
	r.loadUA = uA
	r.mu.Unlock()
	return nil
}
func (r *memReg) Enable() error {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
	return nil
}
func (r *memReg) Disable() error {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
	return nil
}
func (r *memReg) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}
func (r *memReg) Release() error { return nil }

// MemoryRegulators hands out one regulator per name.
type MemoryRegulators struct {
	mu   sync.Mutex
	regs map[string]*memReg
}

func NewMemoryRegulators() *MemoryRegulators { return &MemoryRegulators{regs: map[string]*memReg{}} }

func (f *MemoryRegulators) ByName(name string) (railctl.Regulator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[name]
	if !ok {
		r = &memReg{}
		f.regs[name] = r
	}
	return r, nil
}
