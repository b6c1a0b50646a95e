// services/railctl/controller.go
package railctl

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fpcontrol-go/bus"
	"fpcontrol-go/errcode"
	"fpcontrol-go/pkg/log"
	"fpcontrol-go/x/mathx"
	"fpcontrol-go/x/timex"
)

// minResetPulse is the hardware minimum width of each reset phase.
const minResetPulse = 10 * time.Millisecond

// resolvedState is a pin configuration entry after name resolution.
type resolvedState struct {
	pin   Pin
	level bool
}

// Controller owns the sensor's power rail, power/reset GPIO lines and the
// pre-resolved named pin configurations. One mutex serializes every
// hardware-mutating operation; concurrent callers never observe a
// half-applied configuration or power state.
type Controller struct {
	log  *log.Logger
	conn *bus.Connection // optional; retained state docs
	cfg  Config

	regs RegulatorFactory

	mu         sync.Mutex
	configs    map[string][]resolvedState
	powerPin   Pin // nil unless the GPIO power path is configured
	rail       Regulator
	powered    bool
	lastConfig string

	sleep func(time.Duration) // swapped out by tests
}

// NewController resolves every named pin configuration and the optional
// power line up front. Any unresolved name is a construction error; the
// daemon must not come up half-wired.
func NewController(cfg Config, pins PinFactory, regs RegulatorFactory, lg *log.Logger, conn *bus.Connection) (*Controller, error) {
	if lg == nil {
		lg = log.Discard()
	}
	c := &Controller{
		log:     lg.Named("railctl"),
		conn:    conn,
		cfg:     cfg,
		regs:    regs,
		configs: make(map[string][]resolvedState, len(cfg.PinConfigs)),
		sleep:   time.Sleep,
	}

	if len(cfg.PinConfigs) == 0 {
		return nil, &errcode.E{C: errcode.NotFound, Op: "railctl.new", Msg: "no pin configurations"}
	}
	configured := map[string]bool{}
	for name, states := range cfg.PinConfigs {
		if len(states) == 0 {
			return nil, &errcode.E{C: errcode.InvalidArgument, Op: "railctl.new", Msg: "empty pin configuration " + name}
		}
		resolved := make([]resolvedState, 0, len(states))
		for _, st := range states {
			pin, ok := pins.ByName(st.Pin)
			if !ok {
				return nil, &errcode.E{C: errcode.NotFound, Op: "railctl.new", Msg: "pin " + st.Pin + " for configuration " + name}
			}
			if !configured[st.Pin] {
				if err := pin.ConfigureOutput(false); err != nil {
					return nil, errcode.Wrap(errcode.HardwareFault, "railctl.new", err)
				}
				configured[st.Pin] = true
			}
			resolved = append(resolved, resolvedState{pin: pin, level: st.Level})
		}
		c.configs[name] = resolved
		c.log.Debug("resolved pin configuration", "name", name, "pins", len(resolved))
	}
	for _, required := range []string{cfg.ResetAssert, cfg.ResetRelease} {
		if _, ok := c.configs[required]; !ok {
			return nil, &errcode.E{C: errcode.NotFound, Op: "railctl.new", Msg: "reset configuration " + required}
		}
	}

	if cfg.PowerGPIO != "" {
		pin, ok := pins.ByName(cfg.PowerGPIO)
		if !ok {
			return nil, &errcode.E{C: errcode.NotFound, Op: "railctl.new", Msg: "power gpio " + cfg.PowerGPIO}
		}
		if err := pin.ConfigureOutput(false); err != nil {
			return nil, errcode.Wrap(errcode.HardwareFault, "railctl.new", err)
		}
		c.powerPin = pin
		c.log.Info("using GPIO power path", "pin", cfg.PowerGPIO)
	}

	return c, nil
}

// ConfigNames reports the resolved pin configuration names (for the control
// surface's validation and help output).
func (c *Controller) ConfigNames() []string {
	names := make([]string, 0, len(c.configs))
	for n := range c.configs {
		names = append(names, n)
	}
	return names
}

// SetPower enables or disables the sensor supply. With a GPIO power path
// the line is driven directly; otherwise the rail handle is acquired
// lazily, configured and enabled, and released again on disable.
func (c *Controller) SetPower(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setPowerLocked(on)
}

func (c *Controller) setPowerLocked(on bool) error {
	if c.powerPin != nil {
		if err := c.powerPin.Set(on); err != nil {
			return errcode.Wrap(errcode.HardwareFault, "railctl.power", err)
		}
		c.powered = on
		c.publishState()
		c.log.Info("power set", "on", on, "path", "gpio")
		return nil
	}
	if on {
		return c.railUpLocked()
	}
	return c.railDownLocked()
}

func (c *Controller) railUpLocked() error {
	if c.rail == nil {
		rail, err := c.regs.ByName(c.cfg.Regulator)
		if err != nil {
			return errcode.Wrap(errcode.HardwareFault, "railctl.power", err)
		}
		c.rail = rail
	}
	minUV := c.cfg.Voltage.MinUV
	maxUV := c.cfg.Voltage.MaxUV
	if maxUV < minUV {
		maxUV = minUV
	}
	if err := c.rail.SetVoltage(minUV, maxUV); err != nil {
		return errcode.Wrap(errcode.HardwareFault, "railctl.power", err)
	}
	if err := c.rail.SetLoad(c.cfg.LoadUA); err != nil {
		return errcode.Wrap(errcode.HardwareFault, "railctl.power", err)
	}
	if err := c.rail.Enable(); err != nil {
		// A rail that refuses to enable is not kept around.
		_ = c.rail.Release()
		c.rail = nil
		return errcode.Wrap(errcode.HardwareFault, "railctl.power", err)
	}
	c.powered = true
	c.publishState()
	c.log.Info("rail enabled", "regulator", c.cfg.Regulator,
		"min_uv", minUV, "max_uv", maxUV, "load_ua", c.cfg.LoadUA)
	return nil
}

func (c *Controller) railDownLocked() error {
	if c.rail == nil {
		c.powered = false
		c.publishState()
		return nil
	}
	var errs []error
	if c.rail.Enabled() {
		if err := c.rail.Disable(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.rail.Release(); err != nil {
		errs = append(errs, err)
	}
	c.rail = nil
	c.powered = false
	c.publishState()
	c.log.Info("rail disabled", "regulator", c.cfg.Regulator)
	return errcode.Wrap(errcode.HardwareFault, "railctl.power", errors.Join(errs...))
}

// SelectPinConfig applies a named pin configuration. Unknown names return
// not_found and leave the hardware untouched.
func (c *Controller) SelectPinConfig(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(name)
}

func (c *Controller) selectLocked(name string) error {
	states, ok := c.configs[name]
	if !ok {
		c.log.Warn("pin configuration not found", "name", name)
		return &errcode.E{C: errcode.NotFound, Op: "railctl.pinctl", Msg: name}
	}
	for _, st := range states {
		if err := st.pin.Set(st.level); err != nil {
			c.log.Error("cannot apply pin configuration", "name", name, "pin", st.pin.Name(), "err", err)
			return errcode.Wrap(errcode.HardwareFault, "railctl.pinctl", err)
		}
	}
	c.lastConfig = name
	c.publishState()
	c.log.Debug("selected pin configuration", "name", name)
	return nil
}

// Reset pulses the sensor reset line: assert, hold, release, hold. Both
// phases are always attempted even if the first fails; the combined error
// is returned.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pulse := time.Duration(mathx.Clamp(c.cfg.ResetPulseMS, 10, 1000)) * time.Millisecond
	if pulse < minResetPulse {
		pulse = minResetPulse
	}

	c.log.Info("reset sequence", "pulse", pulse)
	errAssert := c.selectLocked(c.cfg.ResetAssert)
	c.sleep(pulse)
	errRelease := c.selectLocked(c.cfg.ResetRelease)
	c.sleep(pulse)
	return errors.Join(errAssert, errRelease)
}

// Powered reports the last commanded power state.
func (c *Controller) Powered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.powered
}

// Close releases the rail handle. Called by the lifecycle coordinator
// during teardown; the power state is left as commanded.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rail == nil {
		return nil
	}
	err := c.rail.Release()
	c.rail = nil
	return errcode.Wrap(errcode.HardwareFault, "railctl.close", err)
}

// publishState keeps a retained railctl/state document on the bus.
// Callers hold c.mu.
func (c *Controller) publishState() {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(bus.T("railctl", "state"), map[string]any{
		"powered":    c.powered,
		"pin_config": c.lastConfig,
		"rail_live":  c.rail != nil,
		"ts_ms":      timex.NowMs(),
	}, true))
}

// String helps debug output in tests and the control surface.
func (c *Controller) String() string {
	return fmt.Sprintf("railctl(regulator=%s, configs=%d)", c.cfg.Regulator, len(c.configs))
}
