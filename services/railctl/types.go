// services/railctl/types.go
package railctl

// ---- Hardware abstractions ----
//
// The controller never touches hardware directly; platform code injects
// factories for pins and regulators.

// Pin is a single GPIO output line.
type Pin interface {
	ConfigureOutput(initial bool) error
	Set(level bool) error
	Level() bool
	Name() string
}

// Regulator is a controllable supply rail. Handles are acquired from a
// RegulatorFactory, configured, enabled, and eventually released.
type Regulator interface {
	SetVoltage(minUV, maxUV int) error
	SetLoad(uA int) error
	Enable() error
	Disable() error
	Enabled() bool
	// Release drops the handle; the regulator must not be used afterwards.
	Release() error
}

// PinFactory supplies GPIO lines by the platform naming scheme.
type PinFactory interface {
	ByName(name string) (Pin, bool)
}

// RegulatorFactory acquires a rail handle by name.
type RegulatorFactory interface {
	ByName(name string) (Regulator, error)
}

// ---- Configuration ----

// PinState is one pin level inside a named pin configuration.
type PinState struct {
	Pin   string `yaml:"pin"`
	Level bool   `yaml:"level"`
}

// VoltageWindow is the allowed rail voltage range in microvolts.
type VoltageWindow struct {
	MinUV int `yaml:"min_uv"`
	MaxUV int `yaml:"max_uv"`
}

// Config describes the hardware this controller owns. All names are
// resolved once at construction; a missing name is fatal.
type Config struct {
	// Regulator path (default). Ignored when PowerGPIO is set.
	Regulator string        `yaml:"regulator"`
	Voltage   VoltageWindow `yaml:"voltage"`
	LoadUA    int           `yaml:"load_ua"`

	// Optional GPIO power path, mirroring boards that gate the rail with a
	// discrete enable line instead of a controllable regulator.
	PowerGPIO string `yaml:"power_gpio,omitempty"`

	// Named pin configurations and the two used by the reset sequence.
	PinConfigs   map[string][]PinState `yaml:"pin_configs"`
	ResetAssert  string                `yaml:"reset_assert"`
	ResetRelease string                `yaml:"reset_release"`

	// Minimum reset pulse width; values below the hardware minimum of 10 ms
	// are raised to it.
	ResetPulseMS int `yaml:"reset_pulse_ms,omitempty"`
}

// Default matches the reference board: a 3.3 V / 150 mA LDO and a reset
// line driven through two pin configurations.
func Default() Config {
	return Config{
		Regulator: "ldo",
		Voltage:   VoltageWindow{MinUV: 3_300_000, MaxUV: 3_300_000},
		LoadUA:    150_000,
		PinConfigs: map[string][]PinState{
			"anc_reset_reset":  {{Pin: "FP_RST", Level: false}},
			"anc_reset_active": {{Pin: "FP_RST", Level: true}},
		},
		ResetAssert:  "anc_reset_reset",
		ResetRelease: "anc_reset_active",
		ResetPulseMS: 10,
	}
}
