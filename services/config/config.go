// services/config/config.go
//
// Daemon configuration: an embedded default overlaid by an optional YAML
// file. Sections are published to the bus as retained documents so
// services and tools can inspect the running configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fpcontrol-go/bus"
	"fpcontrol-go/internal/platform"
	"fpcontrol-go/services/ctl"
	"fpcontrol-go/services/eventlink"
	"fpcontrol-go/services/railctl"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the full daemon configuration.
type File struct {
	LogLevel string           `yaml:"log_level,omitempty"`
	Rail     railctl.Config   `yaml:"rail"`
	Platform platform.Config  `yaml:"platform,omitempty"`
	Events   eventlink.Config `yaml:"events"`
	Control  ctl.Config       `yaml:"control"`
}

// Default returns the embedded configuration.
func Default() File {
	var f File
	if err := yaml.Unmarshal(defaultYAML, &f); err != nil {
		// The embedded document is part of the build; it cannot be invalid.
		panic("config: embedded default: " + err.Error())
	}
	return f
}

// Load reads path over the embedded default. An empty path returns the
// default untouched; an unreadable or unparseable file is an error and
// the caller must not start with it.
func Load(path string) (File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return f, nil
}

// Publish stores each section as a retained {"config",<section>} document.
func Publish(conn *bus.Connection, f File) {
	for section, payload := range map[string]any{
		"log":      map[string]any{"level": f.LogLevel},
		"rail":     f.Rail,
		"platform": f.Platform,
		"events":   f.Events,
		"control":  f.Control,
	} {
		conn.Publish(conn.NewMessage(bus.T("config", section), payload, true))
	}
}
