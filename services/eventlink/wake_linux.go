//go:build linux && !nowake

package eventlink

import "os"

const (
	wakeLockPath   = "/sys/power/wake_lock"
	wakeUnlockPath = "/sys/power/wake_unlock"
)

// SysfsHolder blocks suspend through the kernel wakelock interface.
type SysfsHolder struct {
	// Name identifies this daemon's lock to the kernel.
	Name string
}

func (h SysfsHolder) name() string {
	if h.Name == "" {
		return "fpcontrold"
	}
	return h.Name
}

func (h SysfsHolder) Hold() error {
	return os.WriteFile(wakeLockPath, []byte(h.name()), 0o200)
}

func (h SysfsHolder) Drop() error {
	return os.WriteFile(wakeUnlockPath, []byte(h.name()), 0o200)
}

// PlatformHolder returns the kernel wakelock holder when the interface is
// present, otherwise a no-op.
func PlatformHolder(name string) Holder {
	if _, err := os.Stat(wakeLockPath); err != nil {
		return NopHolder{}
	}
	return SysfsHolder{Name: name}
}
