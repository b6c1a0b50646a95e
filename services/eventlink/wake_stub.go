//go:build !linux || nowake

package eventlink

// PlatformHolder has no suspend blocker to offer on this host.
func PlatformHolder(string) Holder { return NopHolder{} }
