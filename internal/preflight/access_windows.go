//go:build windows

package preflight

import "os"

// checkAccess creates and removes a probe file; Windows ACLs are not
// reflected in mode bits.
func checkAccess(path string) error {
	probe, err := os.CreateTemp(path, ".subforge-access-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
