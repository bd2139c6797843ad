//go:build windows

package launcher

import "os"

// Windows has no SIGTERM; TerminateProcess is the closest equivalent and is
// what os.Process.Kill calls into on this platform.
func terminate(p *os.Process) error {
	return p.Kill()
}
