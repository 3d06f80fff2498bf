//go:build !linux && !darwin

package notify

import "fmt"

// Show is unsupported on this platform; the engine treats that as a
// non-fatal delivery failure.
func Show(title, message string) error {
	return fmt.Errorf("toast: desktop notifications not supported on this platform")
}
