//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

// Show displays a macOS notification using osascript.
func Show(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`,
		escapeAppleScript(message), escapeAppleScript(title))
	cmd := exec.Command("osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast failed: %w\n%s", err, out)
	}
	return nil
}

// escapeAppleScript escapes backslashes and double quotes for embedding in
// an AppleScript string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
