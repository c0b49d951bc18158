// Package opener opens a file in the OS default application.
package opener

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Open asks the desktop environment to open the file at path. The
// viewer is detached; Open returns once the launch is handed off.
func Open(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	return nil
}
