package output

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Displayer shows a rendered image file to the operator.
type Displayer interface {
	Display(path string) error
}

type DisplayerFunc func(path string) error

func (f DisplayerFunc) Display(path string) error {
	return f(path)
}

// SystemViewer opens images with the platform's default viewer, or with
// Command when it is set.
type SystemViewer struct {
	Command string
}

func (v SystemViewer) Display(path string) error {
	name, args := v.command(path)
	if name == "" {
		return fmt.Errorf("no image viewer available on %s", runtime.GOOS)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return cmd.Process.Release()
}

func (v SystemViewer) command(path string) (string, []string) {
	if fields := strings.Fields(v.Command); len(fields) > 0 {
		return fields[0], append(fields[1:], path)
	}
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{path}
	default:
		return "", nil
	}
}
