package library

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultOpener is the platform's "open with default application" command.
func DefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "rundll32 url.dll,FileProtocolHandler"
	default:
		return "xdg-open"
	}
}

// CommandOpener runs Command (split on whitespace) with the file path as
// its final argument. An empty Command uses DefaultOpener.
type CommandOpener struct {
	Command string
}

func (o CommandOpener) Open(path string) error {
	command := o.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultOpener()
	}
	fields := strings.Fields(command)
	args := append(fields[1:], path)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(fields[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &OpenError{
			Command: command,
			Path:    path,
			Stdout:  strings.TrimSpace(stdout.String()),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return nil
}

// OpenError carries the captured output of a failed opener.
type OpenError struct {
	Command string
	Path    string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *OpenError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Command, e.Path, e.Err)
	if e.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout: %s", e.Stdout)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr: %s", e.Stderr)
	}
	return b.String()
}

func (e *OpenError) Unwrap() error { return e.Err }
