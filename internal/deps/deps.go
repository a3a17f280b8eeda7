// Package deps reports whether the external tools showcopier shells out to
// are installed.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Requirement names an external binary and why it is needed.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the binary to read its version.
	VersionArgs []string
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

const versionTimeout = 5 * time.Second

// CheckBinaries resolves each requirement on PATH and, when asked, reads the
// first line of its version output.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		if len(req.VersionArgs) > 0 {
			version, err := Version(ctx, resolved, req.VersionArgs...)
			if err != nil {
				status.Detail = fmt.Sprintf("version check failed: %v", err)
			} else {
				status.Version = version
			}
		}
		results = append(results, status)
	}
	return results
}

// Version runs binary with args and returns the first non-empty output line.
func Version(ctx context.Context, binary string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	output, err := exec.CommandContext(runCtx, binary, args...).Output() //nolint:gosec
	if err != nil {
		if runCtx.Err() != nil {
			return "", runCtx.Err()
		}
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s printed no version", binary)
}
