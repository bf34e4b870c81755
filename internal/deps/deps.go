// Package deps probes for the external binaries the pipeline shells out to:
// the video fetcher, ffmpeg, and optionally a local WhisperX install.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external binary and what the pipeline uses it for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the probe result for one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries probes every requirement on PATH. Results keep input order
// so operator-facing output stays stable across runs.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		statuses[i] = req.probe()
	}
	return statuses
}

func (r Requirement) probe() Status {
	status := Status{
		Name:        r.Name,
		Command:     strings.TrimSpace(r.Command),
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found on PATH", status.Command)
		return status
	}
	status.Available = true
	return status
}
