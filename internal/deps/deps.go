// Package deps reports whether the external tools plugins rely on are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary a plugin needs.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// Status is the result of looking up one Requirement.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// Tools turns a manifest's tool_requires list into requirements.
func Tools(names []string) []Requirement {
	reqs := make([]Requirement, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		reqs = append(reqs, Requirement{Name: n, Command: n})
	}
	return reqs
}

// CheckBinaries looks up every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		cmd := strings.TrimSpace(req.Command)
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// Satisfied reports whether every non-optional requirement is available.
func Satisfied(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			return false
		}
	}
	return true
}

// Missing returns the names of unavailable, non-optional requirements.
func Missing(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s.Name)
		}
	}
	return out
}

// Have is shorthand for checking a list of tool names.
func Have(names ...string) bool {
	return Satisfied(CheckBinaries(Tools(names)))
}

// DefaultRequirements lists the tools the built-in plugins use. Only ffmpeg
// is required; the rest enable optional behavior.
func DefaultRequirements(ffprobe string) []Requirement {
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	return []Requirement{
		{Name: "ffmpeg", Command: "ffmpeg"},
		{Name: "ffprobe", Command: ffprobe, Optional: true},
		{Name: "magick", Command: "magick", Optional: true},
		{Name: "heif-enc", Command: "heif-enc", Optional: true},
		{Name: "exiftool", Command: "exiftool", Optional: true},
	}
}
