package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement is one external tool subforge drives.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional tools only matter for some targets (sup output, merge mode).
	Optional bool
}

// Status reports whether a requirement resolved to a runnable binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// CheckBinaries resolves every requirement. Absolute commands are checked in
// place; bare names go through PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		status.Path, status.Detail = resolveCommand(status.Command)
		status.Available = status.Path != ""
		results = append(results, status)
	}
	return results
}

func resolveCommand(cmd string) (path, detail string) {
	switch {
	case cmd == "":
		return "", "command not configured"
	case filepath.IsAbs(cmd):
		if isExecutableFile(cmd) {
			return cmd, ""
		}
		return "", fmt.Sprintf("%s is not an executable file", cmd)
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		return "", fmt.Sprintf("binary %q not found", cmd)
	}
	return resolved, ""
}

// Missing splits the unavailable statuses into required and optional names.
func Missing(statuses []Status) (required, optional []string) {
	for _, status := range statuses {
		switch {
		case status.Available:
		case status.Optional:
			optional = append(optional, status.Name)
		default:
			required = append(required, status.Name)
		}
	}
	return required, optional
}
