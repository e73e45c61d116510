package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names a program a stage runs. Helpers are programs the tool
// itself shells out to (tar -J needs xz, debuild needs dpkg-buildpackage);
// a missing helper is reported but does not make the tool unavailable, since
// some distributions bundle them differently.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Helpers  []string
	Optional bool
}

// Status is the resolved state of one Requirement.
type Status struct {
	Requirement
	Path           string
	Available      bool
	Detail         string
	MissingHelpers []string
}

// CheckBinaries resolves every requirement against PATH. A command shared by
// several requirements is reported once, under the first name.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, 0, len(requirements))
	seen := map[string]bool{}
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Purpose = strings.TrimSpace(req.Purpose)
		if req.Command != "" {
			if seen[req.Command] {
				continue
			}
			seen[req.Command] = true
		}
		statuses = append(statuses, resolve(req))
	}
	return statuses
}

func resolve(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Path = path
	status.Available = true
	for _, helper := range req.Helpers {
		if _, err := exec.LookPath(helper); err != nil {
			status.MissingHelpers = append(status.MissingHelpers, helper)
		}
	}
	if len(status.MissingHelpers) > 0 {
		status.Detail = "missing helpers: " + strings.Join(status.MissingHelpers, ", ")
	}
	return status
}
