package git

import "fmt"

// PreflightResult is the outcome of inspecting an install before upgrade.
// Nothing in it blocks the upgrade; the backup captures local edits either way.
type PreflightResult struct {
	GitAvailable bool     `json:"git_available" yaml:"git_available"`
	Status       Status   `json:"status" yaml:"status"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Info         []string `json:"info,omitempty" yaml:"info,omitempty"`
}

// HasWarnings returns true if there are any warnings.
func (r *PreflightResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Preflight checks the install at root.
func (c *Checker) Preflight(root string) *PreflightResult {
	result := &PreflightResult{}

	if !c.GitAvailable() {
		result.Info = append(result.Info, "git not available - skipping working tree check")
		return result
	}
	result.GitAvailable = true

	status := c.CheckRepository(root)
	result.Status = status

	switch status.Level {
	case LevelWarning:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: %s; managed resources with local edits will be overwritten (a backup is taken first)", root, status.Message))
	case LevelError:
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", root, status.Message))
	case LevelInfo:
		result.Info = append(result.Info, fmt.Sprintf("%s: %s", root, status.Message))
	}

	return result
}
