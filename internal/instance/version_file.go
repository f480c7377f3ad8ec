package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultVersionFile is the package descriptor holding the installed version.
const DefaultVersionFile = "package.json"

// ErrNoVersion is returned when the version file has no usable version field.
var ErrNoVersion = errors.New("version field is missing")

// fsPackage represents the relevant parts of package.json.
type fsPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadVersion returns the raw version string recorded in the installation's
// version file. versionFile is relative to root; empty means package.json.
func ReadVersion(root, versionFile string) (string, error) {
	if versionFile == "" {
		versionFile = DefaultVersionFile
	}
	path := filepath.Join(root, filepath.FromSlash(versionFile))

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pkg fsPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if pkg.Version == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoVersion)
	}
	return pkg.Version, nil
}
