package instance

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrInvalidInstance is returned when a directory tree is missing a managed resource.
var ErrInvalidInstance = errors.New("invalid installation")

// MissingResourceError names the first manifest resource absent from a root.
type MissingResourceError struct {
	Root     string
	Resource string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("the resource '%s' does not exist in '%s'", e.Resource, e.Root)
}

// Unwrap lets errors.Is match ErrInvalidInstance.
func (e *MissingResourceError) Unwrap() error {
	return ErrInvalidInstance
}

// Validator checks installation roots against a manifest.
type Validator struct {
	manifest Manifest
	logger   *slog.Logger
}

// NewValidator creates a validator for the given manifest.
func NewValidator(manifest Manifest, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{manifest: manifest, logger: logger}
}

// Validate checks every manifest entry exists under root, in manifest order,
// and stops at the first one missing.
func (v *Validator) Validate(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: '%s' does not exist", ErrInvalidInstance, root)
		}
		return fmt.Errorf("failed to stat '%s': %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: '%s' is not a directory", ErrInvalidInstance, root)
	}

	for _, entry := range v.manifest.Entries() {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(entry.Path))); err != nil {
			return &MissingResourceError{Root: root, Resource: entry.Path}
		}
	}
	return nil
}

// IsValid is Validate reduced to a boolean, logging the reason on failure.
func (v *Validator) IsValid(root string) bool {
	if err := v.Validate(root); err != nil {
		var missing *MissingResourceError
		if errors.As(err, &missing) {
			v.logger.Error("Installation is missing a managed resource",
				"resource", missing.Resource, "root", missing.Root)
		} else {
			v.logger.Error("Installation is not valid", "root", root, "error", err)
		}
		return false
	}
	return true
}
