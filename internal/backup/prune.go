package backup

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultKeepCount is the default number of backups to retain.
const DefaultKeepCount = 10

// ErrNegativeKeep is returned for a PrunePolicy with Keep below zero.
var ErrNegativeKeep = errors.New("keep count must be non-negative")

// PrunePolicy selects which snapshots Prune removes.
type PrunePolicy struct {
	// Keep is how many of the newest snapshots always survive.
	Keep int
	// OlderThan, when set, spares snapshots younger than this age even
	// beyond Keep.
	OlderThan time.Duration
	// Now is the reference time for OlderThan; zero means time.Now.
	Now time.Time
}

// PruneResult reports what Prune removed.
type PruneResult struct {
	Deleted    []BackupInfo `json:"deleted" yaml:"deleted"`
	Kept       int          `json:"kept" yaml:"kept"`
	FreedBytes int64        `json:"freed_bytes" yaml:"freed_bytes"`
}

// Versions returns the Teddy version of each deleted snapshot, or "unknown"
// where the snapshot had no readable version file.
func (r *PruneResult) Versions() []string {
	versions := make([]string, 0, len(r.Deleted))
	for _, b := range r.Deleted {
		if b.Version == "" {
			versions = append(versions, "unknown")
			continue
		}
		versions = append(versions, b.Version)
	}
	return versions
}

// Prune removes snapshots outside the policy, newest first order preserved.
// A failed delete stops the sweep and returns what was removed so far.
func (m *Manager) Prune(policy PrunePolicy) (*PruneResult, error) {
	if policy.Keep < 0 {
		return nil, ErrNegativeKeep
	}
	now := policy.Now
	if now.IsZero() {
		now = time.Now()
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}
	for i, b := range backups {
		if i < policy.Keep || (policy.OlderThan > 0 && now.Sub(b.CreatedAt) < policy.OlderThan) {
			result.Kept++
			continue
		}
		if err := m.Delete(b.ID); err != nil {
			return result, err
		}
		m.logger.Debug("Pruned backup", "id", b.ID, "version", b.Version, "size", humanize.Bytes(uint64(b.Size)))
		result.Deleted = append(result.Deleted, b)
		result.FreedBytes += b.Size
	}

	return result, nil
}
