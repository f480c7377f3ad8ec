package diff

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/teddyful/teddy-upgrader/internal/fsutil"
	"github.com/teddyful/teddy-upgrader/internal/instance"
	"github.com/teddyful/teddy-upgrader/internal/types"
)

// Options tunes Compute.
type Options struct {
	// Generated lists install-relative paths removed during replacement.
	Generated []string
	// Exclude is a path component skipped while fingerprinting, such as
	// node_modules.
	Exclude string
}

// Compute compares every manifest resource in liveRoot with its counterpart
// in releaseRoot.
func Compute(manifest instance.Manifest, liveRoot, releaseRoot string, opts Options) (*Result, error) {
	result := &Result{}

	for _, pair := range manifest.Pairs(releaseRoot, liveRoot) {
		rel, err := filepath.Rel(releaseRoot, pair.Source)
		if err != nil {
			return nil, err
		}
		res := ResourceDiff{Path: filepath.ToSlash(rel), Kind: pair.Kind}

		if pair.Kind.IsDirectory() {
			err = compareDirs(&res, pair.Target, pair.Source, opts.Exclude)
		} else {
			err = compareFiles(&res, pair.Target, pair.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s: %w", res.Path, err)
		}
		result.Resources = append(result.Resources, res)
	}

	for _, g := range opts.Generated {
		target := filepath.Join(liveRoot, filepath.FromSlash(g))
		if !fsutil.Exists(target) {
			continue
		}
		kind := types.ResourceKindFile
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			kind = types.ResourceKindDirectory
		}
		result.Resources = append(result.Resources, ResourceDiff{
			Path:      g,
			Kind:      kind,
			Action:    ActionRemove,
			Generated: true,
		})
	}

	return result, nil
}

func compareFiles(res *ResourceDiff, live, release string) error {
	liveExists := fsutil.Exists(live)
	releaseExists := fsutil.Exists(release)

	switch {
	case !releaseExists && !liveExists:
		res.Action = ActionNone
		return nil
	case !releaseExists:
		res.Action = ActionRemove
		return nil
	case !liveExists:
		res.Action = ActionAdd
		return nil
	}

	a, err := hashFile(live)
	if err != nil {
		return err
	}
	b, err := hashFile(release)
	if err != nil {
		return err
	}
	res.Action = ActionNone
	if a != b {
		res.Action = ActionUpdate
	}
	return nil
}

func compareDirs(res *ResourceDiff, live, release, exclude string) error {
	releaseSums, err := fingerprint(release, exclude)
	if err != nil {
		return err
	}
	liveSums, err := fingerprint(live, exclude)
	if err != nil {
		return err
	}

	for rel, sum := range releaseSums {
		liveSum, ok := liveSums[rel]
		switch {
		case !ok:
			res.Added++
		case liveSum != sum:
			res.Changed++
		}
	}
	for rel := range liveSums {
		if _, ok := releaseSums[rel]; !ok {
			res.Removed++
		}
	}

	switch {
	case releaseSums == nil && liveSums == nil:
		res.Action = ActionNone
	case releaseSums == nil:
		res.Action = ActionRemove
	case liveSums == nil:
		res.Action = ActionAdd
	case res.Added+res.Changed+res.Removed > 0:
		res.Action = ActionUpdate
	default:
		res.Action = ActionNone
	}
	return nil
}

// fingerprint maps every regular file under root to its xxhash digest. A
// missing root yields a nil map.
func fingerprint(root, exclude string) (map[string]uint64, error) {
	if !fsutil.Exists(root) {
		return nil, nil
	}

	sums := make(map[string]uint64)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if exclude != "" && d.IsDir() && d.Name() == exclude && path != root {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, err := hashFile(path)
		if err != nil {
			return err
		}
		sums[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sums, nil
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Describe renders a one-line description of a resource diff.
func (d ResourceDiff) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", d.Action, d.Path)
	if d.Kind.IsDirectory() {
		b.WriteString("/")
	}
	if d.Generated {
		b.WriteString(" (generated)")
	}
	if d.Kind.IsDirectory() && d.Action == ActionUpdate {
		fmt.Fprintf(&b, " (+%d ~%d -%d files)", d.Added, d.Changed, d.Removed)
	}
	return b.String()
}
