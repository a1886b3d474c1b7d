package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Target is one version-specific package checkout eligible for a
// differential test run: a directory holding an elm.json manifest and a
// tests/ subdirectory.
type Target struct {
	Path string
}

func (t Target) String() string { return t.Path }

// Walk traverses root three levels deep (author, package, version) and sends
// a Target for every version directory that qualifies. Entries at each level
// are visited in lexicographic order, so repeated runs discover targets in
// the same order. The out channel is closed on return, whatever the reason,
// so blocked receivers observe end-of-stream instead of hanging.
//
// Cancelling ctx stops the walk early without error. Any filesystem error
// aborts the walk; a corrupt corpus entry should halt the run for
// investigation rather than be skipped over.
func Walk(ctx context.Context, root string, out chan<- Target) error {
	defer close(out)

	authors, err := readDirSorted(root)
	if err != nil {
		return fmt.Errorf("failed to read corpus root: %w", err)
	}
	for _, author := range authors {
		packages, err := readDirSorted(filepath.Join(root, author))
		if err != nil {
			return fmt.Errorf("failed to read author dir %s: %w", author, err)
		}
		for _, pkg := range packages {
			versions, err := readDirSorted(filepath.Join(root, author, pkg))
			if err != nil {
				return fmt.Errorf("failed to read package dir %s/%s: %w", author, pkg, err)
			}
			for _, version := range versions {
				// poll shutdown between emissions; a buffered queue
				// would otherwise always win the select below
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				dir := filepath.Join(root, author, pkg, version)
				if !qualifies(dir) {
					continue
				}
				select {
				case out <- Target{Path: dir}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
	return nil
}

// qualifies reports whether dir contains both an elm.json manifest and a
// tests directory.
func qualifies(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "elm.json")); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, "tests"))
	return err == nil && info.IsDir()
}

func readDirSorted(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	// os.ReadDir already sorts by filename
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
