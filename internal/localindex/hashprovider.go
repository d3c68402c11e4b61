package localindex

import (
	"fmt"
	"path/filepath"

	"github.com/arnecode/dropsync/internal/hashutil"
)

// HashProvider computes the content hash of a local file addressed by its
// canonical relative path, the lazy "hash_provider: path → () → hash"
// side-table described in sync-algorithm.md §9 ("Two FileInfo
// hierarchies"). The reconciler and applier call this only when a
// classification actually needs the file's content hash, since most
// unchanged files never need rehashing (§4.2).
type HashProvider func(relPath string) (string, error)

// NewHashProvider returns a HashProvider rooted at localRoot.
func NewHashProvider(localRoot string) HashProvider {
	return func(relPath string) (string, error) {
		hash, err := hashutil.ComputeFile(filepath.Join(localRoot, relPath))
		if err != nil {
			return "", fmt.Errorf("localindex: hashing %s: %w", relPath, err)
		}

		return hash, nil
	}
}
