package apply

import (
	"context"
	"fmt"

	"github.com/arnecode/dropsync/internal/remotestore"
)

// Stat probes a single remote path (§4.6 "Metadata probe"). A nil, nil
// result means "not found" — a normal signal, not an error. Any other
// failure propagates to the caller, unlike the per-action Records of the
// other four primitives: a probe has no staged action to skip past.
func (a *Applier) Stat(ctx context.Context, relPath string) (*remotestore.Entry, error) {
	entry, err := a.store.Stat(ctx, a.remotePath(relPath))
	if err != nil {
		return nil, fmt.Errorf("apply: stat %s: %w", relPath, err)
	}

	return entry, nil
}
