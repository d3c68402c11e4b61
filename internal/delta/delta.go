// Package delta implements the Delta Computer (sync-algorithm.md §4.4):
// differencing a current index against the prior-pass snapshot to produce
// a (modified, removed) pair. Grounded on the teacher's
// internal/sync/delta.go batching loop, collapsed to the spec's pure,
// side-effect-free diff — there is no store or network fetch here, just
// two in-memory maps.
package delta

import "github.com/arnecode/dropsync/internal/model"

// Compute derives the delta of current against last (§4.4):
//
//   - modified[p] = current[p] for every p where last[p] is absent, or
//     last[p].Mtime < current[p].Mtime (strict less-than: an unchanged
//     mtime never enters modified, even if every other field matches).
//   - removed[p] = last[p] for every p present in last but absent from
//     current.
func Compute(current, last model.Index) model.Delta {
	d := model.NewDelta()

	for path, cur := range current {
		prior, ok := last.Get(path)
		if !ok || prior.Mtime < cur.Mtime {
			d.Modified.Set(cur)
		}
	}

	for path, prior := range last {
		if _, ok := current.Get(path); !ok {
			d.Removed.Set(prior)
		}
	}

	return d
}
