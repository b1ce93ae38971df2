package cache

import (
	"sort"
	"time"
)

// PruneResult reports what a prune pass reclaimed.
type PruneResult struct {
	Deleted        int
	BytesReclaimed int64
	Remaining      int
	RemainingBytes int64
}

// Prune deletes entries oldest-first until the total size is at or below
// maxTotalBytes. Entries younger than minAge are never deleted, even when
// that leaves the store over the size bound: a fresh entry may not have been
// consumed by the run that wrote it yet. A dryRun pass reports what would be
// deleted without touching the store.
func (s *Store) Prune(maxTotalBytes int64, minAge time.Duration, dryRun bool) (PruneResult, error) {
	entries, err := s.Index()
	if err != nil {
		return PruneResult{}, err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})

	cutoff := time.Now().Add(-minAge)
	res := PruneResult{Remaining: len(entries), RemainingBytes: total}

	for _, e := range entries {
		if res.RemainingBytes <= maxTotalBytes {
			break
		}
		if e.StoredAt.After(cutoff) {
			// Entries are sorted oldest-first, so everything from here
			// on is younger than the age floor.
			break
		}
		if !dryRun {
			if err := s.Delete(e.Key); err != nil {
				return res, err
			}
		}
		res.Deleted++
		res.BytesReclaimed += e.Size
		res.Remaining--
		res.RemainingBytes -= e.Size
	}

	return res, nil
}
