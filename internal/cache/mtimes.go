package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FixMtimes restores each entry's file mtime from the stored_at timestamp
// recorded in its envelope. Copies, checkouts, and backup restores clobber
// mtimes, which would scramble the oldest-first prune order; stored_at is
// the authoritative write time. Entries that cannot be decoded are left
// alone; they already read as misses. Returns how many entries were (or in
// a dry run, would be) fixed.
func (s *Store) FixMtimes(dryRun bool) (int, error) {
	entries, err := s.Index()
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, e := range entries {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.StoredAt.IsZero() {
			continue
		}
		if e.StoredAt.Truncate(time.Second).Equal(env.StoredAt.Truncate(time.Second)) {
			continue
		}
		if !dryRun {
			if err := os.Chtimes(e.Path, env.StoredAt, env.StoredAt); err != nil {
				return fixed, fmt.Errorf("cache: fixing mtime of %s: %w", e.Path, err)
			}
		}
		fixed++
	}
	return fixed, nil
}
