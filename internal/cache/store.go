// Package cache implements the disk-backed response cache used by the Trakt
// client. Entries are JSON envelopes keyed by a digest of the request
// identity and sharded into two-character prefix directories. File size and
// mtime double as the index: stats and pruning never read payload bodies.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store is a response cache rooted at a base directory. The zero value is
// not usable; construct with New. A Store assumes it is the only writer to
// its directory during a run, but tolerates entries a crashed prior run
// left behind.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

// Key derives the cache key for a request: a SHA-256 over the path and the
// sorted query parameters. Sorting makes the key independent of map
// iteration order.
func Key(path string, params url.Values) string {
	h := sha256.New()
	fmt.Fprintf(h, "GET %s", path)
	if len(params) > 0 {
		// url.Values.Encode sorts by key.
		fmt.Fprintf(h, "?%s", params.Encode())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// envelope is the on-disk entry format. URL is informational, for debugging
// a cache directory by hand.
type envelope struct {
	Key      string          `json:"key"`
	URL      string          `json:"url"`
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.dir, key[:2], key+".json")
}

// Get returns the stored payload for key, regardless of its age. A missing,
// truncated, or otherwise undecodable entry is a miss, never an error: the
// caller re-fetches and the next Put repairs the entry.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Key != key || len(env.Payload) == 0 {
		return nil, false
	}
	return env.Payload, true
}

// Put writes or overwrites the entry for key. The write is durable before
// Put returns: the envelope goes to a temp file, is fsynced, and is renamed
// into place so a concurrent or crashed reader never sees a partial entry.
func (s *Store) Put(key, rawURL string, payload json.RawMessage) error {
	env := envelope{
		Key:      key,
		URL:      rawURL,
		StoredAt: time.Now().UTC(),
		Payload:  payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cache: encoding entry %s: %w", key, err)
	}

	path := s.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: storing entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *Store) Delete(key string) error {
	err := os.Remove(s.entryPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: deleting entry %s: %w", key, err)
	}
	return nil
}

// EntryInfo is the index row for one stored entry, taken from the directory
// listing without opening the file. Key is recovered from the filename.
type EntryInfo struct {
	Key      string
	Path     string
	Size     int64
	StoredAt time.Time
}

// Index enumerates all entries by walking the shard directories. Temp files
// and anything that is not a .json entry are ignored, so an interrupted Put
// or a foreign file never breaks enumeration.
func (s *Store) Index() ([]EntryInfo, error) {
	var entries []EntryInfo
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.dir {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Deleted between listing and stat: ignore.
			return nil
		}
		entries = append(entries, EntryInfo{
			Key:      strings.TrimSuffix(filepath.Base(path), ".json"),
			Path:     path,
			Size:     info.Size(),
			StoredAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: reading index: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Stats summarizes the cache without reading any payloads.
type Stats struct {
	EntryCount int
	TotalSize  int64
	Oldest     time.Time
	Newest     time.Time
}

// Stats reports entry count, total size, and the oldest and newest stored
// timestamps. It does not mutate the store.
func (s *Store) Stats() (Stats, error) {
	entries, err := s.Index()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{EntryCount: len(entries)}
	for _, e := range entries {
		st.TotalSize += e.Size
		if st.Oldest.IsZero() || e.StoredAt.Before(st.Oldest) {
			st.Oldest = e.StoredAt
		}
		if e.StoredAt.After(st.Newest) {
			st.Newest = e.StoredAt
		}
	}
	return st, nil
}
