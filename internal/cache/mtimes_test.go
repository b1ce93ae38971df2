package cache

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestFixMtimes_RestoresStoredAt(t *testing.T) {
	store := New(t.TempDir())
	key := Key("/sync/history", nil)
	if err := store.Put(key, "https://api.trakt.tv/sync/history", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	clobbered := time.Now().Add(-90 * 24 * time.Hour)
	if err := os.Chtimes(entries[0].Path, clobbered, clobbered); err != nil {
		t.Fatal(err)
	}

	fixed, err := store.FixMtimes(false)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 1 {
		t.Errorf("expected 1 fixed entry, got %d", fixed)
	}

	data, err := os.ReadFile(entries[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		StoredAt time.Time `json:"stored_at"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}

	after, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if !after[0].StoredAt.Truncate(time.Second).Equal(env.StoredAt.Truncate(time.Second)) {
		t.Errorf("mtime %v not restored to stored_at %v", after[0].StoredAt, env.StoredAt)
	}
}

func TestFixMtimes_DryRunTouchesNothing(t *testing.T) {
	store := New(t.TempDir())
	key := Key("/users/me", nil)
	if err := store.Put(key, "https://api.trakt.tv/users/me", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	clobbered := time.Now().Add(-90 * 24 * time.Hour)
	if err := os.Chtimes(entries[0].Path, clobbered, clobbered); err != nil {
		t.Fatal(err)
	}

	fixed, err := store.FixMtimes(true)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 1 {
		t.Errorf("expected 1 fixable entry, got %d", fixed)
	}

	after, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if !after[0].StoredAt.Truncate(time.Second).Equal(clobbered.Truncate(time.Second)) {
		t.Errorf("dry run changed mtime to %v", after[0].StoredAt)
	}
}

func TestFixMtimes_SkipsCorruptEntries(t *testing.T) {
	store := New(t.TempDir())
	key := Key("/sync/playback", nil)
	if err := store.Put(key, "https://api.trakt.tv/sync/playback", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(entries[0].Path, []byte("{garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	fixed, err := store.FixMtimes(false)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 0 {
		t.Errorf("expected corrupt entry to be skipped, fixed %d", fixed)
	}
}
