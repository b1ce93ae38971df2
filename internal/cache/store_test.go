package cache

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	params := url.Values{}
	params.Set("extended", "full")
	params.Set("page", "1")

	k1 := Key("/sync/history", params)
	k2 := Key("/sync/history", url.Values{"page": {"1"}, "extended": {"full"}})
	if k1 != k2 {
		t.Errorf("same request produced different keys: %s vs %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("expected 64-char hex key, got %d chars", len(k1))
	}
}

func TestKey_DistinguishesRequests(t *testing.T) {
	base := Key("/sync/history", nil)
	cases := []struct {
		name   string
		path   string
		params url.Values
	}{
		{"different path", "/sync/watched", nil},
		{"extra param", "/sync/history", url.Values{"page": {"2"}}},
	}
	for _, tc := range cases {
		if got := Key(tc.path, tc.params); got == base {
			t.Errorf("%s: key collision with base request", tc.name)
		}
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	key := Key("/users/me", nil)
	payload := json.RawMessage(`{"username":"sam"}`)

	if err := s.Put(key, "https://api.trakt.tv/users/me", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get(key)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %s want %s", got, payload)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s := New(t.TempDir())
	key := Key("/users/me", nil)

	if err := s.Put(key, "u", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put(key, "u", json.RawMessage(`{"v":2}`)); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, ok := s.Get(key)
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if string(got) != `{"v":2}` {
		t.Errorf("expected overwritten payload, got %s", got)
	}

	entries, err := s.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("overwrite must not append: %d entries", len(entries))
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New(t.TempDir())
	if _, ok := s.Get(Key("/nope", nil)); ok {
		t.Error("expected miss for never-stored key")
	}
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	key := Key("/users/me", nil)

	if err := s.Put(key, "u", json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Truncate the entry mid-file.
	path := filepath.Join(dir, key[:2], key+".json")
	if err := os.WriteFile(path, []byte(`{"key":"`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(key); ok {
		t.Error("truncated entry must be treated as a miss")
	}

	// A later successful fetch silently replaces it.
	if err := s.Put(key, "u", json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("re-Put: %v", err)
	}
	if _, ok := s.Get(key); !ok {
		t.Error("expected hit after corrupt entry was replaced")
	}
}

func TestStore_KeyMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	key := Key("/users/me", nil)
	other := Key("/users/you", nil)

	if err := s.Put(other, "u", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	// Entry moved under the wrong key, e.g. by a hand-edited cache dir.
	if err := os.MkdirAll(filepath.Join(dir, key[:2]), 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, other[:2], other+".json")
	dst := filepath.Join(dir, key[:2], key+".json")
	if err := os.Rename(src, dst); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(key); ok {
		t.Error("entry whose envelope key disagrees with its filename must be a miss")
	}
}

func TestStore_Stats(t *testing.T) {
	s := New(t.TempDir())

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if st.EntryCount != 0 || st.TotalSize != 0 {
		t.Errorf("empty store stats: %+v", st)
	}

	for _, p := range []string{"/a", "/b", "/c"} {
		if err := s.Put(Key(p, nil), "u", json.RawMessage(`{"x":1}`)); err != nil {
			t.Fatal(err)
		}
	}

	st, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.EntryCount != 3 {
		t.Errorf("expected 3 entries, got %d", st.EntryCount)
	}
	if st.TotalSize <= 0 {
		t.Errorf("expected positive total size, got %d", st.TotalSize)
	}
	if st.Oldest.IsZero() || st.Newest.Before(st.Oldest) {
		t.Errorf("inconsistent timestamps: oldest=%v newest=%v", st.Oldest, st.Newest)
	}
}

func TestStore_IndexIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Put(Key("/a", nil), "u", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	// Leftover temp file from an interrupted Put plus a stray file.
	if err := os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestStore_IndexRecoversKeys(t *testing.T) {
	s := New(t.TempDir())
	key := Key("/a", nil)
	if err := s.Put(key, "u", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Index()
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != key {
		t.Errorf("expected index key %s, got %+v", key, entries)
	}
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())
	key := Key("/a", nil)
	if err := s.Put(key, "u", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(key); ok {
		t.Error("entry still readable after Delete")
	}
	// Deleting again is not an error.
	if err := s.Delete(key); err != nil {
		t.Errorf("Delete of missing entry: %v", err)
	}
}

// setEntryAge rewinds an entry's mtime so prune tests can fabricate history.
func setEntryAge(t *testing.T, e EntryInfo, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(-age)
	if err := os.Chtimes(e.Path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func putAged(t *testing.T, s *Store, path string, age time.Duration) {
	t.Helper()
	if err := s.Put(Key(path, nil), "u", json.RawMessage(`{"path":"`+path+`"}`)); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Index()
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Base(e.Path) == Key(path, nil)+".json" {
			setEntryAge(t, e, age)
			return
		}
	}
	t.Fatalf("entry for %s not found", path)
}

func TestPrune_RespectsMinAge(t *testing.T) {
	s := New(t.TempDir())
	putAged(t, s, "/one", 1*time.Hour)
	putAged(t, s, "/two", 2*time.Hour)
	putAged(t, s, "/ten", 10*time.Hour)

	// Size bound of zero puts maximum pressure on the store; only the
	// entry older than the floor may go.
	res, err := s.Prune(0, 5*time.Hour, false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("expected exactly 1 deletion, got %d", res.Deleted)
	}
	if res.Remaining != 2 {
		t.Errorf("expected 2 survivors, got %d", res.Remaining)
	}
	if _, ok := s.Get(Key("/ten", nil)); ok {
		t.Error("10h-old entry should have been pruned")
	}
	for _, p := range []string{"/one", "/two"} {
		if _, ok := s.Get(Key(p, nil)); !ok {
			t.Errorf("entry %s younger than min age must survive", p)
		}
	}
}

func TestPrune_RespectsSizeBound(t *testing.T) {
	s := New(t.TempDir())
	putAged(t, s, "/a", 30*time.Hour)
	putAged(t, s, "/b", 20*time.Hour)
	putAged(t, s, "/c", 10*time.Hour)

	// Bound that forces out the two oldest entries but fits the newest.
	entries, err := s.Index()
	if err != nil {
		t.Fatal(err)
	}
	var entrySize int64
	for _, e := range entries {
		if filepath.Base(e.Path) == Key("/c", nil)+".json" {
			entrySize = e.Size
		}
	}
	if entrySize == 0 {
		t.Fatal("entry for /c not found")
	}
	res, err := s.Prune(entrySize, time.Hour, false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.RemainingBytes > entrySize {
		t.Errorf("remaining %d bytes exceeds bound %d", res.RemainingBytes, entrySize)
	}
	if res.Deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", res.Deleted)
	}
	// Oldest-first: /c is the survivor.
	if _, ok := s.Get(Key("/c", nil)); !ok {
		t.Error("newest entry should survive size pruning")
	}
}

func TestPrune_DryRunDeletesNothing(t *testing.T) {
	s := New(t.TempDir())
	putAged(t, s, "/a", 30*time.Hour)
	putAged(t, s, "/b", 20*time.Hour)

	res, err := s.Prune(0, time.Hour, true)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Deleted != 2 {
		t.Errorf("dry run should report 2 deletions, got %d", res.Deleted)
	}
	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 2 {
		t.Errorf("dry run must not delete: %d entries remain", st.EntryCount)
	}
}

func TestPrune_NoopUnderBound(t *testing.T) {
	s := New(t.TempDir())
	putAged(t, s, "/a", 30*time.Hour)

	res, err := s.Prune(1<<30, time.Hour, false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Deleted != 0 {
		t.Errorf("expected no deletions under the bound, got %d", res.Deleted)
	}
}
