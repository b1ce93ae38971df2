package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func checksumServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck_PublishesWhenNeverPublished(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "data")
	srv := checksumServer(t, http.StatusNotFound, "not found")

	g := NewGate(srv.URL, 5*time.Second)
	decision, err := g.Check(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionPublish {
		t.Errorf("expected publish, got %s", decision)
	}
}

func TestCheck_SkipsWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "data")
	local, err := TreeChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}
	srv := checksumServer(t, http.StatusOK, local+"\n")

	g := NewGate(srv.URL, 5*time.Second)
	decision, err := g.Check(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionSkip {
		t.Errorf("expected skip, got %s", decision)
	}
}

func TestCheck_PublishesWhenChanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "data")
	srv := checksumServer(t, http.StatusOK, strings.Repeat("0", 64))

	g := NewGate(srv.URL, 5*time.Second)
	decision, err := g.Check(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionPublish {
		t.Errorf("expected publish, got %s", decision)
	}
}

func TestCheck_WritesChecksumFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "data")
	local, err := TreeChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}
	srv := checksumServer(t, http.StatusNotFound, "")

	g := NewGate(srv.URL, 5*time.Second)
	if _, err := g.Check(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ChecksumFile))
	if err != nil {
		t.Fatalf("checksum file not written: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != local {
		t.Errorf("checksum file %s does not match tree checksum %s", got, local)
	}
}

func TestCheck_ErrorsOnServerFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "data")
	srv := checksumServer(t, http.StatusInternalServerError, "boom")

	g := NewGate(srv.URL, 5*time.Second)
	if _, err := g.Check(context.Background(), dir); err == nil {
		t.Error("expected error on 500 from checksum endpoint")
	}
}
