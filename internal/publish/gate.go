package publish

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"traktdata/internal/httpclient"
	"traktdata/internal/logging"
)

// Decision is the outcome of comparing the local tree against the live site.
type Decision int

const (
	// DecisionSkip means the live checksum matches and nothing changed.
	DecisionSkip Decision = iota
	// DecisionPublish means the tree differs from what is live.
	DecisionPublish
)

func (d Decision) String() string {
	if d == DecisionPublish {
		return "publish"
	}
	return "skip"
}

// Gate decides whether an exported tree needs publishing by comparing its
// checksum against the one served by the live site.
type Gate struct {
	checksumURL string
	http        *httpclient.Client
}

func NewGate(checksumURL string, timeout time.Duration) *Gate {
	return &Gate{
		checksumURL: checksumURL,
		http:        httpclient.NewWithTimeout(timeout),
	}
}

// Check digests dir, fetches the live checksum, and records the digest in
// the tree's checksum dotfile. A missing or empty live checksum means the
// site has never been published, which always publishes.
func (g *Gate) Check(ctx context.Context, dir string) (Decision, error) {
	local, err := TreeChecksum(dir)
	if err != nil {
		return DecisionSkip, err
	}
	if err := WriteChecksum(dir, local); err != nil {
		return DecisionSkip, fmt.Errorf("writing checksum file: %w", err)
	}

	live, err := g.liveChecksum(ctx)
	if err != nil {
		return DecisionSkip, err
	}

	log := logging.FromContext(ctx)
	if live == "" {
		log.Info("no live checksum, publishing", "local", local)
		return DecisionPublish, nil
	}
	if live != local {
		log.Info("tree changed", "local", local, "live", live)
		return DecisionPublish, nil
	}
	log.Info("tree unchanged", "checksum", local)
	return DecisionSkip, nil
}

func (g *Gate) liveChecksum(ctx context.Context) (string, error) {
	resp, err := g.http.GetCtx(ctx, g.checksumURL)
	if err != nil {
		return "", fmt.Errorf("fetching live checksum: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching live checksum: unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(resp.Body)), nil
}
