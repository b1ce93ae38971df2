package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"traktdata/internal/logging"
	"traktdata/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Decide whether the exported tree needs publishing",
	Long:  "Checksums the output directory, compares it against the live site's checksum, and prints \"publish\" or \"skip\". In GitHub Actions the decision is also appended to $GITHUB_OUTPUT as changed=true|false.",
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := checkPublish(cmd.Context())
		if err != nil {
			return err
		}
		outln(decision)
		return nil
	},
}

func checkPublish(ctx context.Context) (publish.Decision, error) {
	if cfg.Publish.ChecksumURL == "" {
		return publish.DecisionSkip, errors.New("checksum URL not configured (set TRAKT_DATA_CHECKSUM_URL)")
	}
	gate := publish.NewGate(cfg.Publish.ChecksumURL, cfg.Fetch.TimeoutDuration())
	decision, err := gate.Check(ctx, dataDir())
	if err != nil {
		return decision, err
	}
	if err := writeGitHubOutput(decision); err != nil {
		logging.FromContext(ctx).Warn("failed to write GITHUB_OUTPUT", "err", err)
	}
	return decision, nil
}

// writeGitHubOutput appends the decision to the file GitHub Actions reads
// step outputs from. Outside of Actions the variable is unset and this is a
// no-op.
func writeGitHubOutput(decision publish.Decision) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "changed=%t\n", decision == publish.DecisionPublish)
	return err
}
