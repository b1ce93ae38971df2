package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"traktdata/internal/logging"
	"traktdata/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Aggregate Prometheus metrics over the exported data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newTraktClient(ctx)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := metrics.New(client, dataDir()).Run(ctx); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("metrics written",
			"path", filepath.Join(dataDir(), metrics.Filename),
			"took", time.Since(start).Round(time.Millisecond))
		return nil
	},
}
