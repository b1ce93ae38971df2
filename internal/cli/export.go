package cli

import (
	"time"

	"github.com/spf13/cobra"

	"traktdata/internal/logging"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export Trakt data into the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newTraktClient(ctx)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := newExporter(client).Run(ctx); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("export complete",
			"dir", dataDir(),
			"took", time.Since(start).Round(time.Millisecond))

		pruneAfterRun(ctx)
		return nil
	},
}
