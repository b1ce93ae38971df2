package cli

import (
	"time"

	"github.com/spf13/cobra"

	"traktdata/internal/logging"
	"traktdata/internal/metrics"
)

// runCmd is the full pipeline used by the scheduled workflow. Each stage
// runs only if the previous one succeeded, so a failed export never reaches
// the publish gate.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Export, aggregate metrics, and check the publish gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newTraktClient(ctx)
		if err != nil {
			return err
		}
		log := logging.FromContext(ctx)
		start := time.Now()

		if err := newExporter(client).Run(ctx); err != nil {
			return err
		}
		log.Info("export complete", "dir", dataDir())

		if err := metrics.New(client, dataDir()).Run(ctx); err != nil {
			return err
		}
		log.Info("metrics written")

		decision, err := checkPublish(ctx)
		if err != nil {
			return err
		}
		log.Info("pipeline complete",
			"decision", decision.String(),
			"took", time.Since(start).Round(time.Millisecond))
		outln(decision)

		pruneAfterRun(ctx)
		return nil
	},
}
