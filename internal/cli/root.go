package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"traktdata/internal/cache"
	"traktdata/internal/config"
	"traktdata/internal/export"
	"traktdata/internal/logging"
	"traktdata/internal/trakt"
)

// version is injected at build time via -ldflags.
var version = "dev"

var (
	jsonOutput bool
	noColor    bool
	verbose    bool
	quiet      bool
	configPath string
	outputDir  string
	exclude    []string
)

// cfg is loaded once in PersistentPreRun and read by every command.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:          "trakt-data",
	Short:        "Export Trakt.tv viewing data for publishing",
	Long:         "Exports a Trakt.tv account's viewing history, ratings, collection, and lists into a deterministic JSON tree, aggregates Prometheus metrics over it, and gates publishing on a tree checksum.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose && quiet {
			verbose = false
		}
		l := newConfiguredLogger()
		ctx := logging.WithLogger(cmd.Context(), l)
		cmd.SetContext(ctx)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			l.Warn("config file is malformed, using defaults", "err", err)
		}
		if outputDir != "" {
			cfg.Export.OutputDir = outputDir
		}
		if len(exclude) > 0 {
			cfg.Export.Exclude = exclude
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			out("trakt-data %s\n", version)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory for exported data")
	rootCmd.PersistentFlags().StringSliceVar(&exclude, "exclude", nil, "Relative path prefixes to skip when exporting")
	rootCmd.Flags().Bool("version", false, "Show version and exit")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cacheCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context.
// Commands access it via cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// dataDir returns the directory exports are written to.
func dataDir() string {
	if cfg.Export.OutputDir != "" {
		return cfg.Export.OutputDir
	}
	return "data"
}

// newTraktClient builds the API client from config. The cache is always
// wired in so repeated runs avoid refetching unchanged responses.
func newTraktClient(ctx context.Context) (*trakt.Client, error) {
	if cfg.Trakt.ClientID == "" {
		return nil, errors.New("trakt client id not configured (set TRAKT_CLIENT_ID)")
	}
	if cfg.Trakt.AccessToken == "" {
		return nil, errors.New("trakt access token not configured (set TRAKT_ACCESS_TOKEN)")
	}
	return trakt.NewClient(trakt.Options{
		ClientID:    cfg.Trakt.ClientID,
		AccessToken: cfg.Trakt.AccessToken,
		Timeout:     cfg.Fetch.TimeoutDuration(),
		Cache:       cache.New(cfg.Cache.Dir),
	}), nil
}

func newExporter(client *trakt.Client) *export.Exporter {
	return export.New(client, dataDir(), cfg.Export.Exclude)
}

// pruneAfterRun trims the response cache to its configured bound. Failures
// only warn; a full export that worked should not fail on cache hygiene.
func pruneAfterRun(ctx context.Context) {
	minAge, err := cfg.Cache.MinAgeDuration()
	if err != nil {
		logging.FromContext(ctx).Warn("invalid cache min age, skipping prune", "err", err)
		return
	}
	store := cache.New(cfg.Cache.Dir)
	start := time.Now()
	res, err := store.Prune(cfg.Cache.MaxBytes, minAge, false)
	if err != nil {
		logging.FromContext(ctx).Warn("cache prune failed", "err", err)
		return
	}
	if res.Deleted > 0 {
		logging.FromContext(ctx).Info("pruned cache",
			"deleted", res.Deleted,
			"reclaimed", res.BytesReclaimed,
			"took", time.Since(start).Round(time.Millisecond))
	}
}
