package cli

import (
	"encoding/json"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"traktdata/internal/cache"
	"traktdata/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Trakt response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cache.New(cfg.Cache.Dir)
		st, err := store.Stats()
		if err != nil {
			return err
		}

		if jsonOutput {
			type statsJSON struct {
				Dir        string `json:"dir"`
				EntryCount int    `json:"entry_count"`
				TotalBytes int64  `json:"total_bytes"`
				Oldest     string `json:"oldest,omitempty"`
				Newest     string `json:"newest,omitempty"`
			}
			s := statsJSON{
				Dir:        store.Dir(),
				EntryCount: st.EntryCount,
				TotalBytes: st.TotalSize,
			}
			if !st.Oldest.IsZero() {
				s.Oldest = st.Oldest.Format(time.RFC3339)
				s.Newest = st.Newest.Format(time.RFC3339)
			}
			enc := json.NewEncoder(outWriter)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}

		if quiet {
			out("%d %d\n", st.EntryCount, st.TotalSize)
			return nil
		}

		out("Cache: %s\n", store.Dir())
		out("Entries: %d\n", st.EntryCount)
		out("Size: %s (limit %s)\n", humanize.Bytes(uint64(st.TotalSize)), humanize.Bytes(uint64(cfg.Cache.MaxBytes)))
		if !st.Oldest.IsZero() {
			out("Oldest: %s\n", humanize.Time(st.Oldest))
			out("Newest: %s\n", humanize.Time(st.Newest))
		}
		return nil
	},
}

var (
	pruneDryRun bool
	pruneMinAge string
	pruneLimit  string
)

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old cache entries until the cache fits its size limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		minAgeStr := cfg.Cache.MinAge
		if pruneMinAge != "" {
			minAgeStr = pruneMinAge
		}
		minAge, err := config.ParseAge(minAgeStr)
		if err != nil {
			return err
		}

		limit := cfg.Cache.MaxBytes
		if pruneLimit != "" {
			n, err := humanize.ParseBytes(pruneLimit)
			if err != nil {
				return err
			}
			limit = int64(n)
		}

		store := cache.New(cfg.Cache.Dir)
		res, err := store.Prune(limit, minAge, pruneDryRun)
		if err != nil {
			return err
		}

		if jsonOutput {
			type pruneJSON struct {
				DryRun         bool  `json:"dry_run"`
				Deleted        int   `json:"deleted"`
				BytesReclaimed int64 `json:"bytes_reclaimed"`
				Remaining      int   `json:"remaining"`
				RemainingBytes int64 `json:"remaining_bytes"`
			}
			enc := json.NewEncoder(outWriter)
			enc.SetIndent("", "  ")
			return enc.Encode(pruneJSON{
				DryRun:         pruneDryRun,
				Deleted:        res.Deleted,
				BytesReclaimed: res.BytesReclaimed,
				Remaining:      res.Remaining,
				RemainingBytes: res.RemainingBytes,
			})
		}

		verb := "Deleted"
		if pruneDryRun {
			verb = "Would delete"
		}
		out("%s %d entries (%s), %d remaining (%s)\n",
			verb, res.Deleted, humanize.Bytes(uint64(res.BytesReclaimed)),
			res.Remaining, humanize.Bytes(uint64(res.RemainingBytes)))
		return nil
	},
}

var fixMtimesDryRun bool

var cacheFixMtimesCmd = &cobra.Command{
	Use:   "fix-mtimes",
	Short: "Restore entry mtimes from their recorded store times",
	Long:  "Entry age for pruning comes from file mtimes. Copies or restores can clobber them; this rewrites each entry's mtime from the stored_at timestamp inside the entry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cache.New(cfg.Cache.Dir)
		fixed, err := store.FixMtimes(fixMtimesDryRun)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(outWriter)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"dry_run": fixMtimesDryRun, "fixed": fixed})
		}

		verb := "Fixed"
		if fixMtimesDryRun {
			verb = "Would fix"
		}
		out("%s %d entries\n", verb, fixed)
		return nil
	},
}

func init() {
	cachePruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be deleted without deleting")
	cachePruneCmd.Flags().StringVar(&pruneMinAge, "min-age", "", "Never delete entries younger than this (e.g. 36h, 2d)")
	cachePruneCmd.Flags().StringVar(&pruneLimit, "limit", "", "Size limit to prune down to (e.g. 256MB)")

	cacheFixMtimesCmd.Flags().BoolVar(&fixMtimesDryRun, "dry-run", false, "Report what would be fixed without touching files")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheFixMtimesCmd)
}
