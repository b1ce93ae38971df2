package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"traktdata/internal/logging"
	"traktdata/internal/trakt"
)

// Derived artifacts built on top of the plain category exports: per-show
// watched progress and the up-next queue computed from it. Both read their
// inputs from the already-written tree, so they run after the category loop.

const (
	progressRel = "watched/progress-shows.json"
	upNextRel   = "watched/up-next.json"
)

// progressRecord is one row of watched/progress-shows.json. Show stays raw
// so the upstream object copies through with every field intact.
type progressRecord struct {
	Show     json.RawMessage `json:"show"`
	Progress json.RawMessage `json:"progress"`
}

// watchedShowRecord reads watched/watched-shows.json keeping the show
// object raw.
type watchedShowRecord struct {
	Show json.RawMessage `json:"show"`
}

// exportShowProgress writes one progress record per watched show, fetched
// from /shows/{id}/progress/watched.
func (e *Exporter) exportShowProgress(ctx context.Context, fr Freshness) error {
	logger := logging.FromContext(ctx)

	if e.excluded(progressRel) {
		logger.Debug("excluded", "path", progressRel)
		return nil
	}
	abs := filepath.Join(e.dir, filepath.FromSlash(progressRel))
	state := fr.State(progressRel)
	if state == StateFresh && fileExists(abs) {
		logger.Debug("fresh, skipping", "path", progressRel)
		return nil
	}

	var watched []watchedShowRecord
	if err := ReadJSON(filepath.Join(e.dir, "watched", "watched-shows.json"), &watched); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no watched shows artifact, skipping progress", "path", progressRel)
			return nil
		}
		return fmt.Errorf("export: reading watched shows: %w", err)
	}

	records := make([]any, 0, len(watched))
	for _, w := range watched {
		var show trakt.Show
		if err := json.Unmarshal(w.Show, &show); err != nil {
			return fmt.Errorf("export: decoding watched show: %w", err)
		}
		payload, err := e.fetch(ctx, fmt.Sprintf("/shows/%d/progress/watched", show.IDs.Trakt), nil, false, state)
		if err != nil {
			return err
		}
		records = append(records, map[string]any{
			"show":     decodeAny(w.Show),
			"progress": decodeAny(payload),
		})
	}

	return WriteJSON(abs, records)
}

// exportUpNext derives the up-next queue from watched shows, their
// progress, and the hidden sections. No network traffic: everything comes
// from the tree the run already wrote.
func (e *Exporter) exportUpNext(ctx context.Context, fr Freshness) error {
	logger := logging.FromContext(ctx)

	if e.excluded(upNextRel) {
		logger.Debug("excluded", "path", upNextRel)
		return nil
	}
	abs := filepath.Join(e.dir, filepath.FromSlash(upNextRel))
	if fr.State(upNextRel) == StateFresh && fileExists(abs) {
		logger.Debug("fresh, skipping", "path", upNextRel)
		return nil
	}

	var watched []trakt.WatchedShow
	if err := ReadJSON(filepath.Join(e.dir, "watched", "watched-shows.json"), &watched); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no watched shows artifact, skipping up next", "path", upNextRel)
			return nil
		}
		return fmt.Errorf("export: reading watched shows: %w", err)
	}
	playsByShow := make(map[int]int, len(watched))
	for _, w := range watched {
		playsByShow[w.Show.IDs.Trakt] = w.Plays
	}

	hidden, err := e.hiddenShowIDs()
	if err != nil {
		return err
	}

	var progress []progressRecord
	if err := ReadJSON(filepath.Join(e.dir, filepath.FromSlash(progressRel)), &progress); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no progress artifact, skipping up next", "path", upNextRel)
			return nil
		}
		return fmt.Errorf("export: reading show progress: %w", err)
	}

	upNext := make([]any, 0, len(progress))
	for _, rec := range progress {
		var show trakt.Show
		if err := json.Unmarshal(rec.Show, &show); err != nil {
			return fmt.Errorf("export: decoding progress show: %w", err)
		}
		var p trakt.ShowProgress
		if err := json.Unmarshal(rec.Progress, &p); err != nil {
			return fmt.Errorf("export: decoding progress for %s: %w", show.Title, err)
		}

		if hidden[show.IDs.Trakt] {
			logger.Debug("skipping hidden show", "show", show.Title)
			continue
		}
		if p.Aired == p.Completed {
			logger.Debug("skipping completed show", "show", show.Title)
			continue
		}
		if isJSONNull(p.NextEpisode) {
			logger.Debug("skipping show with no next episode", "show", show.Title)
			continue
		}

		upNext = append(upNext, map[string]any{
			"show": decodeAny(rec.Show),
			"progress": map[string]any{
				"aired":           p.Aired,
				"completed":       p.Completed,
				"hidden":          0,
				"last_watched_at": decodeAny(p.LastWatchedAt),
				"reset_at":        decodeAny(p.ResetAt),
				"stats": map[string]any{
					"play_count":      playsByShow[show.IDs.Trakt],
					"minutes_left":    0,
					"minutes_watched": 0,
				},
				"next_episode": decodeAny(p.NextEpisode),
				"last_episode": decodeAny(p.LastEpisode),
			},
		})
	}

	return WriteJSON(abs, upNext)
}

// hiddenShowIDs unions the dropped and progress-watched hidden sections.
// A missing section file (excluded category) contributes nothing.
func (e *Exporter) hiddenShowIDs() (map[int]bool, error) {
	ids := make(map[int]bool)
	for _, rel := range []string{"hidden/hidden-dropped.json", "hidden/hidden-progress-watched.json"} {
		var items []trakt.HiddenItem
		err := ReadJSON(filepath.Join(e.dir, filepath.FromSlash(rel)), &items)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("export: reading %s: %w", rel, err)
		}
		for _, item := range items {
			if item.Show != nil {
				ids[item.Show.IDs.Trakt] = true
			}
		}
	}
	return ids, nil
}

// decodeAny turns a raw fragment into plain Go values so WriteJSON emits it
// with sorted keys. A nil or null fragment decodes to nil.
func decodeAny(raw json.RawMessage) any {
	var v any
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
