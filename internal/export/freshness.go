package export

import (
	"time"

	"traktdata/internal/trakt"
)

// State classifies an output file against the account's last-activities.
type State int

const (
	// StateUnknown means no previous activities exist to compare against.
	// The category is exported, served from the response cache when warm.
	StateUnknown State = iota
	// StateFresh means nothing changed upstream since the file was written.
	StateFresh
	// StateStale means upstream activity advanced; re-fetch past the cache.
	StateStale
)

// Freshness maps output-relative paths to their state for one run.
type Freshness struct {
	states map[string]State
}

// State returns the recorded state for rel, StateUnknown when unrecorded.
func (f Freshness) State(rel string) State {
	if f.states == nil {
		return StateUnknown
	}
	return f.states[rel]
}

// activityRow ties one output file to the activity timestamp that governs it.
type activityRow struct {
	section string
	key     string
	rel     string
}

var activityRows = []activityRow{
	{"movies", "collected_at", "collection/collection-movies.json"},
	{"movies", "watched_at", "watched/watched-movies.json"},
	{"movies", "rated_at", "ratings/ratings-movies.json"},
	{"movies", "commented_at", "comments/comments-movies.json"},
	{"episodes", "collected_at", "collection/collection-shows.json"},
	{"episodes", "watched_at", "watched/watched-shows.json"},
	{"episodes", "watched_at", "watched/progress-shows.json"},
	{"episodes", "watched_at", "watched/up-next.json"},
	{"episodes", "rated_at", "ratings/ratings-episodes.json"},
	{"episodes", "commented_at", "comments/comments-episodes.json"},
	{"shows", "rated_at", "ratings/ratings-shows.json"},
	{"shows", "commented_at", "comments/comments-shows.json"},
	{"seasons", "rated_at", "ratings/ratings-seasons.json"},
	{"seasons", "commented_at", "comments/comments-seasons.json"},
	{"comments", "liked_at", "likes/likes-comments.json"},
	{"lists", "liked_at", "likes/likes-lists.json"},
	{"lists", "updated_at", "lists/lists.json"},
	{"lists", "commented_at", "comments/comments-lists.json"},
	{"watchlist", "updated_at", "lists/watchlist.json"},
	{"account", "settings_at", "user/profile.json"},
}

// hiddenSections share the hidden_at timestamps across media sections.
var hiddenSections = []string{
	"hidden/hidden-calendar.json",
	"hidden/hidden-progress-collected.json",
	"hidden/hidden-progress-watched-reset.json",
	"hidden/hidden-progress-watched.json",
	"hidden/hidden-recommendations.json",
}

// ComputeFreshness compares the previous run's last-activities against the
// newly fetched ones and classifies every managed output path. A nil old
// means a first run: everything is StateUnknown.
func ComputeFreshness(old *trakt.LastActivities, latest trakt.LastActivities) Freshness {
	states := make(map[string]State)
	if old == nil {
		return Freshness{states: states}
	}

	mark := func(rel string, fresh bool) {
		if fresh {
			states[rel] = StateFresh
		} else {
			states[rel] = StateStale
		}
	}

	mark("user/last-activities.json", atLeast(old.All, latest.All))
	mark("user/stats.json", atLeast(old.All, latest.All))

	for _, row := range activityRows {
		oldTS := old.Section(row.section)[row.key]
		newTS := latest.Section(row.section)[row.key]
		mark(row.rel, atLeast(oldTS, newTS))
	}

	mark("watched/history.json", atLeast(
		maxTS(old.Movies["watched_at"], old.Episodes["watched_at"]),
		maxTS(latest.Movies["watched_at"], latest.Episodes["watched_at"]),
	))
	mark("watched/playback.json", atLeast(
		maxTS(old.Movies["paused_at"], old.Episodes["paused_at"]),
		maxTS(latest.Movies["paused_at"], latest.Episodes["paused_at"]),
	))
	mark("hidden/hidden-dropped.json", atLeast(old.Shows["dropped_at"], latest.Shows["dropped_at"]))

	hiddenFresh := atLeast(
		maxTS(old.Movies["hidden_at"], old.Shows["hidden_at"], old.Seasons["hidden_at"]),
		maxTS(latest.Movies["hidden_at"], latest.Shows["hidden_at"], latest.Seasons["hidden_at"]),
	)
	for _, rel := range hiddenSections {
		mark(rel, hiddenFresh)
	}

	return Freshness{states: states}
}

// atLeast reports whether the old timestamp is at or past the new one.
// Unparsable or missing timestamps count as stale, forcing a re-fetch.
func atLeast(oldTS, newTS string) bool {
	o, err := time.Parse(time.RFC3339, oldTS)
	if err != nil {
		return false
	}
	n, err := time.Parse(time.RFC3339, newTS)
	if err != nil {
		return false
	}
	return !o.Before(n)
}

func maxTS(values ...string) string {
	var best time.Time
	var bestStr string
	for _, v := range values {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			continue
		}
		if bestStr == "" || t.After(best) {
			best = t
			bestStr = v
		}
	}
	return bestStr
}
