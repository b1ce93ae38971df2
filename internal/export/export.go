// Package export walks the account's Trakt data and writes it as a
// deterministic JSON tree under the output directory. Identical upstream
// data produces byte-identical files regardless of run timing, map order,
// or how the filesystem lists directories.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"traktdata/internal/logging"
	"traktdata/internal/trakt"
)

// Exporter regenerates the snapshot tree. It owns no state beyond its
// configuration; every run is a full pass over the category table.
type Exporter struct {
	client  *trakt.Client
	dir     string
	exclude []string
}

func New(client *trakt.Client, dir string, exclude []string) *Exporter {
	return &Exporter{client: client, dir: dir, exclude: exclude}
}

// category maps one output file to the API request that produces it.
type category struct {
	rel       string
	path      string
	params    url.Values
	paginated bool
}

func categories() []category {
	cats := []category{
		{rel: "user/profile.json", path: "/users/me", params: url.Values{"extended": {"vip"}}},
		{rel: "user/stats.json", path: "/users/me/stats"},
		{rel: "watched/history.json", path: "/sync/history", paginated: true},
		{rel: "watched/playback.json", path: "/sync/playback"},
		{rel: "watched/watched-movies.json", path: "/sync/watched/movies"},
		{rel: "watched/watched-shows.json", path: "/sync/watched/shows"},
		{rel: "collection/collection-movies.json", path: "/sync/collection/movies"},
		{rel: "collection/collection-shows.json", path: "/sync/collection/shows"},
		{rel: "lists/watchlist.json", path: "/sync/watchlist",
			params: url.Values{"sort_by": {"rank"}, "sort_how": {"asc"}}, paginated: true},
		{rel: "likes/likes-comments.json", path: "/users/me/likes/comments", paginated: true},
		{rel: "likes/likes-lists.json", path: "/users/me/likes/lists", paginated: true},
	}
	for _, typ := range []string{"movies", "shows", "seasons", "episodes"} {
		cats = append(cats, category{
			rel:  "ratings/ratings-" + typ + ".json",
			path: "/sync/ratings/" + typ,
		})
	}
	for _, typ := range []string{"movies", "shows", "seasons", "episodes", "lists"} {
		cats = append(cats, category{
			rel:       "comments/comments-" + typ + ".json",
			path:      "/users/me/comments/" + typ,
			paginated: true,
		})
	}
	for _, section := range []string{
		"calendar", "dropped", "progress_collected",
		"progress_watched_reset", "progress_watched", "recommendations",
	} {
		cats = append(cats, category{
			rel:       "hidden/hidden-" + strings.ReplaceAll(section, "_", "-") + ".json",
			path:      "/users/hidden/" + section,
			paginated: true,
		})
	}
	return cats
}

// Run regenerates the whole tree. Any error aborts the run: partially
// refreshed trees must never reach the publish gate.
func (e *Exporter) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	lastPath := filepath.Join(e.dir, "user", "last-activities.json")
	var old *trakt.LastActivities
	var prev trakt.LastActivities
	if err := ReadJSON(lastPath, &prev); err == nil {
		old = &prev
	}

	payload, err := e.client.GetFresh(ctx, "/sync/last_activities", nil)
	if err != nil {
		return err
	}
	var latest trakt.LastActivities
	if err := json.Unmarshal(payload, &latest); err != nil {
		return fmt.Errorf("export: decoding last activities: %w", err)
	}

	fr := ComputeFreshness(old, latest)
	logger.Debug("computed freshness", "first_run", old == nil)

	for _, cat := range categories() {
		if err := e.exportCategory(ctx, fr, cat); err != nil {
			return err
		}
	}
	if err := e.exportLists(ctx, fr); err != nil {
		return err
	}
	if err := e.exportShowProgress(ctx, fr); err != nil {
		return err
	}
	if err := e.exportUpNext(ctx, fr); err != nil {
		return err
	}

	// Written last: an aborted run keeps the previous activities on disk,
	// so the retry still classifies the untouched categories as stale.
	return WriteCanonical(lastPath, payload)
}

func (e *Exporter) exportCategory(ctx context.Context, fr Freshness, cat category) error {
	logger := logging.FromContext(ctx)

	if e.excluded(cat.rel) {
		logger.Debug("excluded", "path", cat.rel)
		return nil
	}

	abs := filepath.Join(e.dir, filepath.FromSlash(cat.rel))
	state := fr.State(cat.rel)
	if state == StateFresh && fileExists(abs) {
		logger.Debug("fresh, skipping", "path", cat.rel)
		return nil
	}

	payload, err := e.fetch(ctx, cat.path, cat.params, cat.paginated, state)
	if err != nil {
		return err
	}
	return WriteCanonical(abs, payload)
}

// fetch picks the cache posture for a category: stale categories push past
// the response cache, everything else is happy to replay a cached response.
func (e *Exporter) fetch(ctx context.Context, path string, params url.Values, paginated bool, state State) (json.RawMessage, error) {
	switch {
	case paginated && state == StateStale:
		return e.client.PaginatedFresh(ctx, path, params)
	case paginated:
		return e.client.Paginated(ctx, path, params)
	case state == StateStale:
		return e.client.GetFresh(ctx, path, params)
	default:
		return e.client.Get(ctx, path, params)
	}
}

// exportLists writes lists/lists.json, one file per personal list, and
// deletes files for lists that no longer exist upstream.
func (e *Exporter) exportLists(ctx context.Context, fr Freshness) error {
	logger := logging.FromContext(ctx)

	const rel = "lists/lists.json"
	if e.excluded(rel) {
		logger.Debug("excluded", "path", rel)
		return nil
	}

	abs := filepath.Join(e.dir, filepath.FromSlash(rel))
	state := fr.State(rel)
	if state == StateFresh && fileExists(abs) {
		logger.Debug("fresh, skipping", "path", rel)
		return nil
	}

	payload, err := e.fetch(ctx, "/users/me/lists", nil, false, state)
	if err != nil {
		return err
	}
	if err := WriteCanonical(abs, payload); err != nil {
		return err
	}

	var lists []trakt.ListInfo
	if err := json.Unmarshal(payload, &lists); err != nil {
		return fmt.Errorf("export: decoding lists: %w", err)
	}

	current := make(map[int]bool, len(lists))
	for _, lst := range lists {
		current[lst.IDs.Trakt] = true
		itemRel := fmt.Sprintf("lists/list-%d-%s.json", lst.IDs.Trakt, lst.IDs.Slug)
		if e.excluded(itemRel) {
			continue
		}
		items, err := e.fetch(ctx, fmt.Sprintf("/users/me/lists/%d/items", lst.IDs.Trakt), nil, true, state)
		if err != nil {
			return err
		}
		if err := WriteCanonical(filepath.Join(e.dir, filepath.FromSlash(itemRel)), items); err != nil {
			return err
		}
	}

	return e.deleteStaleLists(ctx, current)
}

func (e *Exporter) deleteStaleLists(ctx context.Context, current map[int]bool) error {
	logger := logging.FromContext(ctx)

	matches, err := filepath.Glob(filepath.Join(e.dir, "lists", "list-*.json"))
	if err != nil {
		return fmt.Errorf("export: listing list files: %w", err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		parts := strings.SplitN(strings.TrimPrefix(filepath.Base(path), "list-"), "-", 2)
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			logger.Warn("unrecognized list file", "path", path)
			continue
		}
		if current[id] {
			continue
		}
		logger.Info("deleting old list", "path", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("export: deleting %s: %w", path, err)
		}
	}
	return nil
}

func (e *Exporter) excluded(rel string) bool {
	for _, ex := range e.exclude {
		ex = strings.Trim(strings.TrimSpace(ex), "/")
		if ex == "" {
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
