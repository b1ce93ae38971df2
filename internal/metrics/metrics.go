// Package metrics derives Prometheus-textfile gauges from the exported
// snapshot. It reads artifacts the exporter already wrote, never raw cache
// entries; media detail lookups go through the client and therefore the
// response cache. The output is written with the same deterministic
// discipline as the export tree.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"traktdata/internal/export"
	"traktdata/internal/logging"
	"traktdata/internal/trakt"
)

// Filename is the metrics artifact written into the output tree.
const Filename = "metrics.prom"

// Aggregator computes gauges from the export tree rooted at dataDir.
type Aggregator struct {
	client  *trakt.Client
	dataDir string
}

func New(client *trakt.Client, dataDir string) *Aggregator {
	return &Aggregator{client: client, dataDir: dataDir}
}

// vitals bundles the registry and its gauge families for one run.
type vitals struct {
	registry *prometheus.Registry

	vipYears         *prometheus.GaugeVec
	watchedCount     *prometheus.GaugeVec
	watchedMinutes   *prometheus.GaugeVec
	ratingsCount     *prometheus.GaugeVec
	collectionCount  *prometheus.GaugeVec
	watchlistCount   *prometheus.GaugeVec
	watchlistMinutes *prometheus.GaugeVec
}

func newVitals() *vitals {
	v := &vitals{registry: prometheus.NewRegistry()}

	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
		v.registry.MustRegister(g)
		return g
	}

	v.vipYears = gauge("trakt_vip_years", "Trakt VIP years", "username")
	v.watchedCount = gauge("trakt_watched_count", "Number of items in Trakt watched history", "media_type", "year")
	v.watchedMinutes = gauge("trakt_watched_minutes", "Number of minutes in Trakt watched history", "media_type", "year")
	v.ratingsCount = gauge("trakt_ratings_count", "Number of items in Trakt ratings", "media_type", "year", "rating")
	v.collectionCount = gauge("trakt_collection_count", "Number of items in Trakt collection", "media_type", "year")
	v.watchlistCount = gauge("trakt_watchlist_count", "Number of items in Trakt watchlist", "media_type", "year", "status")
	v.watchlistMinutes = gauge("trakt_watchlist_minutes", "Number of minutes in Trakt watchlist", "media_type", "year", "status")
	return v
}

// Run aggregates and writes the metrics artifact. Missing input artifacts
// (excluded categories) skip their gauges; upstream failures abort the run.
func (a *Aggregator) Run(ctx context.Context) error {
	v := newVitals()

	if err := a.userMetrics(ctx, v); err != nil {
		return err
	}
	if err := a.watchedMetrics(ctx, v); err != nil {
		return err
	}
	if err := a.ratingsMetrics(ctx, v); err != nil {
		return err
	}
	if err := a.collectionMetrics(ctx, v); err != nil {
		return err
	}
	if err := a.watchlistMetrics(ctx, v); err != nil {
		return err
	}

	return writeTextfile(filepath.Join(a.dataDir, Filename), v.registry)
}

// readArtifact loads one exported file, reporting (false, nil) when the
// artifact does not exist so excluded categories silently skip.
func (a *Aggregator) readArtifact(ctx context.Context, rel string, out any) (bool, error) {
	path := filepath.Join(a.dataDir, filepath.FromSlash(rel))
	err := export.ReadJSON(path, out)
	if os.IsNotExist(err) {
		logging.FromContext(ctx).Debug("artifact missing, skipping", "path", rel)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Aggregator) userMetrics(ctx context.Context, v *vitals) error {
	var profile trakt.UserProfile
	ok, err := a.readArtifact(ctx, "user/profile.json", &profile)
	if err != nil || !ok {
		return err
	}
	v.vipYears.WithLabelValues(profile.Username).Set(float64(profile.VIPYears))
	return nil
}

func (a *Aggregator) watchedMetrics(ctx context.Context, v *vitals) error {
	var items []trakt.HistoryItem
	ok, err := a.readArtifact(ctx, "watched/history.json", &items)
	if err != nil || !ok {
		return err
	}

	for _, item := range items {
		var info mediaInfo
		switch {
		case item.Type == "movie" && item.Movie != nil:
			info, err = a.movieInfo(ctx, item.Movie.IDs.Trakt)
		case item.Type == "episode" && item.Show != nil:
			info, err = a.episodeInfo(ctx, item.Show.IDs.Trakt)
		default:
			logging.FromContext(ctx).Warn("unknown history item type", "type", item.Type)
			continue
		}
		if err != nil {
			return err
		}
		v.watchedCount.WithLabelValues(info.mediaType, info.year).Inc()
		v.watchedMinutes.WithLabelValues(info.mediaType, info.year).Add(float64(info.runtime))
	}
	return nil
}

func (a *Aggregator) ratingsMetrics(ctx context.Context, v *vitals) error {
	for _, typ := range []string{"movies", "shows", "episodes"} {
		var ratings []trakt.Rating
		ok, err := a.readArtifact(ctx, "ratings/ratings-"+typ+".json", &ratings)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, r := range ratings {
			var info mediaInfo
			switch {
			case r.Movie != nil:
				info, err = a.movieInfo(ctx, r.Movie.IDs.Trakt)
			case r.Show != nil && r.Episode != nil:
				info, err = a.episodeInfo(ctx, r.Show.IDs.Trakt)
			case r.Show != nil:
				info, err = a.showInfo(ctx, r.Show.IDs.Trakt)
			default:
				continue
			}
			if err != nil {
				return err
			}
			v.ratingsCount.WithLabelValues(info.mediaType, info.year, strconv.Itoa(r.Rating)).Inc()
		}
	}
	return nil
}

func (a *Aggregator) collectionMetrics(ctx context.Context, v *vitals) error {
	var movies []trakt.CollectedMovie
	ok, err := a.readArtifact(ctx, "collection/collection-movies.json", &movies)
	if err != nil {
		return err
	}
	if ok {
		for _, cm := range movies {
			info, err := a.movieInfo(ctx, cm.Movie.IDs.Trakt)
			if err != nil {
				return err
			}
			v.collectionCount.WithLabelValues(info.mediaType, info.year).Inc()
		}
	}

	var shows []trakt.CollectedShow
	ok, err = a.readArtifact(ctx, "collection/collection-shows.json", &shows)
	if err != nil || !ok {
		return err
	}
	for _, cs := range shows {
		info, err := a.showInfo(ctx, cs.Show.IDs.Trakt)
		if err != nil {
			return err
		}
		v.collectionCount.WithLabelValues(info.mediaType, info.year).Inc()
	}
	return nil
}

func (a *Aggregator) watchlistMetrics(ctx context.Context, v *vitals) error {
	var items []trakt.ListItem
	ok, err := a.readArtifact(ctx, "lists/watchlist.json", &items)
	if err != nil || !ok {
		return err
	}

	for _, item := range items {
		var info mediaInfo
		switch {
		case item.Type == "movie" && item.Movie != nil:
			info, err = a.movieInfo(ctx, item.Movie.IDs.Trakt)
		case item.Type == "show" && item.Show != nil:
			info, err = a.showInfo(ctx, item.Show.IDs.Trakt)
		case item.Type == "episode" && item.Show != nil:
			info, err = a.episodeInfo(ctx, item.Show.IDs.Trakt)
		default:
			logging.FromContext(ctx).Warn("unknown watchlist item type", "type", item.Type)
			continue
		}
		if err != nil {
			return err
		}
		v.watchlistCount.WithLabelValues(info.mediaType, info.year, info.status).Inc()
		v.watchlistMinutes.WithLabelValues(info.mediaType, info.year, info.status).Add(float64(info.runtime))
	}
	return nil
}

// writeTextfile renders the registry in the Prometheus text exposition
// format. Gather returns families and series in sorted order, so the bytes
// are a pure function of the gauge values.
func writeTextfile(path string, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gathering registry: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encoding %s: %w", mf.GetName(), err)
		}
	}

	return export.WriteRaw(path, buf.Bytes())
}
