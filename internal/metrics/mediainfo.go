package metrics

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"traktdata/internal/logging"
	"traktdata/internal/trakt"
)

// mediaInfo is the label set derived for one movie, show, or episode.
type mediaInfo struct {
	mediaType string
	status    string
	year      string
	runtime   int
}

// futureYear labels items with no known year so they sort after real ones.
const futureYear = "3000"

var extendedFull = url.Values{"extended": {"full"}}

func (a *Aggregator) movieInfo(ctx context.Context, traktID int) (mediaInfo, error) {
	var movie trakt.MovieExtended
	if err := a.client.GetInto(ctx, fmt.Sprintf("/movies/%d", traktID), extendedFull, &movie); err != nil {
		return mediaInfo{}, err
	}

	var releases []trakt.MovieRelease
	if err := a.client.GetInto(ctx, fmt.Sprintf("/movies/%d/releases/us", traktID), nil, &releases); err != nil {
		return mediaInfo{}, err
	}

	status := movie.Status
	if status == "" {
		status = "unknown"
	}
	release := releaseStatus(ctx, releases)
	if status == "released" {
		status = "released/" + release
	} else if release != "unknown" {
		logging.FromContext(ctx).Warn("movie not released but has release status",
			"movie", movie.Title, "status", status, "release", release)
	}

	return mediaInfo{
		mediaType: "movie",
		status:    status,
		year:      yearLabel(movie.Year),
		runtime:   movie.Runtime,
	}, nil
}

// releaseStatus picks the widest release type whose date has passed.
func releaseStatus(ctx context.Context, releases []trakt.MovieRelease) string {
	best := 0
	for _, r := range releases {
		date, err := time.Parse("2006-01-02", r.ReleaseDate)
		if err != nil || date.After(time.Now()) {
			continue
		}
		idx := -1
		for i, typ := range trakt.MovieReleaseTypes {
			if typ == r.ReleaseType {
				idx = i
				break
			}
		}
		if idx < 0 {
			logging.FromContext(ctx).Warn("unknown release type", "type", r.ReleaseType)
			continue
		}
		if idx > best {
			best = idx
		}
	}
	return trakt.MovieReleaseTypes[best]
}

func (a *Aggregator) showInfo(ctx context.Context, traktID int) (mediaInfo, error) {
	show, err := a.showExtended(ctx, traktID)
	if err != nil {
		return mediaInfo{}, err
	}

	status := show.Status
	if status == "" {
		status = "unknown"
	}
	runtime := 0
	if show.Runtime > 0 && show.AiredEpisodes > 0 {
		runtime = show.Runtime * show.AiredEpisodes
	}

	return mediaInfo{
		mediaType: "show",
		status:    status,
		year:      yearLabel(show.Year),
		runtime:   runtime,
	}, nil
}

// episodeInfo derives episode labels from the parent show: the show's
// typical runtime and year stand in for per-episode detail, which keeps the
// aggregation to one cached request per show instead of one per episode.
func (a *Aggregator) episodeInfo(ctx context.Context, showTraktID int) (mediaInfo, error) {
	show, err := a.showExtended(ctx, showTraktID)
	if err != nil {
		return mediaInfo{}, err
	}

	status := show.Status
	if status == "" {
		status = "unknown"
	}

	return mediaInfo{
		mediaType: "episode",
		status:    status,
		year:      yearLabel(show.Year),
		runtime:   show.Runtime,
	}, nil
}

func (a *Aggregator) showExtended(ctx context.Context, traktID int) (trakt.ShowExtended, error) {
	var show trakt.ShowExtended
	err := a.client.GetInto(ctx, fmt.Sprintf("/shows/%d", traktID), extendedFull, &show)
	return show, err
}

func yearLabel(year int) string {
	if year <= 0 {
		return futureYear
	}
	return fmt.Sprintf("%d", year)
}
