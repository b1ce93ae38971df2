package trakt

import "encoding/json"

// Typed views over the API payloads the pipeline inspects. Exported files
// are written from the raw responses, so these structs only carry the fields
// the exporter and metrics aggregator branch on; unknown fields survive in
// the raw JSON untouched.

type IDs struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug,omitempty"`
}

type Movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

type Episode struct {
	Season int    `json:"season"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	IDs    IDs    `json:"ids"`
}

// MovieExtended is /movies/{id}?extended=full.
type MovieExtended struct {
	Title    string `json:"title"`
	Year     int    `json:"year"`
	IDs      IDs    `json:"ids"`
	Released string `json:"released"`
	Runtime  int    `json:"runtime"`
	Status   string `json:"status"`
}

// MovieRelease is one row of /movies/{id}/releases/{country}.
type MovieRelease struct {
	Country     string `json:"country"`
	ReleaseDate string `json:"release_date"`
	ReleaseType string `json:"release_type"`
}

// MovieReleaseTypes orders release types from narrowest to widest
// availability. The index is used to pick the widest past release.
var MovieReleaseTypes = []string{
	"unknown", "premiere", "limited", "theatrical", "digital", "physical", "tv",
}

// ShowExtended is /shows/{id}?extended=full.
type ShowExtended struct {
	Title         string `json:"title"`
	Year          int    `json:"year"`
	IDs           IDs    `json:"ids"`
	FirstAired    string `json:"first_aired"`
	Runtime       int    `json:"runtime"`
	Status        string `json:"status"`
	AiredEpisodes int    `json:"aired_episodes"`
}

type HistoryItem struct {
	ID        int64    `json:"id"`
	WatchedAt string   `json:"watched_at"`
	Action    string   `json:"action"`
	Type      string   `json:"type"`
	Movie     *Movie   `json:"movie,omitempty"`
	Episode   *Episode `json:"episode,omitempty"`
	Show      *Show    `json:"show,omitempty"`
}

type WatchedShow struct {
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
	Show          Show   `json:"show"`
}

// ShowProgress is /shows/{id}/progress/watched, reduced to the fields the
// up-next derivation branches on. Nullable fields stay raw so they copy
// through verbatim.
type ShowProgress struct {
	Aired         int             `json:"aired"`
	Completed     int             `json:"completed"`
	LastWatchedAt json.RawMessage `json:"last_watched_at"`
	ResetAt       json.RawMessage `json:"reset_at"`
	NextEpisode   json.RawMessage `json:"next_episode"`
	LastEpisode   json.RawMessage `json:"last_episode"`
}

// HiddenItem is one row of /users/hidden/{section} for show sections.
type HiddenItem struct {
	HiddenAt string `json:"hidden_at"`
	Type     string `json:"type"`
	Show     *Show  `json:"show,omitempty"`
}

type Rating struct {
	RatedAt string   `json:"rated_at"`
	Rating  int      `json:"rating"`
	Type    string   `json:"type"`
	Movie   *Movie   `json:"movie,omitempty"`
	Show    *Show    `json:"show,omitempty"`
	Episode *Episode `json:"episode,omitempty"`
}

type CollectedMovie struct {
	CollectedAt string `json:"collected_at"`
	Movie       Movie  `json:"movie"`
}

type CollectedShow struct {
	LastCollectedAt string `json:"last_collected_at"`
	Show            Show   `json:"show"`
}

type ListInfo struct {
	IDs IDs `json:"ids"`
}

type ListItem struct {
	Rank     int      `json:"rank"`
	ListedAt string   `json:"listed_at"`
	Type     string   `json:"type"`
	Movie    *Movie   `json:"movie,omitempty"`
	Show     *Show    `json:"show,omitempty"`
	Episode  *Episode `json:"episode,omitempty"`
}

type UserProfile struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	IDs      IDs    `json:"ids"`
	VIPYears int    `json:"vip_years"`
}

// LastActivities is /sync/last_activities: a nest of per-category
// "something_at" timestamps the exporter uses for freshness gating.
type LastActivities struct {
	All       string            `json:"all"`
	Movies    map[string]string `json:"movies"`
	Episodes  map[string]string `json:"episodes"`
	Shows     map[string]string `json:"shows"`
	Seasons   map[string]string `json:"seasons"`
	Comments  map[string]string `json:"comments"`
	Lists     map[string]string `json:"lists"`
	Watchlist map[string]string `json:"watchlist"`
	Account   map[string]string `json:"account"`
}

// Section returns the timestamp map for a named section, nil when absent.
func (a LastActivities) Section(name string) map[string]string {
	switch name {
	case "movies":
		return a.Movies
	case "episodes":
		return a.Episodes
	case "shows":
		return a.Shows
	case "seasons":
		return a.Seasons
	case "comments":
		return a.Comments
	case "lists":
		return a.Lists
	case "watchlist":
		return a.Watchlist
	case "account":
		return a.Account
	}
	return nil
}
