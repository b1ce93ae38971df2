package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

type TraktConfig struct {
	ClientID    string `toml:"client_id" json:"client_id"`
	AccessToken string `toml:"access_token" json:"-"`
}

type FetchConfig struct {
	Timeout float64 `toml:"timeout" json:"timeout"`
}

type CacheConfig struct {
	Dir      string `toml:"dir" json:"dir"`
	MaxBytes int64  `toml:"max_bytes" json:"max_bytes"`
	MinAge   string `toml:"min_age" json:"min_age"`
}

type ExportConfig struct {
	OutputDir string   `toml:"output_dir" json:"output_dir"`
	Exclude   []string `toml:"exclude" json:"exclude"`
}

type PublishConfig struct {
	ChecksumURL string `toml:"checksum_url" json:"checksum_url"`
}

type Config struct {
	Trakt   TraktConfig   `toml:"trakt" json:"trakt"`
	Fetch   FetchConfig   `toml:"fetch" json:"fetch"`
	Cache   CacheConfig   `toml:"cache" json:"cache"`
	Export  ExportConfig  `toml:"export" json:"export"`
	Publish PublishConfig `toml:"publish" json:"publish"`
}

func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			Timeout: 30.0,
		},
		Cache: CacheConfig{
			Dir:      DefaultCacheDir(),
			MaxBytes: 512 * 1024 * 1024,
			MinAge:   "1d",
		},
	}
}

// Load reads the config file at path (or the default location when path is
// empty), applies defaults for missing values, and layers environment
// overrides on top. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigFile()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return applyEnvOverrides(cfg), nil
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return applyEnvOverrides(DefaultConfig()), fmt.Errorf("parsing config %s: %w", path, err)
	}

	return applyEnvOverrides(cfg), nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("TRAKT_CLIENT_ID"); v != "" {
		cfg.Trakt.ClientID = v
	}
	if v := os.Getenv("TRAKT_ACCESS_TOKEN"); v != "" {
		cfg.Trakt.AccessToken = v
	}
	if v := os.Getenv("TRAKT_DATA_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("TRAKT_DATA_CACHE_MIN_AGE"); v != "" {
		cfg.Cache.MinAge = v
	}
	if v := os.Getenv("TRAKT_DATA_CACHE_LIMIT"); v != "" {
		if n, err := humanize.ParseBytes(v); err == nil {
			cfg.Cache.MaxBytes = int64(n)
		}
	}
	if v := os.Getenv("TRAKT_DATA_EXCLUDE"); v != "" {
		var exclude []string
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				exclude = append(exclude, p)
			}
		}
		cfg.Export.Exclude = exclude
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Export.OutputDir = v
	}
	if v := os.Getenv("TRAKT_DATA_CHECKSUM_URL"); v != "" {
		cfg.Publish.ChecksumURL = v
	}
	return cfg
}

// MinAgeDuration parses the cache min-age setting. Plain durations use the Go
// syntax ("36h"); a "d" suffix means whole days ("1d", "7d"). Zero and
// empty mean no age floor.
func (c CacheConfig) MinAgeDuration() (time.Duration, error) {
	return ParseAge(c.MinAge)
}

func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid age %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	return d, nil
}

// TimeoutDuration returns the fetch timeout as a duration.
func (c FetchConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout * float64(time.Second))
}
