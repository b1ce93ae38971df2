package testenv

import "path/filepath"

// Dirs contains isolated directories for trakt-data config/output/cache in tests.
type Dirs struct {
	Base   string
	Config string
	Output string
	Cache  string
}

// TraktDataDirs returns conventional test directories rooted at base.
func TraktDataDirs(base string) Dirs {
	return Dirs{
		Base:   base,
		Config: filepath.Join(base, "config"),
		Output: filepath.Join(base, "output"),
		Cache:  filepath.Join(base, "cache"),
	}
}

// ApplyTraktData sets TRAKT_DATA_* env vars to isolated test directories.
func ApplyTraktData(setenv func(string, string), base string) Dirs {
	dirs := TraktDataDirs(base)
	setenv("TRAKT_DATA_CONFIG_DIR", dirs.Config)
	setenv("OUTPUT_DIR", dirs.Output)
	setenv("TRAKT_DATA_CACHE_DIR", dirs.Cache)
	return dirs
}

// ApplySameDir points config/output/cache to the same directory.
// Useful in tests that expect ConfigDir() to exactly match a temp dir path.
func ApplySameDir(setenv func(string, string), dir string) {
	setenv("TRAKT_DATA_CONFIG_DIR", dir)
	setenv("OUTPUT_DIR", dir)
	setenv("TRAKT_DATA_CACHE_DIR", dir)
}
