package cli

import (
	"bytes"
	"testing"

	"traktdata/internal/config"
)

// captureOutput redirects command output into a buffer for the test's
// duration.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := outWriter
	outWriter = &buf
	t.Cleanup(func() { outWriter = old })
	return &buf
}

// resetConfig replaces the package config for the test's duration.
func resetConfig(t *testing.T, c config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

// setFlag temporarily sets a bool flag variable.
func setFlag(t *testing.T, p *bool, v bool) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}
