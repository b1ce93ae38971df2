package cli

import (
	"context"
	"strings"
	"testing"

	"traktdata/internal/testenv"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	testenv.ApplySameDir(t.Setenv, t.TempDir())
	buf := captureOutput(t)

	rootCmd.SetArgs([]string{"--version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("root --version: %v", err)
	}
	if !strings.Contains(buf.String(), "trakt-data") {
		t.Errorf("expected version output, got %q", buf.String())
	}
}

func TestNewTraktClient_RequiresCredentials(t *testing.T) {
	resetConfig(t, cfg)
	cfg.Trakt.ClientID = ""
	cfg.Trakt.AccessToken = ""

	if _, err := newTraktClient(context.Background()); err == nil {
		t.Error("expected error without credentials")
	}

	cfg.Trakt.ClientID = "id"
	if _, err := newTraktClient(context.Background()); err == nil {
		t.Error("expected error without access token")
	}

	cfg.Trakt.AccessToken = "token"
	if _, err := newTraktClient(context.Background()); err != nil {
		t.Errorf("expected client with full credentials, got %v", err)
	}
}
