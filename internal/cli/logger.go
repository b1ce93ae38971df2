package cli

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"traktdata/internal/logging"
)

// newConfiguredLogger creates a new logger configured based on CLI flags.
// Color is dropped when stderr is not a terminal, so CI logs stay clean
// without needing --no-color.
func newConfiguredLogger() *log.Logger {
	l := logging.NewLogger(os.Stderr)
	logging.Configure(l, logging.Flags{
		Verbose: verbose,
		Quiet:   quiet,
		NoColor: noColor || !isTerminal(os.Stderr),
	})
	return l
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
