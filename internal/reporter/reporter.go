package reporter

import (
	"os"

	"golang.org/x/term"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Reporter is the interface for output formatters
type Reporter interface {
	// Report renders a correlation run
	Report(report *models.Report) ([]byte, error)
}

// Formats lists the accepted output format names
var Formats = []string{"terminal", "json", "sarif", "pdf", "markdown"}

// Get returns a reporter for the specified format. color only affects the
// terminal format.
func Get(format string, color bool) Reporter {
	switch format {
	case "json":
		return &JSONReporter{}
	case "sarif":
		return &SARIFReporter{}
	case "pdf":
		return &PDFReporter{}
	case "markdown", "md":
		return &MarkdownReporter{}
	default:
		return &TerminalReporter{Color: color}
	}
}

// ColorEnabled reports whether ANSI colours should be written to f
func ColorEnabled(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
