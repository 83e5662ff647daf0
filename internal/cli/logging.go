package cli

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogging configures the process-wide logger.
func SetupLogging(verbose bool) {
	log.SetOutput(os.Stderr)
	log.SetPrefix("gen-inspection")
	log.SetReportTimestamp(false)
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.InfoLevel)
}
