package buildinfo

import (
	"fmt"

	"github.com/cordum/depositor/core/infra/logging"
)

const Name = "depositor"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a single-line build summary.
func Info() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", Version, Commit, Date)
}

// Agent identifies this build in preservation event details.
func Agent() string {
	return Name + "/" + Version
}

// Log writes the build summary for a subcommand.
func Log(command string) {
	logging.Info(Name, "starting", "command", command, "version", Version, "commit", Commit, "date", Date)
}
