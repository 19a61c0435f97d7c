// Package version carries build metadata injected with -ldflags, falling
// back to the VCS stamp the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

// String renders the one-line build banner printed by `scancap version`.
func String() string {
	commit, date := Commit, Date
	if commit == "none" {
		commit, date = fromBuildInfo(commit, date)
	}
	return fmt.Sprintf("scancap %s (commit=%s, date=%s, go=%s)", Version, commit, date, runtime.Version())
}

func fromBuildInfo(commit, date string) (string, string) {
	info, ok := readBuildInfo()
	if !ok {
		return commit, date
	}

	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.time":
			if date == "unknown" {
				date = setting.Value
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if dirty && commit != "none" {
		commit += "-dirty"
	}
	return commit, date
}
