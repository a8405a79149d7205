// Package version provides build version information and runtime metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Name is the program name reported by Info.
const Name = "usage-ledger"

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once

	// readBuildInfo is swapped in tests.
	readBuildInfo = debug.ReadBuildInfo
)

func ensureInitialized() {
	once.Do(func() {
		info, ok := readBuildInfo()
		if Version == "" {
			Version = "dev"
			if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
				Version = info.Main.Version
			}
		}
		if !ok {
			if Commit == "" {
				Commit = "unknown"
			}
			if Date == "" {
				Date = "unknown"
			}
			return
		}
		modified := false
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "" {
					Commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if Date == "" {
					Date = s.Value
				}
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
		if Commit == "" {
			Commit = "unknown"
		} else if modified && Commit != "unknown" {
			Commit += "-dirty"
		}
		if Date == "" {
			Date = "unknown"
		}
	})
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// reset clears cached build metadata.
func reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

// GetVersion returns the resolved version string.
func GetVersion() string {
	ensureInitialized()
	return Version
}

// GetCommit returns the resolved commit.
func GetCommit() string {
	ensureInitialized()
	return Commit
}

// GetDate returns the build or commit date.
func GetDate() string {
	ensureInitialized()
	return Date
}

// Info returns a one-line description of the build.
func Info() string {
	ensureInitialized()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s/%s)",
		Name, Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
