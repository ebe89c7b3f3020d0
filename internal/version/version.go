// Package version reports what build of mailsheet is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknown = "unknown"

// Set by the build using -ldflags.
var (
	// Version is the release version.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = unknown
	// BuildDate is when the binary was built.
	BuildDate = unknown
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build description, filling in whatever the linker
// did not set from the binary's embedded build info.
func Get() Info {
	return build(Version, Commit, BuildDate)
}

func build(version, commit, date string) Info {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					if commit == unknown {
						commit = setting.Value
					}
				case "vcs.time":
					if date == unknown {
						date = setting.Value
					}
				}
			}
		}
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		date = t.Format("2006-01-02 15:04:05 MST")
	}
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
