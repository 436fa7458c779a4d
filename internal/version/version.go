package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information. A plain `go build` carries no
// ldflags, so the commit and date then come from the VCS stamp in the
// binary's build info.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildSettings(&info, bi.Settings)
	}
	return info
}

func fillFromBuildSettings(info *Info, settings []debug.BuildSetting) {
	fromVCS, dirty := false, false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
				fromVCS = true
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if fromVCS && dirty {
		info.GitCommit += "-dirty"
	}
}

// String returns the application version string.
func String() string {
	return Version
}

// UserAgent identifies the CLI client in HTTP requests.
func UserAgent() string {
	return "boardnode/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
