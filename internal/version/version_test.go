package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123abc"},
		{Key: "vcs.time", Value: "2025-03-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	info := Info{GitCommit: "unknown", BuildDate: "unknown"}
	fillFromBuildSettings(&info, settings)
	if info.GitCommit != "0123abc-dirty" || info.BuildDate != "2025-03-01T10:00:00Z" {
		t.Errorf("info = %+v", info)
	}

	// ldflags values win
	info = Info{GitCommit: "release", BuildDate: "2024-12-24"}
	fillFromBuildSettings(&info, settings)
	if info.GitCommit != "release" || info.BuildDate != "2024-12-24" {
		t.Errorf("ldflags values overwritten: %+v", info)
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent(); !strings.HasPrefix(ua, "boardnode/"+Version+" (") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
