package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo, ok bool) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, ok }
	reset()
	t.Cleanup(func() {
		readBuildInfo = orig
		reset()
	})
}

func TestInfoFromBuildSettings(t *testing.T) {
	tests := []struct {
		name       string
		info       *debug.BuildInfo
		ok         bool
		wantVer    string
		wantCommit string
		wantDate   string
	}{
		{
			name: "Tagged",
			info: &debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			ok:         true,
			wantVer:    "v1.2.0",
			wantCommit: "0123456789ab",
			wantDate:   "2026-01-02T03:04:05Z",
		},
		{
			name: "DevelDirty",
			info: &debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			ok:         true,
			wantVer:    "dev",
			wantCommit: "abc123-dirty",
			wantDate:   "unknown",
		},
		{
			name:       "NoBuildInfo",
			ok:         false,
			wantVer:    "dev",
			wantCommit: "unknown",
			wantDate:   "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildInfo(t, tt.info, tt.ok)

			if got := GetVersion(); got != tt.wantVer {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVer)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if got := GetDate(); got != tt.wantDate {
				t.Errorf("GetDate() = %q, want %q", got, tt.wantDate)
			}
			if info := Info(); !strings.HasPrefix(info, Name+" "+tt.wantVer) {
				t.Errorf("Info() = %q", info)
			}
		})
	}
}

func TestLdflagsTakePrecedence(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}, true)

	Version, Commit, Date = "1.0.0", "deadbeef", "2026-05-01"

	if GetVersion() != "1.0.0" || GetCommit() != "deadbeef" || GetDate() != "2026-05-01" {
		t.Errorf("ldflags values overwritten: %s", Info())
	}
}
