package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFill(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	tests := []struct {
		name                              string
		version, commit                   string
		info                              debug.BuildInfo
		wantVersion, wantCommit, wantDate string
	}{
		{
			name:    "toolchain stamps",
			version: "dev", commit: "none",
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}, {Key: "vcs.time", Value: "2026-01-02T03:04:05Z"}},
			},
			wantVersion: "v0.3.0", wantCommit: "abc123", wantDate: "2026-01-02T03:04:05Z",
		},
		{
			name:    "devel build keeps defaults",
			version: "dev", commit: "none",
			info:        debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVersion: "dev", wantCommit: "none", wantDate: "unknown",
		},
		{
			name:    "ldflags win",
			version: "v1.0.0", commit: "feed",
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
			},
			wantVersion: "v1.0.0", wantCommit: "feed", wantDate: "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, Date = tt.version, tt.commit, "unknown"
			fill(&tt.info)
			if Version != tt.wantVersion || Commit != tt.wantCommit || Date != tt.wantDate {
				t.Errorf("got %s/%s/%s, want %s/%s/%s", Version, Commit, Date, tt.wantVersion, tt.wantCommit, tt.wantDate)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	if !strings.Contains(Template(), "{{.Name}} version") {
		t.Errorf("Template() = %q", Template())
	}
	if !strings.HasPrefix(String(), "version: ") {
		t.Errorf("String() = %q", String())
	}
}
