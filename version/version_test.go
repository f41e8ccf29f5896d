package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildWithoutInfo(t *testing.T) {
	info := fromBuild("1.2.0", "abc", nil)
	if got := info.String(); got != "1.2.0-abc" {
		t.Errorf("got %q", got)
	}
}

func TestFromBuildSettings(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := fromBuild("dev", "", bi)
	if info.Version != "v0.3.1" {
		t.Errorf("expected module version, got %q", info.Version)
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("unexpected go version %q", info.GoVersion)
	}
	if got := info.String(); got != "v0.3.1-0123456-dirty" {
		t.Errorf("got %q", got)
	}
}

func TestLdflagsWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fffffff"}},
	}
	info := fromBuild("2.0.0", "1111111", bi)
	if info.String() != "2.0.0-1111111" {
		t.Errorf("got %q", info.String())
	}
}

func TestShort(t *testing.T) {
	if Short() == "" {
		t.Error("expected a version string")
	}
}
