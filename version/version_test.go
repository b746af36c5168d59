package version

import (
	"strings"
	"testing"
	"time"
)

func restoreVars() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() { Version, GitCommit, BuildTime = v, c, b }
}

func TestGetUsesLinkerValues(t *testing.T) {
	defer restoreVars()()
	Version = "1.2.0"
	GitCommit = "abc1234"
	BuildTime = "2026-01-02T03:04:05Z"

	info := Get()
	if info.Version != "1.2.0" || info.GitCommit != "abc1234" {
		t.Errorf("unexpected info: %+v", info)
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !info.BuildTime.Equal(want) {
		t.Errorf("expected build time %s, got %s", want, info.BuildTime)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("expected runtime fields, got %+v", info)
	}
}

func TestGetIgnoresMalformedBuildTime(t *testing.T) {
	defer restoreVars()()
	BuildTime = "yesterday"
	GitCommit = "abc1234"

	if info := Get(); info.GitCommit != "abc1234" {
		t.Errorf("expected commit kept, got %+v", info)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0 (abc1234)"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}, "1.0.0 (abc1234, dirty)"},
	}
	for _, tc := range tests {
		if got := tc.info.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestIsRelease(t *testing.T) {
	if (Info{Version: "dev"}).IsRelease() {
		t.Error("dev must not be a release")
	}
	if (Info{Version: "1.0.0", Dirty: true}).IsRelease() {
		t.Error("dirty build must not be a release")
	}
	if !(Info{Version: "1.0.0"}).IsRelease() {
		t.Error("expected release")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("unexpected %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("unexpected %q", got)
	}
}
