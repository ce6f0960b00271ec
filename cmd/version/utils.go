package version

import (
	"runtime/debug"
	"strings"
	"time"
)

// These variables can be overridden at build time with ldflags
var (
	Version   string // -X github.com/trufnetwork/zkattest/cmd/version.Version=...
	Commit    string // -X github.com/trufnetwork/zkattest/cmd/version.Commit=...
	BuildTime string // -X github.com/trufnetwork/zkattest/cmd/version.BuildTime=...
)

const devVersion = "dev"

func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// getVersion returns the ldflags version, then the module version, then "dev".
func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion
}

// getCommit returns the commit (short form) from ldflags or the embedded VCS info.
func getCommit() string {
	commit := Commit
	if commit == "" {
		commit = buildSetting("vcs.revision")
	}

	// Return short form (9 chars) for readability
	const shortHashLength = 9
	if len(commit) > shortHashLength {
		return commit[:shortHashLength]
	}
	return commit
}

func isDirty() bool {
	if Version != "" {
		return strings.HasSuffix(Version, "dirty")
	}
	return buildSetting("vcs.modified") == "true"
}

// getBuildTime returns the ldflags build time, falling back to the commit time.
func getBuildTime() time.Time {
	for _, raw := range []string{BuildTime, buildSetting("vcs.time")} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// getBuildTimeDisplay returns a formatted build time with context about whether it's commit or build time
func getBuildTimeDisplay() string {
	buildTime := getBuildTime()
	if buildTime.IsZero() {
		return "unknown"
	}
	if BuildTime != "" && isDirty() {
		return buildTime.Format(time.RFC3339) + " (build time)"
	}
	return buildTime.Format(time.RFC3339) + " (commit time)"
}
