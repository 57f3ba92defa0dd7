// Package version identifies the stsync build and decides which peers it can sync with.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
)

const devVersion = "0.1.0-dev"

// Set with -ldflags "-X github.com/stlauncher/stsync/internal/version.Version=..." on release builds
var (
	AppName   = "stsync"
	Version   = devVersion
	Revision  = "HEAD"
	BuildDate = ""
)

// fillFromBuild backfills whatever ldflags left at its placeholder
func fillFromBuild(mainVersion string, settings map[string]string) {
	if (Version == devVersion || Version == "") && mainVersion != "" && mainVersion != "(devel)" {
		Version = strings.TrimPrefix(mainVersion, "v")
	}

	if rev := settings["vcs.revision"]; rev != "" && (Revision == "HEAD" || Revision == "") {
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Revision = rev
	}

	if BuildDate == "" {
		BuildDate = settings["vcs.time"]
	}
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		settings := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
		fillFromBuild(info.Main.Version, settings)
	}
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}

// Short is `0.1.0 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

func ShortWithApp() string {
	return AppName + " " + Short()
}

// Detailed is `0.1.0 (5e23a4; go1.23.6; linux/arm64; 2025-01-01T00:00:00Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

// UserAgent is sent by the sync client on every request
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s; %s)", AppName, Version, Revision, runtime.GOOS, runtime.GOARCH)
}

// Compatible reports whether a peer running remote speaks the same sync protocol as this build.
// Peers agree when their major versions match, and their minor versions too while the major is 0.
// A version either side cannot parse is assumed compatible.
func Compatible(remote string) bool {
	return compatible(Version, remote)
}

func compatible(local, remote string) bool {
	lv, err := goversion.NewVersion(local)
	if err != nil {
		return true
	}
	rv, err := goversion.NewVersion(remote)
	if err != nil {
		return true
	}

	ls, rs := lv.Segments(), rv.Segments()
	if ls[0] != rs[0] {
		return false
	}
	return ls[0] != 0 || ls[1] == rs[1]
}
