// Package buildinfo exposes version information for graphite binaries.
//
// Version, Commit and BuildTime are injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/graphite-go/internal/infra/buildinfo.Version=v0.3.0"
//
// When Commit is not injected it falls back to the VCS revision the Go
// toolchain embedded in the binary.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

var vcsOnce = sync.OnceValues(func() (revision, modified string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	return revision, modified
})

// Get returns the build information.
func Get() Info {
	commit := Commit
	if commit == "unknown" {
		if rev, modified := vcsOnce(); rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			if modified == "true" {
				rev += "-dirty"
			}
			commit = rev
		}
	}

	return Info{
		Version:   Version,
		Commit:    commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ") built at " + i.BuildTime + " with " + i.GoVersion
}

// UserAgent returns the User-Agent graphite sends on outbound requests.
func UserAgent() string {
	return "graphite/" + Version
}
