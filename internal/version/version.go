// Package version reports how the popidx binary was built.
//
// Release builds stamp the variables below with
//
//	-ldflags "-X github.com/teranos/popidx/internal/version.Version=v0.3.0
//	          -X github.com/teranos/popidx/internal/version.CommitHash=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unset = "dev"

var (
	CommitHash = unset
	BuildTime  = "unknown"
	Version    = unset
)

// Info is the payload of `popidx version`.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get collects build information. A binary built without ldflags falls back
// to the VCS revision recorded by the Go toolchain, when there is one.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if info.CommitHash == unset {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					info.CommitHash = s.Value
				}
			}
		}
	}
	return info
}

func (i Info) String() string {
	commit := i.CommitHash
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("popidx %s (commit %s, built %s)", i.Version, commit, i.BuildTime)
}
