package fundtool

import (
	"fmt"
	"runtime/debug"
)

// Release version components. Suffix is set for builds that are not a
// tagged release, for example "-dev".
const (
	Maj    = 0
	Min    = 1
	Fix    = 0
	Suffix = "-dev"
)

// GitCommit is set by build flags:
//   go build -ldflags "-X github.com/iov-one/fundtool.GitCommit=$(git rev-parse --short HEAD)"
// When not set, the VCS revision recorded by the Go toolchain is used.
var GitCommit = ""

var version = fmt.Sprintf("v%d.%d.%d%s", Maj, Min, Fix, Suffix)

// Version returns the release version followed by the commit, if known.
func Version() string {
	commit := GitCommit
	if commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		return version
	}
	return version + " " + commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 8 {
			return s.Value[:8]
		}
	}
	return ""
}
