// Package buildinfo reports which build of decrepit is running.
//
// Release builds set the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/decrepit/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/decrepit/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/decrepit/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built with go install carry no ldflags; for those the module
// version and VCS stamp embedded by the toolchain are used instead.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fillFrom(info)
}

// fillFrom replaces unset variables with what the toolchain recorded.
func fillFrom(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "none":
			Commit = s.Value
		case s.Key == "vcs.time" && Date == "unknown":
			Date = s.Value
		}
	}
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
