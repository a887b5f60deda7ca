// Package version exposes build metadata set via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/jackzampolin/lqa/version.GitRelease=v0.1.0 -X ..."
var (
	GitRelease    = "dev"
	GitCommit     = ""
	GitCommitDate = ""
	GoInfo        = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

func init() {
	if GitCommit != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			GitCommitDate = s.Value
		}
	}
}

// Info is the version summary printed by `lqa version`.
type Info struct {
	Release    string `json:"release" yaml:"release"`
	Commit     string `json:"commit,omitempty" yaml:"commit,omitempty"`
	CommitDate string `json:"commit_date,omitempty" yaml:"commit_date,omitempty"`
	Go         string `json:"go" yaml:"go"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Release:    GitRelease,
		Commit:     GitCommit,
		CommitDate: GitCommitDate,
		Go:         GoInfo,
	}
}
