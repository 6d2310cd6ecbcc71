// Package version holds build metadata set via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/jackzampolin/marquee/version.GitRelease=v0.1.0"
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo is the toolchain and platform the binary was built for.
var GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
