package config

import "fmt"

// Set at link time:
//
//	go build -ldflags "-X outagewatch/internal/config.version=1.4.0 \
//	    -X outagewatch/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X outagewatch/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the build info for startup logs and the health endpoint.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, built %s)", b.Version, b.Commit, b.BuildTime)
}
