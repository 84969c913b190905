// Package version resolves the application release identifier from build
// metadata embedded by the Go toolchain.
package version

import (
	"runtime/debug"
	"strings"
)

const (
	unknownVersionFallbackConstant = "unknown"
	buildInfoDevelVersionValue     = "devel"
	buildInfoDevelParenthesized    = "(devel)"
)

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

// Detector resolves application version strings.
type Detector struct {
	buildInfoProvider BuildInfoProvider
}

// NewDetector constructs a Detector with the supplied provider or the runtime default.
func NewDetector(provider BuildInfoProvider) *Detector {
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}
	return &Detector{buildInfoProvider: provider}
}

// Resolve returns the module version recorded in build metadata, falling back
// to "unknown" for development builds and stripped binaries.
func (detector *Detector) Resolve() string {
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return unknownVersionFallbackConstant
	}
	moduleVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(moduleVersion) == 0 || moduleVersion == buildInfoDevelVersionValue || moduleVersion == buildInfoDevelParenthesized {
		return unknownVersionFallbackConstant
	}
	return moduleVersion
}
