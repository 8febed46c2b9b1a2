// SPDX-License-Identifier: MIT
//
// Package build holds build metadata embedded at link time:
//
//	go build -ldflags "-X popdetect/pkg/build.buildName=popdetect \
//	  -X popdetect/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X popdetect/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X popdetect/pkg/build.buildVersion=0.1.0"
package build

import "fmt"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

const description = "Detect amplitude pops in audio files and live input"

// Populated by -ldflags. Development builds keep the "unknown" defaults.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "popdetect",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
)

// Initialize validates and copies build information from ldflags variables into the build
// flags. It returns an error naming the first missing flag; the defaults stay in place in that
// case so development builds remain usable.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders the version line printed by --version.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
