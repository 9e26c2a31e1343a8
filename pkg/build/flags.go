// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the tonewatch binary at
// link time:
//
//	go build -ldflags "-X tonewatch/pkg/build.buildVersion=0.3.0 \
//	  -X tonewatch/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X tonewatch/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without ldflags; Initialize then reports which
// fields are missing and the defaults stay in place.
package build

import (
	"fmt"
	"strings"
)

// Info is the build metadata exposed to the CLI.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders Info the way `tonewatch --version` prints it.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated through -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var buildInfo = &Info{
	Name:        "tonewatch",
	Description: "Detects pure sine tones in live audio and decodes on/off keying into Morse symbols",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
}

// Initialize copies the ldflags variables into the build info. Fields that
// were not stamped keep their defaults and are listed in the returned error,
// so callers can decide whether an unstamped binary is acceptable.
func Initialize() error {
	var missing []string
	set := func(dst *string, src, name string) {
		if src == "" {
			missing = append(missing, name)
			return
		}
		*dst = src
	}

	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("build flags not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
