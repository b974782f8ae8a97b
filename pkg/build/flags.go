// SPDX-License-Identifier: MIT

// Package build carries build metadata injected at compile time via
// -ldflags. Name, version, commit and timestamp default to "dev" so the
// binary stays usable when built without the release script.
package build

import "fmt"

// Info holds the resolved build metadata.
type Info struct {
	Name    string
	Version string
	Commit  string
	Time    string
}

// Populated by -ldflags at release builds.
var (
	buildName    string
	buildVersion string
	buildCommit  string
	buildTime    string
)

// Resolve returns the build info, substituting "dev" for any field
// the linker did not set. The name falls back to "conch".
func Resolve() Info {
	orDev := func(s string) string {
		if s == "" {
			return "dev"
		}
		return s
	}
	name := buildName
	if name == "" {
		name = "conch"
	}
	return Info{
		Name:    name,
		Version: orDev(buildVersion),
		Commit:  orDev(buildCommit),
		Time:    orDev(buildTime),
	}
}

// String formats the info for a --version banner.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
