// Package fwversion parses the semantic version string reported by the board firmware.
package fwversion

import (
	"fmt"
	"regexp"
	"strings"
)

// semverRe is the grammar from semver.org with named groups.
var semverRe = regexp.MustCompile(`^(?P<major>0|[1-9]\d*)\.(?P<minor>0|[1-9]\d*)\.(?P<patch>0|[1-9]\d*)` +
	`(?:-(?P<prerelease>(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+(?P<buildmetadata>[0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// Version is a parsed firmware version. Fields are kept as the tokens the board
// sent; only Major takes part in command set dispatch.
type Version struct {
	Major         string
	Minor         string
	Patch         string
	Prerelease    string
	BuildMetadata string
}

// ParseError reports a malformed version string.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("version string %q is not a semantic version", e.Input)
}

// Parse parses s after trimming surrounding whitespace.
func Parse(s string) (Version, error) {
	m := semverRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, &ParseError{Input: s}
	}

	group := func(name string) string {
		return m[semverRe.SubexpIndex(name)]
	}
	return Version{
		Major:         group("major"),
		Minor:         group("minor"),
		Patch:         group("patch"),
		Prerelease:    group("prerelease"),
		BuildMetadata: group("buildmetadata"),
	}, nil
}

// String formats the version back into semver form.
func (v Version) String() string {
	s := v.Major + "." + v.Minor + "." + v.Patch
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.BuildMetadata != "" {
		s += "+" + v.BuildMetadata
	}
	return s
}
