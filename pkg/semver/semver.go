// Package semver normalizes scraped version strings into a canonical
// major.minor.patch triple.
//
// Distribution pages rarely publish bare versions: Debian shows
// "rustc (1.14.0+dfsg1-3)", Fedora "1.15.1-1.fc24", Nix "rustc-1.16.0".
// Resolvers extract the leading numeric part with their own patterns and hand
// it to [Parse], which accepts three dot-separated integers at the start of
// the string and ignores anything after them.
//
// The zero [Version] doubles as the "unknown" sentinel. Resolution failures
// are reported as [Unknown] rather than propagated, so callers comparing
// versions should filter it with [Version.IsUnknown] first.
package semver

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/matzehuels/decrepit/pkg/errors"
)

// Version is a (major, minor, patch) triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Unknown is the sentinel reported when a source could not be resolved.
var Unknown = Version{}

var leading = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// Parse reads a version from the start of s. Pre-release or packaging
// suffixes after the third component are ignored: "1.14.0+dfsg1" parses as
// 1.14.0. A string without three leading numeric components is a
// MALFORMED_VERSION error.
func Parse(s string) (Version, error) {
	m := leading.FindStringSubmatch(s)
	if m == nil {
		return Unknown, errors.New(errors.ErrCodeMalformedVersion, "no version in %q", s)
	}
	var parts [3]int
	for i, g := range m[1:] {
		n, err := strconv.Atoi(g)
		if err != nil {
			return Unknown, errors.Wrap(errors.ErrCodeMalformedVersion, err, "component %q out of range", g)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// MustParse is like [Parse] but panics on malformed input.
// It is intended for static tables and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsUnknown reports whether v is the [Unknown] sentinel.
func (v Version) IsUnknown() bool { return v == Unknown }

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Patch, o.Patch)
	}
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// MarshalText encodes v in its canonical string form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses the canonical string form.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
