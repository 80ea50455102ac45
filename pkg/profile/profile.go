// Package profile records which release of each distribution was the
// oldest still supported as of a given date.
//
// A [Profile] maps source names to release arguments ("debian" → "jessie").
// Profiles are dated; [Select] picks the newest one not after an as-of date,
// so historical questions ("what was the oldest packaged rustc in March
// 2017?") get the release names that were current back then.
package profile

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/source"
)

// Rolling marks sources without numbered releases.
const Rolling = source.Rolling

const dateLayout = "2006-01-02"

// Profile is a dated mapping from source name to release argument.
type Profile struct {
	Date     string            `toml:"date" json:"date"`
	Releases map[string]string `toml:"releases" json:"releases"`
}

// Defaults returns the built-in profiles, newest first.
func Defaults() []Profile {
	return []Profile{
		{
			Date: "2017-04-14",
			Releases: map[string]string{
				"arch":            Rolling,
				"debian":          "jessie",
				"debian-testing":  "stretch",
				"debian-unstable": "sid",
				"fedora":          "24",
				"fedora-latest":   "25",
				"freebsd":         "2017Q1",
				"freebsd-latest":  "2017Q2",
				"nixos":           Rolling,
				"openbsd":         "6.0",
				"openbsd-latest":  "6.1",
				"opensuse":        "42.2",
				"ubuntu":          "xenial",
				"ubuntu-latest":   "zesty",
			},
		},
		{
			Date: "2017-03-16",
			Releases: map[string]string{
				"arch":            Rolling,
				"debian":          "jessie",
				"debian-testing":  "stretch",
				"debian-unstable": "sid",
				"fedora":          "24",
				"fedora-latest":   "25",
				"nixos":           Rolling,
				"opensuse":        "42.2",
				"ubuntu":          "xenial",
				"ubuntu-latest":   "yakkety",
			},
		},
	}
}

// Validate checks the profile's date and every source name and release.
func (p Profile) Validate() error {
	if _, err := time.Parse(dateLayout, p.Date); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "profile date %q", p.Date)
	}
	for name, release := range p.Releases {
		if err := errors.ValidateSourceName(name); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "profile %s", p.Date)
		}
		if err := errors.ValidateRelease(release); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "profile %s: %s", p.Date, name)
		}
	}
	return nil
}

// With returns the profile's releases with overrides applied on top.
func (p Profile) With(overrides map[string]string) map[string]string {
	out := maps.Clone(p.Releases)
	if out == nil {
		out = make(map[string]string, len(overrides))
	}
	maps.Copy(out, overrides)
	return out
}

// ParseDate normalizes an as-of date given as YYYY, YYYY-MM or YYYY-MM-DD
// to YYYY-MM-DD, padding missing parts with 01. An empty string is today's
// date according to now.
func ParseDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Format(dateLayout), nil
	}

	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	nums := []int{0, 1, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", errors.New(errors.ErrCodeInvalidInput, "invalid date %q: expected YYYY-MM-DD", s)
		}
		nums[i] = n
	}

	d := time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
	if d.Year() != nums[0] || int(d.Month()) != nums[1] || d.Day() != nums[2] {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid date %q", s)
	}
	return fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2]), nil
}

// Select returns the newest profile dated on or before asOf (YYYY-MM-DD).
func Select(profiles []Profile, asOf string) (Profile, error) {
	var candidates []Profile
	for _, p := range profiles {
		if p.Date <= asOf {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Profile{}, errors.New(errors.ErrCodeInvalidInput, "provided date `%s` is too old: no data available", asOf)
	}
	return slices.MaxFunc(candidates, func(a, b Profile) int {
		return cmp.Compare(a.Date, b.Date)
	}), nil
}

// Selection is the parsed form of --distro arguments.
type Selection struct {
	// Names restricts the batch to these sources. Empty means no
	// restriction.
	Names []string

	// Overrides replaces the profile's release for these sources.
	Overrides map[string]string
}

// ParseSelection parses --distro values. Each value is a comma-separated
// list of "name" or "name:release" items.
func ParseSelection(values []string) (Selection, error) {
	sel := Selection{Overrides: make(map[string]string)}
	seen := make(map[string]bool)
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			name, release, _ := strings.Cut(item, ":")
			name = strings.TrimSpace(name)
			release = strings.TrimSpace(release)
			if err := errors.ValidateSourceName(name); err != nil {
				return Selection{}, err
			}
			if err := errors.ValidateRelease(release); err != nil {
				return Selection{}, err
			}
			if !seen[name] {
				seen[name] = true
				sel.Names = append(sel.Names, name)
			}
			if release != "" {
				sel.Overrides[name] = release
			}
		}
	}
	slices.Sort(sel.Names)
	return sel, nil
}
