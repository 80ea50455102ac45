// Package distros is the built-in catalogue of distributions that package
// rustc.
//
// Scraped distributions are described declaratively by a [source.Rule];
// distributions whose package information cannot be read off one page are
// backed by a custom resolver from the integrations packages. Aliases
// ("debian-testing", "fedora-latest") resolve exactly like their target,
// with the release argument chosen by the active profile.
package distros

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/integrations/bodhi"
	"github.com/matzehuels/decrepit/pkg/integrations/nixpkgs"
	"github.com/matzehuels/decrepit/pkg/integrations/revision"
	"github.com/matzehuels/decrepit/pkg/source"
)

// Rules returns the scrape rules of the catalogue.
func Rules() map[string]source.Rule {
	return map[string]source.Rule{
		"arch": {
			URL:   "https://www.archlinux.org/packages/community/x86_64/rust/",
			XPath: "//h2/text()",
			Regex: `rust \d+:(?P<version>\d+[.]\d+[.]\d+)`,
		},
		"debian": {
			URL:   "https://packages.debian.org/{release}/rustc",
			XPath: "//h1/text()",
			Regex: `rustc [(](?P<version>\d+[.]\d+[.]\d+)`,
		},
		"opensuse": {
			URL:   "https://build.opensuse.org/package/view_file/openSUSE:Leap:{release}/rust/rust.spec?expand=1",
			XPath: "//pre/text()",
			Regex: `Version:\s+(?P<version>\d+[.]\d+[.]\d+)`,
		},
		"ubuntu": {
			URL:      "http://packages.ubuntu.com/{release}/rustc",
			Inherits: "debian",
		},
	}
}

// Aliases returns the alias entries of the catalogue, keyed by alias.
func Aliases() map[string]string {
	return map[string]string{
		"debian-testing":  "debian",
		"debian-unstable": "debian",
		"fedora-latest":   "fedora",
		"freebsd-latest":  "freebsd",
		"openbsd-latest":  "openbsd",
		"ubuntu-latest":   "ubuntu",
	}
}

// Definitions returns every catalogue entry. Custom resolvers share the
// given HTTP client; the nixos resolver keeps its package index in store.
// A nil logger falls back to log.Default().
func Definitions(c *integrations.Client, store cache.Cache, logger *log.Logger) map[string]source.Definition {
	if logger == nil {
		logger = log.Default()
	}
	defs := make(map[string]source.Definition)
	for name, rule := range Rules() {
		defs[name] = source.Scrape(rule)
	}
	for name, target := range Aliases() {
		defs[name] = source.Alias(target)
	}
	defs["fedora"] = source.Custom(bodhi.NewClient(c, logger))
	defs["freebsd"] = source.Custom(revision.NewClient(c, revision.FreeBSD, logger))
	defs["nixos"] = source.Custom(nixpkgs.NewClient(c, store, logger))
	defs["openbsd"] = source.Custom(revision.NewClient(c, revision.OpenBSD, logger))
	return defs
}

// Table builds the validated catalogue table.
func Table(c *integrations.Client, store cache.Cache, logger *log.Logger) (*source.Table, error) {
	return source.NewTable(Definitions(c, store, logger))
}
