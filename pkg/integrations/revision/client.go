// Package revision resolves versions from ports trees published through a
// version-control web UI (ViewVC/svnweb, cvsweb).
//
// A lookup takes two requests. The first fetches the directory listing of
// the port and reads the latest revision of its Makefile with an XPath. The
// second fetches exactly that revision of the Makefile and applies a
// multi-line regex to the version declaration.
//
//	c := revision.NewClient(http, revision.FreeBSD, logger)
//	v, err := c.Resolve(ctx, "2017Q1")
package revision

import (
	"context"
	"maps"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/scrape"
	"github.com/matzehuels/decrepit/pkg/semver"
)

// Config describes one web UI. ListingURL, RevisionXPath and FileURL are
// templates (see scrape.Expand) over the variables returned by Vars plus
// {base}; FileURL also sees {revision}.
type Config struct {
	Name          string
	Base          string
	ListingURL    string
	RevisionXPath string
	FileURL       string
	Version       *regexp.Regexp // first group is the version
	Vars          func(release string) map[string]string
}

// FreeBSD looks up lang/rust in a quarterly ports branch ("2017Q1").
var FreeBSD = Config{
	Name:          "freebsd",
	Base:          "https://svnweb.freebsd.org/",
	ListingURL:    "{base}ports/branches/{release}/lang/rust",
	RevisionXPath: "//tr[normalize-space(td[1]/a)='Makefile']/td[2]//strong/text()",
	FileURL:       "{base}ports/branches/{release}/lang/rust/Makefile?revision={revision}&view=co",
	Version:       regexp.MustCompile(`(?m)^PORTVERSION[?]?\s*=\s*(\d+[.]\d+[.]\d+)`),
	Vars:          scrape.Vars,
}

// OpenBSD looks up lang/rust on the OPENBSD_x_y tag of a release ("6.0").
var OpenBSD = Config{
	Name:          "openbsd",
	Base:          "http://cvsweb.openbsd.org/cgi-bin/cvsweb/",
	ListingURL:    "{base}ports/lang/rust/?only_with_tag={tag}",
	RevisionXPath: "//tr[td[1]/a[3]/text()='Makefile']/td[2]/a/b/text()",
	FileURL:       "{base}~checkout~/ports/lang/rust/Makefile?rev={revision}&only_with_tag={tag}",
	Version:       regexp.MustCompile(`(?m)^V\s*=\s*(\d+[.]\d+[.]\d+)`),
	Vars:          openbsdVars,
}

func openbsdVars(release string) map[string]string {
	vars := scrape.Vars(release)
	if release != "" {
		vars["tag"] = "OPENBSD_" + strings.ReplaceAll(release, ".", "_")
	}
	return vars
}

// Client resolves one web UI described by a Config. It never retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	cfg    Config
	logger *log.Logger
}

// NewClient creates a two-step resolver for cfg.
func NewClient(c *integrations.Client, cfg Config, logger *log.Logger) *Client {
	if cfg.Vars == nil {
		cfg.Vars = scrape.Vars
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{Client: c, cfg: cfg, logger: logger.With("resolver", cfg.Name)}
}

// Resolve finds the latest Makefile revision for release and extracts the
// version declared in it.
//
// Returns:
//   - SCRAPE_ERROR if the listing has no Makefile row or the Makefile has
//     no version declaration
//   - NOT_FOUND or NETWORK_ERROR for HTTP failures
func (c *Client) Resolve(ctx context.Context, release string) (semver.Version, error) {
	vars := maps.Clone(c.cfg.Vars(release))
	vars["base"] = c.cfg.Base

	listing, err := scrape.Expand(c.cfg.ListingURL, vars)
	if err != nil {
		return semver.Unknown, err
	}
	expr, err := scrape.Expand(c.cfg.RevisionXPath, vars)
	if err != nil {
		return semver.Unknown, err
	}

	doc, err := c.GetHTML(ctx, listing)
	if err != nil {
		return semver.Unknown, err
	}
	rev, err := scrape.First(doc, expr)
	if err != nil {
		return semver.Unknown, err
	}
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return semver.Unknown, errors.New(errors.ErrCodeScrape, "%s: empty Makefile revision", listing)
	}
	c.logger.Debug("found revision", "release", release, "revision", rev)

	vars["revision"] = url.QueryEscape(rev)
	file, err := scrape.Expand(c.cfg.FileURL, vars)
	if err != nil {
		return semver.Unknown, err
	}
	text, err := c.GetText(ctx, file)
	if err != nil {
		return semver.Unknown, err
	}

	m := c.cfg.Version.FindStringSubmatch(text)
	if m == nil {
		return semver.Unknown, errors.New(errors.ErrCodeScrape, "%s: no version declaration matching %q", file, c.cfg.Version)
	}
	return semver.Parse(m[1])
}
