// Package scrape implements the generic scraper behind structural source
// rules.
//
// A rule names a page, an XPath selecting the fragment that carries the
// version and a regular expression with a "version" group. The scraper
// expands the release argument into the URL and XPath templates, fetches the
// page, takes the first XPath match and normalizes what the regex captured:
//
//	s := scrape.New(client)
//	v, err := s.Scrape(ctx, rule, "jessie")
//
// Every remote failure is reported as SCRAPE_ERROR (or the NOT_FOUND and
// NETWORK_ERROR codes of the HTTP client). Turning those into the unknown
// version is left to the dispatch engine.
package scrape

import (
	"context"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/semver"
	"github.com/matzehuels/decrepit/pkg/source"
)

// Fetcher retrieves and parses an HTML document.
// *integrations.Client satisfies it.
type Fetcher interface {
	GetHTML(ctx context.Context, url string) (*html.Node, error)
}

// Scraper evaluates flattened [source.Rule] values against live pages.
// It is safe for concurrent use when its Fetcher is.
type Scraper struct {
	fetch Fetcher
}

// New returns a Scraper fetching pages through f.
func New(f Fetcher) *Scraper {
	return &Scraper{fetch: f}
}

// Scrape resolves the version described by rule for release. rule must
// already be flattened (see [source.Table.Rule]).
func (s *Scraper) Scrape(ctx context.Context, rule source.Rule, release string) (semver.Version, error) {
	re, err := rule.Pattern()
	if err != nil {
		return semver.Unknown, err
	}

	vars := Vars(release)
	url, err := Expand(rule.URL, vars)
	if err != nil {
		return semver.Unknown, err
	}
	expr, err := Expand(rule.XPath, vars)
	if err != nil {
		return semver.Unknown, err
	}

	doc, err := s.fetch.GetHTML(ctx, url)
	if err != nil {
		return semver.Unknown, err
	}

	text, err := First(doc, expr)
	if err != nil {
		return semver.Unknown, err
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return semver.Unknown, errors.New(errors.ErrCodeScrape, "%s: %q does not match %q", url, strings.TrimSpace(text), rule.Regex)
	}
	found := m[re.SubexpIndex("version")]
	if found == "" {
		return semver.Unknown, nil
	}
	return semver.Parse(found)
}

// First evaluates expr against doc and returns the text content of the first
// matching node. Zero matches is a SCRAPE_ERROR; an expression that does not
// compile is a CONFIGURATION_ERROR.
func First(doc *html.Node, expr string) (string, error) {
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfiguration, err, "invalid xpath %q", expr)
	}
	if len(nodes) == 0 {
		return "", errors.New(errors.ErrCodeScrape, "xpath %q matched nothing", expr)
	}
	return htmlquery.InnerText(nodes[0]), nil
}
