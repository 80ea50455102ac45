// Package bodhi resolves the packaged rustc version of a Fedora release
// through the Fedora packages app's Bodhi connector.
package bodhi

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/semver"
)

// DefaultURL queries the active Fedora releases carrying the rust package.
const DefaultURL = "https://apps.fedoraproject.org/packages/fcomm_connector" +
	"/bodhi/query/query_active_releases/" +
	"%7B%22filters%22:%7B%22package%22:%22rust%22%7D," +
	"%22rows_per_page%22:100%7D"

// stableVersion pulls the version out of the markup Bodhi wraps around it,
// e.g. `<a href="...">1.15.1-1.fc25</a>`.
var stableVersion = regexp.MustCompile(`>(\d+[.]\d+[.]\d+)(-[^<]+)?<`)

// Row is one release row of the Bodhi response.
type Row struct {
	Release        string `json:"release"`
	StableVersion  string `json:"stable_version"`
	TestingVersion string `json:"testing_version"`
}

type response struct {
	Rows []Row `json:"rows"`
}

// Client resolves Fedora releases against the Bodhi query endpoint.
// It issues exactly one request per lookup and never retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	url    string
	logger *log.Logger
}

// NewClient creates a Bodhi resolver using the shared HTTP client.
func NewClient(c *integrations.Client, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{Client: c, url: DefaultURL, logger: logger}
}

// Resolve returns the stable rust version of the first row whose release
// name contains release (e.g. "25" matches "Fedora 25").
//
// Returns:
//   - NOT_FOUND if no row matches
//   - SCRAPE_ERROR if the matching row carries no recognizable version
//   - NETWORK_ERROR for HTTP failures
func (c *Client) Resolve(ctx context.Context, release string) (semver.Version, error) {
	c.logger.Debug("bodhi lookup", "release", release)

	var resp response
	if err := c.Get(ctx, c.url, &resp); err != nil {
		return semver.Unknown, err
	}

	row, ok := match(resp.Rows, release)
	if !ok {
		return semver.Unknown, errors.New(errors.ErrCodeNotFound, "could not find package information for Fedora %s", release)
	}

	m := stableVersion.FindStringSubmatch(row.StableVersion)
	if m == nil {
		return semver.Unknown, errors.New(errors.ErrCodeScrape, "no version in stable_version %q of %s", row.StableVersion, row.Release)
	}
	return semver.Parse(m[1])
}

func match(rows []Row, release string) (Row, bool) {
	for _, r := range rows {
		if strings.Contains(r.Release, release) {
			return r, true
		}
	}
	return Row{}, false
}
