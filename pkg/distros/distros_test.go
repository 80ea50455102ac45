package distros

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/profile"
	"github.com/matzehuels/decrepit/pkg/resolve"
	"github.com/matzehuels/decrepit/pkg/scrape"
	"github.com/matzehuels/decrepit/pkg/source"
)

func newTable(t *testing.T, c *integrations.Client) *source.Table {
	t.Helper()
	tbl, err := Table(c, cache.NewNullCache(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	return tbl
}

func TestTable(t *testing.T) {
	tbl := newTable(t, integrations.NewClient(time.Second, nil))

	want := []string{
		"arch", "debian", "debian-testing", "debian-unstable",
		"fedora", "fedora-latest", "freebsd", "freebsd-latest",
		"nixos", "openbsd", "openbsd-latest", "opensuse",
		"ubuntu", "ubuntu-latest",
	}
	if tbl.Len() != len(want) {
		t.Errorf("Len() = %d, want %d: %v", tbl.Len(), len(want), tbl.Names())
	}
	for _, name := range want {
		if _, ok := tbl.Lookup(name); !ok {
			t.Errorf("missing %s", name)
		}
	}
}

func TestProfilesUseKnownSources(t *testing.T) {
	tbl := newTable(t, integrations.NewClient(time.Second, nil))
	for _, p := range profile.Defaults() {
		for name := range p.Releases {
			if _, ok := tbl.Lookup(name); !ok {
				t.Errorf("profile %s names unknown source %s", p.Date, name)
			}
		}
	}
}

func TestUbuntuInheritsDebian(t *testing.T) {
	tbl := newTable(t, integrations.NewClient(time.Second, nil))
	rule, err := tbl.Rule("ubuntu")
	if err != nil {
		t.Fatalf("Rule(ubuntu) error: %v", err)
	}
	debian := Rules()["debian"]
	if rule.URL != "http://packages.ubuntu.com/{release}/rustc" || rule.XPath != debian.XPath || rule.Regex != debian.Regex {
		t.Errorf("Rule(ubuntu) = %+v", rule)
	}
	for alias, target := range Aliases() {
		got, err := tbl.Target(alias)
		if err != nil || got != target {
			t.Errorf("Target(%s) = %q, %v, want %q", alias, got, err, target)
		}
	}
}

func TestResolveThroughCatalogue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stretch/rustc":
			io.WriteString(w, `<html><body><h1>Package: rustc (1.14.0+dfsg1-3)</h1></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := integrations.NewClient(time.Second, nil)
	debian := Rules()["debian"]
	debian.URL = srv.URL + "/{release}/rustc"
	tbl, err := newTable(t, c).With(map[string]source.Definition{"debian": source.Scrape(debian)})
	if err != nil {
		t.Fatal(err)
	}
	e := resolve.New(tbl, scrape.New(c), log.New(io.Discard))

	got, err := e.Resolve(context.Background(), "debian-testing", "stretch")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.String() != "1.14.0" {
		t.Errorf("Resolve(debian-testing) = %s, want 1.14.0", got)
	}

	got, err = e.Resolve(context.Background(), "debian-unstable", "sid")
	if err != nil || !got.IsUnknown() {
		t.Errorf("Resolve(missing page) = %s, %v, want 0.0.0, nil", got, err)
	}
}
