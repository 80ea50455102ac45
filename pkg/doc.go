// Package pkg provides the core libraries for decrepit.
//
// # Overview
//
// decrepit answers one question: what is the oldest rustc that the
// supported Linux and BSD distributions package? Library authors use the
// answer as their minimum supported Rust version. The pkg directory is
// organized into four areas:
//
//  1. Domain model ([semver], [source], [profile])
//  2. Resolution ([scrape], [integrations], [resolve], [distros])
//  3. Orchestration ([pipeline], [report])
//  4. Infrastructure ([cache], [config], [errors], [observability], [buildinfo])
//
// # Architecture
//
// The data flow of one check:
//
//	as-of date + --distro selection
//	         ↓
//	    [profile] (release per distribution)
//	         ↓
//	    [pipeline] (bounded worker pool, one lookup per distribution)
//	         ↓
//	    [resolve] (alias / scrape rule / custom resolver dispatch)
//	         ↓
//	    [scrape] or [integrations] (fetch page, XPath, regex → version)
//	         ↓
//	    [report] (minimum, table, Markdown or JSON)
//
// A lookup that fails because a remote site is down or has changed its
// markup never fails the check: [resolve] folds it into the 0.0.0 sentinel,
// which [report] prints but never picks as the minimum.
//
// # Quick Start
//
// Check every built-in distribution as of a date:
//
//	client := integrations.NewClient(0, integrations.DefaultHeaders())
//	table, _ := distros.Table(client, cache.NewNullCache(), nil)
//	engine := resolve.New(table, scrape.New(client), nil)
//
//	p, _ := profile.Select(profile.Defaults(), "2017-04-14")
//	rep, _ := pipeline.NewRunner(engine, nil).Execute(ctx, pipeline.Options{
//	    Requests: pipeline.Requests(p.Releases),
//	})
//	fmt.Println(report.Minimum(rep))
//
// # Main Packages
//
// [semver] - Three-part numeric versions with the 0.0.0 "unknown" sentinel.
//
// [source] - The source table: scrape rules with inheritance, aliases and
// custom resolvers, validated and flattened once at construction.
//
// [integrations] - Shared HTTP client plus the custom resolvers: [bodhi]
// (Fedora updates JSON), [nixpkgs] (ETag-cached package index) and
// [revision] (two-step svnweb/cvsweb lookups for FreeBSD and OpenBSD).
//
// [cache] - Freshness-token cache for large downloads with file, Redis and
// null backends.
//
// [config] - Optional TOML file: runtime settings, extra sources and extra
// profiles.
//
// [semver]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/semver
// [source]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/source
// [profile]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/profile
// [scrape]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/scrape
// [integrations]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/integrations
// [bodhi]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/integrations/bodhi
// [nixpkgs]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/integrations/nixpkgs
// [revision]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/integrations/revision
// [resolve]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/resolve
// [distros]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/distros
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/pipeline
// [report]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/report
// [cache]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/decrepit/pkg/buildinfo
package pkg
