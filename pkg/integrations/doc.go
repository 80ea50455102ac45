// Package integrations provides HTTP clients for distribution package sites.
//
// # Overview
//
// Most sources are handled by the generic scraper, which only needs
// [Client.GetHTML]. Sites that need more than one request or a bespoke
// payload format get their own subpackage:
//
//   - [bodhi]: Fedora's update system JSON API
//   - [nixpkgs]: the gzip-compressed nixpkgs package index, cached by ETag
//   - [revision]: two-step svnweb/cvsweb scrapes (FreeBSD and OpenBSD ports)
//
// # Client Pattern
//
// All resolvers follow a consistent pattern:
//
//	c := bodhi.NewClient(integrations.NewClient(timeout, integrations.DefaultHeaders()), logger)
//	v, err := c.Resolve(ctx, "24")
//
// Each resolver implements source.Resolver and reports failures through the
// codes in the errors package. The dispatch engine, not the resolver,
// decides which failures degrade to the unknown version.
//
// # Shared Infrastructure
//
// [Client] applies default headers and a request timeout, emits
// observability HTTP events and classifies responses: 404 becomes
// NOT_FOUND wrapping [ErrNotFound]; transport failures and other non-2xx
// statuses become NETWORK_ERROR wrapping [ErrNetwork]. Requests are never
// retried.
//
// [bodhi]: github.com/matzehuels/decrepit/pkg/integrations/bodhi
// [nixpkgs]: github.com/matzehuels/decrepit/pkg/integrations/nixpkgs
// [revision]: github.com/matzehuels/decrepit/pkg/integrations/revision
package integrations
