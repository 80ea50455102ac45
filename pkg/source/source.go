// Package source defines the table that tells decrepit how to look up a
// package version for each named source.
//
// # Definitions
//
// Each entry of a [Table] is a [Definition] of one of three kinds:
//
//   - [KindScrape]: a structural [Rule] (URL template, XPath template and a
//     regular expression with a "version" group). Adding a source of this
//     kind needs no code.
//   - [KindAlias]: another entry of the table, resolved with the same
//     release argument. "debian-testing" is an alias of "debian".
//   - [KindCustom]: a [Resolver] that owns its whole fetch and parse
//     pipeline, used where a page cannot be described by a single XPath.
//
// # Inheritance
//
// A rule may name another rule in Inherits. Its non-empty fields override
// the parent's, so Ubuntu can reuse Debian's XPath and regex with only a
// different URL. [NewTable] flattens inheritance eagerly: every rule returned
// by [Table.Rule] is fully resolved and has an empty Inherits field.
//
// # Validation
//
// [NewTable] rejects dangling alias or inheritance targets, alias and
// inheritance cycles, rules missing a field after flattening and regular
// expressions without a "version" group. All of these are reported as
// CONFIGURATION_ERROR.
package source

import (
	"context"
	"maps"
	"regexp"
	"slices"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/semver"
)

// Rolling is the release argument of sources that only ever ship one,
// continuously updated, release.
const Rolling = "(rolling)"

// Kind identifies the variant held by a [Definition].
type Kind int

const (
	KindScrape Kind = iota + 1
	KindAlias
	KindCustom
)

// String returns the kind's name as used in log output.
func (k Kind) String() string {
	switch k {
	case KindScrape:
		return "scrape"
	case KindAlias:
		return "alias"
	case KindCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// Resolver is a self-contained lookup for one source. Implementations
// return a normalized version or an error; the dispatch engine decides which
// errors degrade to the unknown version.
type Resolver interface {
	Resolve(ctx context.Context, release string) (semver.Version, error)
}

// ResolverFunc adapts a function to the [Resolver] interface.
type ResolverFunc func(ctx context.Context, release string) (semver.Version, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, release string) (semver.Version, error) {
	return f(ctx, release)
}

// Rule describes how to scrape a version off an HTML page.
//
// URL and XPath are templates with {name} placeholders filled from the
// release argument (see the scrape package). Regex must contain a named
// group "version".
type Rule struct {
	URL      string `toml:"url"`
	XPath    string `toml:"xpath"`
	Regex    string `toml:"regex"`
	Inherits string `toml:"inherits"`
}

// Over returns r laid over parent: every non-empty field of r replaces the
// corresponding field of parent. Inherits is taken from parent, so the
// result continues the chain where parent left off.
func (r Rule) Over(parent Rule) Rule {
	out := parent
	if r.URL != "" {
		out.URL = r.URL
	}
	if r.XPath != "" {
		out.XPath = r.XPath
	}
	if r.Regex != "" {
		out.Regex = r.Regex
	}
	return out
}

// Pattern compiles the rule's regular expression.
func (r Rule) Pattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(r.Regex)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "invalid regex %q", r.Regex)
	}
	if re.SubexpIndex("version") < 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "regex %q has no \"version\" group", r.Regex)
	}
	return re, nil
}

// Definition is one entry of the source table. Exactly one of Rule, Alias
// or Resolver is meaningful, selected by Kind.
type Definition struct {
	Kind     Kind
	Rule     Rule
	Alias    string
	Resolver Resolver
}

// Scrape returns a [KindScrape] definition.
func Scrape(r Rule) Definition { return Definition{Kind: KindScrape, Rule: r} }

// Alias returns a [KindAlias] definition pointing at target.
func Alias(target string) Definition { return Definition{Kind: KindAlias, Alias: target} }

// Custom returns a [KindCustom] definition backed by r.
func Custom(r Resolver) Definition { return Definition{Kind: KindCustom, Resolver: r} }

// Table is a validated, immutable source table. It is safe for concurrent
// use.
type Table struct {
	defs  map[string]Definition
	rules map[string]Rule
}

// NewTable validates defs and flattens rule inheritance.
func NewTable(defs map[string]Definition) (*Table, error) {
	t := &Table{
		defs:  maps.Clone(defs),
		rules: make(map[string]Rule),
	}
	if t.defs == nil {
		t.defs = make(map[string]Definition)
	}
	for _, name := range t.Names() {
		if err := t.check(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// With returns a new table holding t's entries plus extra. Entries in extra
// replace entries of t with the same name. The result is validated as a
// whole, so extra may alias or inherit from entries of t.
func (t *Table) With(extra map[string]Definition) (*Table, error) {
	merged := maps.Clone(t.defs)
	maps.Copy(merged, extra)
	return NewTable(merged)
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.defs) }

// Names returns the entry names in sorted order.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.defs))
}

// Lookup returns the definition registered under name.
func (t *Table) Lookup(name string) (Definition, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// Rule returns the flattened rule of a [KindScrape] entry.
func (t *Table) Rule(name string) (Rule, error) {
	r, ok := t.rules[name]
	if !ok {
		return Rule{}, errors.New(errors.ErrCodeConfiguration, "%q is not a scrape rule", name)
	}
	return r, nil
}

// Target follows alias links from name and returns the first entry that is
// not an alias.
func (t *Table) Target(name string) (string, error) {
	seen := make(map[string]bool)
	for {
		d, ok := t.defs[name]
		if !ok {
			return "", errors.New(errors.ErrCodeConfiguration, "unknown source %q", name)
		}
		if d.Kind != KindAlias {
			return name, nil
		}
		if seen[name] {
			return "", errors.New(errors.ErrCodeConfiguration, "alias cycle through %q", name)
		}
		seen[name] = true
		name = d.Alias
	}
}

func (t *Table) check(name string) error {
	d := t.defs[name]
	if err := errors.ValidateSourceName(name); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "source %q", name)
	}
	switch d.Kind {
	case KindAlias:
		if _, err := t.Target(name); err != nil {
			return err
		}
	case KindCustom:
		if d.Resolver == nil {
			return errors.New(errors.ErrCodeConfiguration, "source %q has no resolver", name)
		}
	case KindScrape:
		r, err := t.flatten(name)
		if err != nil {
			return err
		}
		if err := errors.ValidateURL(r.URL); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "source %q", name)
		}
		if r.XPath == "" {
			return errors.New(errors.ErrCodeConfiguration, "source %q has no xpath", name)
		}
		if _, err := r.Pattern(); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "source %q", name)
		}
		t.rules[name] = r
	default:
		return errors.New(errors.ErrCodeConfiguration, "source %q has invalid kind %d", name, d.Kind)
	}
	return nil
}

// flatten walks the inheritance chain of name and folds it from the root
// down. The walk is capped at the table size.
func (t *Table) flatten(name string) (Rule, error) {
	chain := []Rule{t.defs[name].Rule}
	cur := t.defs[name].Rule
	for cur.Inherits != "" {
		if len(chain) > len(t.defs) {
			return Rule{}, errors.New(errors.ErrCodeConfiguration, "inheritance cycle through %q", name)
		}
		parent, ok := t.defs[cur.Inherits]
		if !ok {
			return Rule{}, errors.New(errors.ErrCodeConfiguration, "source %q inherits unknown source %q", name, cur.Inherits)
		}
		if parent.Kind != KindScrape {
			return Rule{}, errors.New(errors.ErrCodeConfiguration, "source %q inherits %s source %q", name, parent.Kind, cur.Inherits)
		}
		chain = append(chain, parent.Rule)
		cur = parent.Rule
	}

	out := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		out = chain[i].Over(out)
	}
	out.Inherits = ""
	return out, nil
}
