package resolver

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/registry"
)

// Anomaly categorizes an unresolved outcome. These are typed signals for the
// analyzer to record, not resolver failures: the resolver never guesses
// silently and never raises a hard error for an unrecognized URL.
type Anomaly int

// Anomaly categories.
const (
	// AnomalyNone means the URL resolved to a descriptor (or was a
	// suppressed self-reference).
	AnomalyNone Anomaly = iota

	// AnomalyOutdatedSpec means the URL denotes a superseded spec that
	// should no longer be referenced.
	AnomalyOutdatedSpec

	// AnomalyDatedURL means the URL matches the W3C dated-publication path
	// pattern but no descriptor is known for its shortname.
	AnomalyDatedURL

	// AnomalyUnknownSpec means the URL was not recognized as denoting any
	// known specification.
	AnomalyUnknownSpec
)

// String returns the anomaly category name.
func (a Anomaly) String() string {
	switch a {
	case AnomalyNone:
		return "none"
	case AnomalyOutdatedSpec:
		return "outdatedSpec"
	case AnomalyDatedURL:
		return "datedUrl"
	case AnomalyUnknownSpec:
		return "unknownSpec"
	default:
		return "unknown"
	}
}

// Outcome is the result of resolving one URL.
type Outcome struct {
	// Spec is the resolved descriptor; nil when unresolved.
	Spec *model.SpecDescriptor

	// Shortname is the shortname the URL resolved or derived to, when any.
	Shortname string

	// Anomaly is the category to record when the URL did not resolve.
	Anomaly Anomaly

	// SelfReference is true when the URL denotes a known version of the
	// document it was found in. Self-references are always suppressed,
	// never reported as anomalies: editor's-draft vs published-version
	// drift inside a single document is expected and uninteresting.
	SelfReference bool

	// Dated is true when the URL used the W3C dated-publication form,
	// whether or not it resolved.
	Dated bool
}

// Resolved reports whether the URL resolved to a descriptor.
func (o Outcome) Resolved() bool {
	return o.Spec != nil
}

// datedURLRe matches W3C dated-publication URLs:
// https://www.w3.org/TR/<year>/<STATUS>-<shortname>-<yyyymmdd>/.
var datedURLRe = regexp.MustCompile(`^https://www\.w3\.org/TR/\d{4}/[A-Z]+-([\w-]+?(?:\.\d+)?)-\d{8}/`)

// trURLRe matches canonical W3C /TR/ URLs.
var trURLRe = regexp.MustCompile(`^https://www\.w3\.org/TR/([\w-]+(?:\.\d+)?)/$`)

// Resolver resolves reference URLs to spec descriptors.
type Resolver struct {
	reg    *registry.Registry
	tables *Tables
}

// New creates a resolver over the given registry and static tables.
// If tables is nil, the built-in defaults are used.
func New(reg *registry.Registry, tables *Tables) *Resolver {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Resolver{reg: reg, tables: tables}
}

// Normalize canonicalizes a reference URL for matching:
//   - the fragment is stripped
//   - http is upgraded to https
//   - directory-style URLs get their trailing slash
//
// A trailing ".html" page is kept: collapsing it to its directory is only
// valid for multi-page specs, so it happens in Resolve where the matched
// descriptor can confirm the flag. Dated-snapshot collapsing likewise lives
// in Resolve, since it needs the registry to confirm the underlying
// shortname.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	if u.Scheme == "http" {
		u.Scheme = "https"
	}

	// Directory-style URL: last segment has no extension dot.
	if !strings.HasSuffix(u.Path, "/") {
		last := u.Path[strings.LastIndex(u.Path, "/")+1:]
		if !strings.Contains(last, ".") {
			u.Path += "/"
		}
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// collapseHTMLPage collapses a ".html" page URL to its directory, returning
// "" when the URL has no such page. The caller decides whether the collapsed
// form may match (only multi-page specs publish pages under their directory).
func collapseHTMLPage(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil || !strings.HasSuffix(u.Path, ".html") {
		return ""
	}
	idx := strings.LastIndex(u.Path, "/")
	if idx < 0 {
		return ""
	}
	u.Path = u.Path[:idx+1]
	return u.String()
}

// Resolve determines which descriptor the raw URL denotes.
//
// from is the descriptor of the document the URL was found in; pass nil when
// there is none. Links from a document to any of its own known version URLs
// are suppressed as self-references.
//
// Resolve is a pure function of the URL, the static tables, and the current
// registry state: it never mutates the registry or any descriptor, so the
// analyzer may call it from concurrent goroutines and outcomes never depend
// on call order. Version accumulation happens at crawl time, on the crawl
// path that owns the registry.
//
// The algorithm, in order: normalization, self-reference suppression, exact
// match against known URL variants, multi-page ".html" collapsing,
// dated-snapshot collapsing, host-rule shortname derivation, alias mapping,
// obsolescence check, and finally datedUrl/unknownSpec classification.
func (r *Resolver) Resolve(raw string, from *model.SpecDescriptor) Outcome {
	normalized := Normalize(raw)
	page := collapseHTMLPage(normalized)

	if from != nil && (from.HasVersion(raw) || from.HasVersion(normalized) ||
		(page != "" && from.MultiPage && from.HasVersion(page))) {
		return Outcome{Spec: from, Shortname: from.Shortname, SelfReference: true}
	}

	// Exact match against url, releaseUrl, nightlyUrl, and accumulated
	// version URLs of every known descriptor. The dated flag is kept even
	// here: a dated snapshot URL stays worth reporting when it happens to
	// be a descriptor's recorded release URL.
	if spec := r.reg.ByURL(normalized); spec != nil {
		return outcomeFor(spec, from, datedURLRe.MatchString(normalized))
	}

	// A ".html" page may match the directory of a multi-page spec. The
	// flag gates the match: single-page specs publish no pages under
	// their directory, so the collapsed form would be a false positive.
	if page != "" {
		if spec := r.reg.ByURL(page); spec != nil && spec.MultiPage {
			return outcomeFor(spec, from, datedURLRe.MatchString(page))
		}
	}

	// Dated-snapshot collapsing: /TR/<year>/<STATUS>-<name>-<yyyymmdd>/
	// denotes the spec with shortname <name>.
	if m := datedURLRe.FindStringSubmatch(normalized); m != nil {
		if outcome, ok := r.resolveShortname(m[1], from); ok {
			outcome.Dated = true
			return outcome
		}
		if from != nil && shortnameDenotesSpec(m[1], from) {
			return Outcome{Spec: from, Shortname: from.Shortname, SelfReference: true, Dated: true}
		}
		return Outcome{Shortname: m[1], Anomaly: AnomalyDatedURL, Dated: true}
	}

	// Canonical /TR/<series-shortname>/ form.
	if m := trURLRe.FindStringSubmatch(normalized); m != nil {
		if outcome, ok := r.resolveShortname(m[1], from); ok {
			return outcome
		}
		return Outcome{Shortname: m[1], Anomaly: AnomalyUnknownSpec}
	}

	// Host-specific shortname derivation.
	if u, err := url.Parse(normalized); err == nil {
		if name, ok := deriveShortname(u); ok {
			if outcome, resolved := r.resolveShortname(name, from); resolved {
				return outcome
			}
			return Outcome{Shortname: name, Anomaly: AnomalyUnknownSpec}
		}
	}

	return Outcome{Anomaly: AnomalyUnknownSpec}
}

// resolveShortname resolves a derived shortname through the alias table, the
// obsolescence table, and the registry, in that order. Alias resolution runs
// first, so an aliased-then-obsolete name is classified as outdated under its
// new shortname.
func (r *Resolver) resolveShortname(name string, from *model.SpecDescriptor) (Outcome, bool) {
	if alias, ok := r.tables.Aliases[name]; ok {
		name = alias
	}
	if r.tables.Outdated[name] {
		return Outcome{Shortname: name, Anomaly: AnomalyOutdatedSpec}, true
	}

	spec := r.reg.ByShortname(name)
	if spec == nil {
		// Fall back to the series: "css-color" denotes the current level.
		for _, member := range r.reg.BySeries(name) {
			if spec == nil || model.CompareSeriesVersion(spec.SeriesVersion, member.SeriesVersion) < 0 {
				spec = member
			}
		}
	}
	if spec == nil {
		return Outcome{}, false
	}
	return outcomeFor(spec, from, false), true
}

// outcomeFor builds a resolved outcome, suppressing self-references.
func outcomeFor(spec *model.SpecDescriptor, from *model.SpecDescriptor, dated bool) Outcome {
	if from != nil && spec == from {
		return Outcome{Spec: spec, Shortname: spec.Shortname, SelfReference: true, Dated: dated}
	}
	return Outcome{Spec: spec, Shortname: spec.Shortname, Dated: dated}
}

// shortnameDenotesSpec reports whether a shortname denotes the given spec,
// either directly or through its series.
func shortnameDenotesSpec(name string, spec *model.SpecDescriptor) bool {
	return name == spec.Shortname || name == spec.SeriesShortname()
}

// SameSpec reports whether two URLs belong to the same equivalence class,
// i.e. resolve to the same descriptor. Transitivity holds by construction.
func (r *Resolver) SameSpec(urlA, urlB string) bool {
	a := r.Resolve(urlA, nil)
	b := r.Resolve(urlB, nil)
	return a.Resolved() && b.Resolved() && a.Spec == b.Spec
}

// LooksLikeSpecURL reports whether a URL is recognized by pattern as pointing
// at a specification, whether or not a descriptor is known for it. Used by
// the analyzer to decide which body hyperlinks require bibliography entries.
func LooksLikeSpecURL(raw string) bool {
	normalized := Normalize(raw)
	if datedURLRe.MatchString(normalized) || trURLRe.MatchString(normalized) {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	_, ok := deriveShortname(u)
	return ok
}
