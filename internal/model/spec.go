package model

import (
	"sort"
	"strings"
)

// SpecSeries groups the sequential levels or editions of the same
// specification over time (e.g. CSS Color Level 3 and Level 4 belong to the
// "css-color" series).
type SpecSeries struct {
	// Shortname is the versionless machine identifier shared by all levels
	// of the series (e.g. "css-color").
	Shortname string `json:"shortname"`

	// CurrentSpecification is the shortname of the level that currently
	// represents the series (typically the latest level with content).
	CurrentSpecification string `json:"current_specification,omitempty"`
}

// SpecDescriptor is one tracked specification document.
//
// A descriptor is constructed once at registry load time from the static spec
// list plus metadata enrichment. Its Versions set accumulates monotonically as
// more URL equivalences are discovered; descriptors are never deleted, only
// merged.
type SpecDescriptor struct {
	// URL is the canonical identifying URL of the specification.
	URL string `json:"url"`

	// Shortname is the short machine identifier, versionless where possible
	// (e.g. "css-color-4", "fetch").
	Shortname string `json:"shortname"`

	// Series identifies the group of sequential levels this spec belongs to.
	Series SpecSeries `json:"series"`

	// SeriesVersion is the level or edition within the series (e.g. "4",
	// "1.2"). Empty for unversioned specs.
	SeriesVersion string `json:"series_version,omitempty"`

	// NightlyURL is the URL of the editor's draft.
	NightlyURL string `json:"nightly_url,omitempty"`

	// ReleaseURL is the URL of the latest published version, when one exists.
	ReleaseURL string `json:"release_url,omitempty"`

	// Title is the human-readable title, when known from the registry.
	Title string `json:"title,omitempty"`

	// Organization is the standards body that publishes the spec
	// (e.g. "W3C", "WHATWG", "Ecma").
	Organization string `json:"organization,omitempty"`

	// MultiPage is true for specs published as a directory of pages rather
	// than a single document. Resolution collapses a ".html" page URL to
	// its directory only when that directory belongs to a multi-page spec.
	MultiPage bool `json:"multi_page,omitempty"`

	// Versions is the set of all URLs historically known to denote this same
	// document: dated snapshots, alternate hosts, editor's drafts. The set
	// only grows; AddVersion keeps it sorted and duplicate-free.
	Versions []string `json:"versions,omitempty"`
}

// AddVersion records a URL as denoting this specification.
// The Versions set accumulates monotonically: adding an already-known URL is
// a no-op, and entries are kept sorted so serialized descriptors are stable.
func (s *SpecDescriptor) AddVersion(url string) {
	if url == "" {
		return
	}
	for _, v := range s.Versions {
		if v == url {
			return
		}
	}
	s.Versions = append(s.Versions, url)
	sort.Strings(s.Versions)
}

// HasVersion reports whether the given URL is one of the known URL variants
// of this specification, including the canonical, release, and nightly URLs.
func (s *SpecDescriptor) HasVersion(url string) bool {
	if url == "" {
		return false
	}
	if url == s.URL || url == s.ReleaseURL || url == s.NightlyURL {
		return true
	}
	for _, v := range s.Versions {
		if v == url {
			return true
		}
	}
	return false
}

// SeriesShortname returns the series shortname, falling back to the spec's
// own shortname when the registry did not record a series.
func (s *SpecDescriptor) SeriesShortname() string {
	if s.Series.Shortname != "" {
		return s.Series.Shortname
	}
	return s.Shortname
}

// CompareSeriesVersion compares two series version strings numerically,
// component by component ("4" < "10", "1.2" < "1.10"). It returns -1, 0, or 1.
// Non-numeric components fall back to string comparison.
func CompareSeriesVersion(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var ac, bc string
		if i < len(as) {
			ac = as[i]
		}
		if i < len(bs) {
			bc = bs[i]
		}
		if ac == bc {
			continue
		}
		an, aok := atoiOK(ac)
		bn, bok := atoiOK(bc)
		if aok && bok {
			if an < bn {
				return -1
			}
			return 1
		}
		if ac < bc {
			return -1
		}
		return 1
	}
	return 0
}

// atoiOK parses a non-negative decimal integer, reporting success.
// An empty string parses as zero so "1" sorts below "1.1".
func atoiOK(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
