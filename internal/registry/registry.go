package registry

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/w3c/speccheck/internal/model"
)

// Registry load errors.
var (
	// ErrEmptySpecList is returned when the spec list file contains no specs.
	ErrEmptySpecList = errors.New("spec list contains no specs")

	// ErrMissingURL is returned when a spec list entry has no URL.
	ErrMissingURL = errors.New("spec list entry missing url")

	// ErrDuplicateShortname is returned when two entries share a shortname.
	ErrDuplicateShortname = errors.New("duplicate shortname in spec list")
)

// specEntry is one entry of the YAML spec list file.
type specEntry struct {
	URL           string `yaml:"url"`
	Shortname     string `yaml:"shortname,omitempty"`
	Series        string `yaml:"series,omitempty"`
	SeriesVersion string `yaml:"series_version,omitempty"`
	Nightly       string `yaml:"nightly,omitempty"`
	Release       string `yaml:"release,omitempty"`
	Title         string `yaml:"title,omitempty"`
	Organization  string `yaml:"organization,omitempty"`
	MultiPage     bool   `yaml:"multi_page,omitempty"`
}

// specList is the YAML spec list file.
type specList struct {
	Specs []specEntry `yaml:"specs"`
}

// Registry holds the descriptor set for one crawl and provides lookup by
// shortname and by any known URL variant.
type Registry struct {
	specs       []*model.SpecDescriptor
	byShortname map[string]*model.SpecDescriptor
	byURL       map[string]*model.SpecDescriptor
}

// trShortnameRe extracts the shortname from a canonical /TR/ URL.
var trShortnameRe = regexp.MustCompile(`^https?://www\.w3\.org/TR/([\w-]+(?:\.\d)?)/?$`)

// levelSuffixRe matches a trailing level suffix on a shortname ("-4", ".2").
// Stripping it yields the series shortname.
var levelSuffixRe = regexp.MustCompile(`^(.*?)[-.](\d+(?:\.\d+)?)$`)

// Load reads the YAML spec list at path and builds the registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided spec list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read spec list: %w", err)
	}
	return Parse(data)
}

// Parse builds the registry from raw YAML spec list content.
func Parse(data []byte) (*Registry, error) {
	var list specList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse spec list: %w", err)
	}
	if len(list.Specs) == 0 {
		return nil, ErrEmptySpecList
	}

	reg := &Registry{
		byShortname: make(map[string]*model.SpecDescriptor),
		byURL:       make(map[string]*model.SpecDescriptor),
	}

	for i, entry := range list.Specs {
		spec, err := buildDescriptor(entry)
		if err != nil {
			return nil, fmt.Errorf("spec list entry %d: %w", i+1, err)
		}
		if _, dup := reg.byShortname[spec.Shortname]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateShortname, spec.Shortname)
		}
		reg.specs = append(reg.specs, spec)
		reg.byShortname[spec.Shortname] = spec
		reg.indexURLs(spec)
	}

	return reg, nil
}

// FromDescriptors builds a registry from an existing descriptor set, for
// example the descriptors recorded in a crawl file. Descriptors are indexed
// as-is; no metadata enrichment happens. Duplicate shortnames are rejected
// just as they are for spec list files.
func FromDescriptors(specs []*model.SpecDescriptor) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrEmptySpecList
	}

	reg := &Registry{
		byShortname: make(map[string]*model.SpecDescriptor),
		byURL:       make(map[string]*model.SpecDescriptor),
	}
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		if _, dup := reg.byShortname[spec.Shortname]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateShortname, spec.Shortname)
		}
		reg.specs = append(reg.specs, spec)
		reg.byShortname[spec.Shortname] = spec
		reg.indexURLs(spec)
	}
	if len(reg.specs) == 0 {
		return nil, ErrEmptySpecList
	}
	return reg, nil
}

// buildDescriptor constructs one descriptor from a spec list entry,
// enriching omitted metadata from the canonical URL.
func buildDescriptor(entry specEntry) (*model.SpecDescriptor, error) {
	if entry.URL == "" {
		return nil, ErrMissingURL
	}

	shortname := entry.Shortname
	if shortname == "" {
		if m := trShortnameRe.FindStringSubmatch(entry.URL); m != nil {
			shortname = m[1]
		}
	}
	if shortname == "" {
		return nil, fmt.Errorf("cannot derive shortname from %q (set shortname explicitly)", entry.URL)
	}

	series := entry.Series
	version := entry.SeriesVersion
	if series == "" {
		if m := levelSuffixRe.FindStringSubmatch(shortname); m != nil {
			series = m[1]
			if version == "" {
				version = m[2]
			}
		} else {
			series = shortname
		}
	}

	spec := &model.SpecDescriptor{
		URL:           entry.URL,
		Shortname:     shortname,
		Series:        model.SpecSeries{Shortname: series},
		SeriesVersion: version,
		NightlyURL:    entry.Nightly,
		ReleaseURL:    entry.Release,
		Title:         entry.Title,
		Organization:  entry.Organization,
		MultiPage:     entry.MultiPage,
	}

	// Seed the version set with every URL the registry already knows.
	spec.AddVersion(entry.URL)
	spec.AddVersion(entry.Nightly)
	spec.AddVersion(entry.Release)

	return spec, nil
}

// indexURLs registers all known URL variants of a descriptor.
// The first descriptor to claim a URL wins; later claims are ignored so the
// URL space stays partitioned.
func (r *Registry) indexURLs(spec *model.SpecDescriptor) {
	for _, u := range spec.Versions {
		if _, taken := r.byURL[u]; !taken {
			r.byURL[u] = spec
		}
	}
}

// Specs returns all descriptors in spec list order.
func (r *Registry) Specs() []*model.SpecDescriptor {
	return r.specs
}

// Len returns the number of descriptors in the registry.
func (r *Registry) Len() int {
	return len(r.specs)
}

// ByShortname returns the descriptor with the given shortname, or nil.
func (r *Registry) ByShortname(shortname string) *model.SpecDescriptor {
	return r.byShortname[shortname]
}

// ByURL returns the descriptor owning the given URL variant, or nil.
func (r *Registry) ByURL(url string) *model.SpecDescriptor {
	return r.byURL[url]
}

// BySeries returns all descriptors belonging to the given series shortname.
func (r *Registry) BySeries(series string) []*model.SpecDescriptor {
	var out []*model.SpecDescriptor
	for _, spec := range r.specs {
		if spec.SeriesShortname() == series {
			out = append(out, spec)
		}
	}
	return out
}

// RecordVersion registers a newly discovered URL variant for a descriptor and
// indexes it for future lookups. A URL already owned by another descriptor is
// left with its current owner.
func (r *Registry) RecordVersion(spec *model.SpecDescriptor, url string) {
	if spec == nil || url == "" {
		return
	}
	spec.AddVersion(url)
	if _, taken := r.byURL[url]; !taken {
		r.byURL[url] = spec
	}
}

// NormalizeShortname lowercases and trims a shortname for case-insensitive
// comparison against reference labels (bibliography names are conventionally
// uppercase, e.g. "WEBIDL" for shortname "webidl").
func NormalizeShortname(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
