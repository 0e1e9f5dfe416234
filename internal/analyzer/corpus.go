package analyzer

import (
	"sort"

	"github.com/w3c/speccheck/internal/model"
)

// corpus holds the read-only indexes shared by all per-spec studies.
type corpus struct {
	results []*model.CrawlResult

	// bySpec maps each descriptor to its crawl result, so anchor checks can
	// look into the target spec's id index.
	bySpec map[*model.SpecDescriptor]*model.CrawlResult

	// definers maps each top-level IDL identifier to the non-errored specs
	// defining it, sorted by shortname for deterministic reports.
	definers map[string][]*model.CrawlResult
}

func buildCorpus(results []*model.CrawlResult) *corpus {
	c := &corpus{
		results:  results,
		bySpec:   make(map[*model.SpecDescriptor]*model.CrawlResult, len(results)),
		definers: make(map[string][]*model.CrawlResult),
	}
	for _, r := range results {
		if r.Spec != nil {
			c.bySpec[r.Spec] = r
		}
		if r.Errored() || r.IDL == nil {
			continue
		}
		for _, name := range r.IDL.Defined {
			c.definers[name] = append(c.definers[name], r)
		}
	}
	for name := range c.definers {
		ds := c.definers[name]
		sort.Slice(ds, func(i, j int) bool {
			return shortnameOf(ds[i]) < shortnameOf(ds[j])
		})
	}
	return c
}

// owner returns the canonical owner among the specs defining an identifier:
// within a series, the highest level that still defines the name wins. When
// several unrelated series define the same name, the first series in
// shortname order is kept, which at least makes repeated runs agree.
func (c *corpus) owner(name string) *model.CrawlResult {
	definers := c.definers[name]
	if len(definers) == 0 {
		return nil
	}
	owner := definers[0]
	for _, d := range definers[1:] {
		if d.Spec == nil || owner.Spec == nil {
			continue
		}
		if d.Spec.SeriesShortname() != owner.Spec.SeriesShortname() {
			continue
		}
		if model.CompareSeriesVersion(owner.Spec.SeriesVersion, d.Spec.SeriesVersion) < 0 {
			owner = d
		}
	}
	return owner
}

// result returns the crawl result for a descriptor, or nil when the
// descriptor was not part of this corpus.
func (c *corpus) result(spec *model.SpecDescriptor) *model.CrawlResult {
	if spec == nil {
		return nil
	}
	return c.bySpec[spec]
}

// laterLevelHasID reports whether a later level in the target's series has
// the given fragment id. A link whose anchor only exists in a newer level
// was accurate at authoring time and evolved away rather than being wrong.
func (c *corpus) laterLevelHasID(target *model.CrawlResult, id string) bool {
	if target.Spec == nil {
		return false
	}
	series := target.Spec.SeriesShortname()
	for _, r := range c.results {
		if r == target || r.Errored() || r.Spec == nil {
			continue
		}
		if r.Spec.SeriesShortname() != series {
			continue
		}
		if model.CompareSeriesVersion(r.Spec.SeriesVersion, target.Spec.SeriesVersion) <= 0 {
			continue
		}
		if r.HasID(id) {
			return true
		}
	}
	return false
}

func shortnameOf(r *model.CrawlResult) string {
	if r.Spec != nil {
		return r.Spec.Shortname
	}
	return r.URL()
}
