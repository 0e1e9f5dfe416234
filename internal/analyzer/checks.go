package analyzer

import (
	"sort"
	"strings"

	"github.com/w3c/speccheck/internal/model"
	"github.com/w3c/speccheck/internal/resolver"
)

// studySpec evaluates every check against one spec. Checks are independent
// and all of them run, so the report is complete even when an early check
// already fired.
func (a *Analyzer) studySpec(result *model.CrawlResult, c *corpus) *model.AnomalyReport {
	report := &model.AnomalyReport{}
	if result.Errored() {
		report.Error = result.Error
		report.Finalize()
		return report
	}
	a.checkReferences(result, report)
	a.checkIDL(result, c, report)
	a.checkLinks(result, c, report)
	report.Finalize()
	return report
}

// checkReferences covers the bibliography-level checks.
func (a *Analyzer) checkReferences(result *model.CrawlResult, report *model.AnomalyReport) {
	report.NoNormativeRefs = len(result.References.Normative) == 0

	if result.HasIDLDefinitions() {
		citesWebIDL := false
		for _, ref := range result.References.Normative {
			outcome := a.resolver.Resolve(ref.URL, result.Spec)
			if !outcome.Resolved() {
				continue
			}
			if outcome.Spec.Shortname == a.webIDL || outcome.Spec.SeriesShortname() == a.webIDL {
				citesWebIDL = true
				break
			}
		}
		report.NoRefToWebIDL = !citesWebIDL
	}
}

// checkIDL covers the corpus-wide WebIDL identifier checks.
func (a *Analyzer) checkIDL(result *model.CrawlResult, c *corpus, report *model.AnomalyReport) {
	if result.IDL == nil {
		return
	}

	for _, name := range result.IDL.Defined {
		definers := c.definers[name]
		if len(definers) > 1 {
			// The canonical owner of a multiply-defined name keeps it; every
			// other definer is reporting a redefinition.
			if owner := c.owner(name); owner != result {
				report.RedefinedIdlNames = append(report.RedefinedIdlNames, model.RedefinedName{
					Name:  name,
					Specs: definerShortnames(owner, definers),
				})
			}
		}
		if !hasProseDefinition(result, name) {
			report.MissingDfns = append(report.MissingDfns, name)
		}
	}

	for _, name := range result.IDL.Used {
		if result.DefinesIDLName(name) {
			continue
		}
		definers := othersDefining(c, name, result)
		if len(definers) == 0 {
			report.UnknownIdlNames = append(report.UnknownIdlNames, name)
			continue
		}
		if !a.citesAnyDefiner(result, definers) {
			report.MissingWebIdlRefs = append(report.MissingWebIdlRefs, model.MissingRef{
				Name:  name,
				Specs: shortnames(definers),
			})
		}
	}

	for _, name := range result.IDL.Exposed {
		if result.DefinesIDLName(name) {
			continue
		}
		if len(othersDefining(c, name, result)) == 0 {
			report.UnknownExposedNames = append(report.UnknownExposedNames, name)
		}
	}
}

// checkLinks covers the per-hyperlink checks: spec identity of the target,
// bibliography consistency, and anchor validity.
func (a *Analyzer) checkLinks(result *model.CrawlResult, c *corpus, report *model.AnomalyReport) {
	targets := make([]string, 0, len(result.Links))
	for target := range result.Links {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		outcome := a.resolver.Resolve(target, result.Spec)
		if outcome.SelfReference {
			continue
		}
		if outcome.Dated {
			report.DatedURLs = append(report.DatedURLs, target)
		}
		switch outcome.Anomaly {
		case resolver.AnomalyOutdatedSpec:
			report.OutdatedSpecs = append(report.OutdatedSpecs, target)
			continue
		case resolver.AnomalyDatedURL:
			// Already recorded through the Dated flag above.
			continue
		case resolver.AnomalyUnknownSpec:
			if resolver.LooksLikeSpecURL(target) {
				report.UnknownSpecs = append(report.UnknownSpecs, target)
			}
			continue
		}

		a.checkBibliography(result, target, outcome.Spec, report)
		a.checkAnchors(target, result.Links[target].Anchors, outcome.Spec, c, report)
	}
}

// checkBibliography verifies that a body hyperlink to another spec has a
// bibliography entry, and that both use the same URL form.
func (a *Analyzer) checkBibliography(result *model.CrawlResult, target string, spec *model.SpecDescriptor, report *model.AnomalyReport) {
	refs := make([]model.Reference, 0, len(result.References.Normative)+len(result.References.Informative))
	refs = append(refs, result.References.Normative...)
	refs = append(refs, result.References.Informative...)

	for _, ref := range refs {
		outcome := a.resolver.Resolve(ref.URL, result.Spec)
		if outcome.Spec != spec {
			continue
		}
		if resolver.Normalize(ref.URL) != resolver.Normalize(target) {
			report.InconsistentRefs = append(report.InconsistentRefs, model.InconsistentRef{
				Link: target,
				Ref:  ref.URL,
			})
		}
		return
	}
	report.MissingLinkRefs = append(report.MissingLinkRefs, target)
}

// checkAnchors validates every fragment used against a resolved target spec.
// Anchors can only be checked when the target was itself crawled cleanly.
func (a *Analyzer) checkAnchors(target string, anchors []string, spec *model.SpecDescriptor, c *corpus, report *model.AnomalyReport) {
	targetResult := c.result(spec)
	if targetResult == nil || targetResult.Errored() {
		return
	}

	for _, anchor := range anchors {
		link := target + "#" + anchor
		if !targetResult.HasID(anchor) {
			if c.laterLevelHasID(targetResult, anchor) {
				report.EvolvingLinks = append(report.EvolvingLinks, link)
			} else {
				report.BrokenLinks = append(report.BrokenLinks, link)
			}
			continue
		}
		if dfn := targetResult.FindDfn(anchor); dfn != nil {
			if dfn.Access != model.AccessPublic {
				report.NotExported = append(report.NotExported, link)
			}
			continue
		}
		if !targetResult.HasHeading(anchor) {
			report.NotDfn = append(report.NotDfn, link)
		}
	}
}

// citesAnyDefiner reports whether one of the spec's normative references
// resolves to any of the given defining specs.
func (a *Analyzer) citesAnyDefiner(result *model.CrawlResult, definers []*model.CrawlResult) bool {
	for _, ref := range result.References.Normative {
		outcome := a.resolver.Resolve(ref.URL, result.Spec)
		if !outcome.Resolved() {
			continue
		}
		for _, d := range definers {
			if outcome.Spec == d.Spec {
				return true
			}
		}
	}
	return false
}

// hasProseDefinition reports whether the spec marks up a prose definition
// for an IDL identifier. Definition ids follow the "<type>-<name>" and bare
// "<name>" conventions.
func hasProseDefinition(result *model.CrawlResult, name string) bool {
	lower := strings.ToLower(name)
	for _, dfn := range result.Dfns {
		if dfn.ID == lower || strings.HasSuffix(dfn.ID, "-"+lower) {
			return true
		}
	}
	return false
}

// othersDefining returns the corpus specs defining a name, excluding self.
func othersDefining(c *corpus, name string, self *model.CrawlResult) []*model.CrawlResult {
	definers := c.definers[name]
	others := make([]*model.CrawlResult, 0, len(definers))
	for _, d := range definers {
		if d != self {
			others = append(others, d)
		}
	}
	return others
}

// definerShortnames lists the shortnames of all definers, the canonical
// owner first.
func definerShortnames(owner *model.CrawlResult, definers []*model.CrawlResult) []string {
	names := make([]string, 0, len(definers))
	names = append(names, shortnameOf(owner))
	for _, d := range definers {
		if d != owner {
			names = append(names, shortnameOf(d))
		}
	}
	return names
}

// shortnames lists the shortnames of a definer set in index order.
func shortnames(results []*model.CrawlResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = shortnameOf(r)
	}
	return names
}
