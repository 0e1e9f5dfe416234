package model

// RedefinedName records an IDL identifier defined by more than one spec.
type RedefinedName struct {
	// Name is the redefined top-level IDL identifier.
	Name string `json:"name"`

	// Specs lists the shortnames of all specs defining the name, the
	// canonical owner first.
	Specs []string `json:"specs"`
}

// MissingRef records an identifier a spec uses without citing any spec that
// defines it.
type MissingRef struct {
	// Name is the IDL identifier in question.
	Name string `json:"name"`

	// Specs lists the shortnames of specs that define the identifier and
	// could have been cited.
	Specs []string `json:"specs"`
}

// InconsistentRef records a body hyperlink and a bibliography entry that
// denote the same spec through different URL forms (e.g. a link to the
// editor's draft while the bibliography cites the dated published version).
type InconsistentRef struct {
	// Link is the URL used in the document body.
	Link string `json:"link"`

	// Ref is the URL used in the bibliography entry for the same spec.
	Ref string `json:"ref"`
}

// AnomalyReport is the per-spec outcome of one analysis run. Reports are
// created fresh by each run and never mutated afterward, so two runs can be
// diffed safely.
//
// Every check is evaluated unconditionally so the report is always complete;
// OK is a pure aggregation of the individual checks rather than a separately
// computed flag, which keeps new checks from needing a second update site.
type AnomalyReport struct {
	// Error carries the crawl error when the underlying spec could not be
	// extracted. An errored spec contributes no definitions and is excluded
	// from OK scoring, but still appears in study output.
	Error string `json:"error,omitempty"`

	// NoNormativeRefs is true when the spec declares zero normative
	// references. True for almost no real spec, so usually a signal of
	// extraction failure or a genuinely standalone foundational document.
	NoNormativeRefs bool `json:"no_normative_refs,omitempty"`

	// NoRefToWebIDL is true when the spec defines WebIDL content but its
	// normative references contain no entry resolving to the WebIDL spec.
	NoRefToWebIDL bool `json:"no_ref_to_webidl,omitempty"`

	// UnknownIdlNames lists used IDL identifiers that resolve to no spec in
	// the known corpus.
	UnknownIdlNames []string `json:"unknown_idl_names,omitempty"`

	// UnknownExposedNames lists exposure globals that resolve to no spec in
	// the known corpus.
	UnknownExposedNames []string `json:"unknown_exposed_names,omitempty"`

	// RedefinedIdlNames lists identifiers this spec defines that are also
	// defined by at least one other spec in the corpus.
	RedefinedIdlNames []RedefinedName `json:"redefined_idl_names,omitempty"`

	// MissingWebIdlRefs lists identifiers the spec uses that are defined
	// elsewhere, where no normative reference resolves to a defining spec.
	MissingWebIdlRefs []MissingRef `json:"missing_webidl_refs,omitempty"`

	// MissingDfns lists identifiers the spec defines in IDL without marking
	// up a corresponding prose definition, so other specs have no anchor to
	// link to.
	MissingDfns []string `json:"missing_dfns,omitempty"`

	// MissingLinkRefs lists body hyperlinks to other specifications that
	// have no corresponding bibliography entry.
	MissingLinkRefs []string `json:"missing_link_refs,omitempty"`

	// InconsistentRefs lists link/bibliography pairs that denote the same
	// spec through different URL forms.
	InconsistentRefs []InconsistentRef `json:"inconsistent_refs,omitempty"`

	// BrokenLinks lists fragment-qualified links whose target anchor does
	// not exist in the target spec's id index.
	BrokenLinks []string `json:"broken_links,omitempty"`

	// NotDfn lists links whose target anchor exists but is neither a
	// definition nor a heading.
	NotDfn []string `json:"not_dfn,omitempty"`

	// NotExported lists links whose target anchor is a definition that is
	// not exported for cross-document linking.
	NotExported []string `json:"not_exported,omitempty"`

	// EvolvingLinks lists links whose target anchor exists only in a more
	// recent snapshot of the target spec: accurate at authoring time, broken
	// by evolution rather than by error.
	EvolvingLinks []string `json:"evolving_links,omitempty"`

	// OutdatedSpecs lists links to specs that have been superseded and
	// should no longer be referenced.
	OutdatedSpecs []string `json:"outdated_specs,omitempty"`

	// UnknownSpecs lists links recognized as specification URLs that match
	// no descriptor in the known corpus.
	UnknownSpecs []string `json:"unknown_specs,omitempty"`

	// DatedURLs lists links using W3C dated-publication URLs instead of the
	// spec's canonical URL.
	DatedURLs []string `json:"dated_urls,omitempty"`

	// OK is true iff none of the individual checks fired and the spec
	// crawled without error.
	OK bool `json:"ok"`
}

// Finalize derives the OK aggregate from the individual checks.
// An errored spec is never OK.
func (r *AnomalyReport) Finalize() {
	r.OK = r.Error == "" &&
		!r.NoNormativeRefs &&
		!r.NoRefToWebIDL &&
		len(r.UnknownIdlNames) == 0 &&
		len(r.UnknownExposedNames) == 0 &&
		len(r.RedefinedIdlNames) == 0 &&
		len(r.MissingWebIdlRefs) == 0 &&
		len(r.MissingDfns) == 0 &&
		len(r.MissingLinkRefs) == 0 &&
		len(r.InconsistentRefs) == 0 &&
		len(r.BrokenLinks) == 0 &&
		len(r.NotDfn) == 0 &&
		len(r.NotExported) == 0 &&
		len(r.EvolvingLinks) == 0 &&
		len(r.OutdatedSpecs) == 0 &&
		len(r.UnknownSpecs) == 0 &&
		len(r.DatedURLs) == 0
}

// AnomalyCount returns the total number of findings in the report.
// Boolean checks count as one finding each.
func (r *AnomalyReport) AnomalyCount() int {
	n := len(r.UnknownIdlNames) + len(r.UnknownExposedNames) +
		len(r.RedefinedIdlNames) + len(r.MissingWebIdlRefs) +
		len(r.MissingDfns) + len(r.MissingLinkRefs) +
		len(r.InconsistentRefs) + len(r.BrokenLinks) +
		len(r.NotDfn) + len(r.NotExported) +
		len(r.EvolvingLinks) + len(r.OutdatedSpecs) +
		len(r.UnknownSpecs) + len(r.DatedURLs)
	if r.NoNormativeRefs {
		n++
	}
	if r.NoRefToWebIDL {
		n++
	}
	return n
}
