package model

import (
	"sort"
	"time"
)

// Link records the fragments through which a document links to one target URL.
// The map key in CrawlResult.Links is the fragment-less target URL; Anchors
// lists every fragment used against that target (without the leading "#").
type Link struct {
	// Anchors lists the fragment identifiers used when linking to the
	// target URL. Empty when the document only links to the page itself.
	Anchors []string `json:"anchors,omitempty"`
}

// Reference is one bibliography entry of a specification.
type Reference struct {
	// Name is the reference label as it appears in the bibliography
	// (e.g. "WEBIDL", "CSS-COLOR-4").
	Name string `json:"name"`

	// URL is the URL the bibliography entry points at.
	URL string `json:"url"`
}

// References splits a document's bibliography into normative entries (the
// document asserts a dependency) and informative entries (merely mentioned).
type References struct {
	Normative   []Reference `json:"normative,omitempty"`
	Informative []Reference `json:"informative,omitempty"`
}

// Access values for definitions. Only public definitions are legitimate
// cross-document link targets.
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// Dfn is one definition exported by a document's id index.
type Dfn struct {
	// ID is the fragment identifier of the definition.
	ID string `json:"id"`

	// Type is the definition type ("dfn", "interface", "attribute", ...).
	Type string `json:"type,omitempty"`

	// Access is AccessPublic for exported, linkable definitions and
	// AccessPrivate for internal artifacts.
	Access string `json:"access,omitempty"`
}

// Heading is one section heading of a document. Headings are always
// legitimate link targets.
type Heading struct {
	// ID is the fragment identifier of the heading.
	ID string `json:"id"`

	// Title is the heading text.
	Title string `json:"title,omitempty"`
}

// IDLExtract summarizes the WebIDL content of a document as reported by the
// document-extract collaborator. The raw IDL text is out of scope; only the
// identifier sets needed for cross-reference analysis are kept.
type IDLExtract struct {
	// Defined lists top-level IDL identifiers the document defines.
	Defined []string `json:"defined,omitempty"`

	// Used lists IDL identifiers the document uses without defining them.
	Used []string `json:"used,omitempty"`

	// Exposed lists globals the document exposes interfaces on.
	Exposed []string `json:"exposed,omitempty"`
}

// CSSExtract summarizes the CSS constructs of a document.
type CSSExtract struct {
	// Properties lists CSS property names the document defines.
	Properties []string `json:"properties,omitempty"`

	// Descriptors lists CSS descriptor names the document defines.
	Descriptors []string `json:"descriptors,omitempty"`
}

// CrawlResult is the extraction outcome for one specification.
//
// A result is created by one scheduler run and is immutable once written,
// except for the controlled replacement performed by the result merger.
type CrawlResult struct {
	// Spec is the descriptor this result was crawled for.
	Spec *SpecDescriptor `json:"spec"`

	// CrawledURL is the URL that was actually fetched (nightly or release,
	// depending on crawl options and redirects).
	CrawledURL string `json:"crawled_url,omitempty"`

	// Date is when the extraction completed.
	Date time.Time `json:"date"`

	// Title is the document title reported by the extractor.
	Title string `json:"title,omitempty"`

	// Links maps fragment-less target URLs to the anchors used against them.
	Links map[string]Link `json:"links,omitempty"`

	// References is the document's bibliography.
	References References `json:"references"`

	// IDs lists every fragment identifier present in the document.
	IDs []string `json:"ids,omitempty"`

	// Dfns lists the document's definitions with their export status.
	Dfns []Dfn `json:"dfns,omitempty"`

	// Headings lists the document's section headings.
	Headings []Heading `json:"headings,omitempty"`

	// IDL is the WebIDL summary, nil when the document defines no IDL.
	IDL *IDLExtract `json:"idl,omitempty"`

	// CSS is the CSS summary, nil when the document defines no CSS.
	CSS *CSSExtract `json:"css,omitempty"`

	// Error is the terminal failure marker. When non-empty the extraction
	// failed and all content fields above are unreliable; the result still
	// counts toward the batch so operators see the failure.
	Error string `json:"error,omitempty"`
}

// NewCrawlResult creates an empty result for the given descriptor.
func NewCrawlResult(spec *SpecDescriptor) *CrawlResult {
	return &CrawlResult{
		Spec:  spec,
		Date:  time.Now().UTC(),
		Links: make(map[string]Link),
	}
}

// Errored reports whether the extraction terminally failed.
func (r *CrawlResult) Errored() bool {
	return r.Error != ""
}

// URL returns the canonical URL of the underlying spec, or the crawled URL
// when the result carries no descriptor. Used as the stable sort key for
// result sets.
func (r *CrawlResult) URL() string {
	if r.Spec != nil && r.Spec.URL != "" {
		return r.Spec.URL
	}
	return r.CrawledURL
}

// HasIDLDefinitions reports whether the document defines any top-level
// WebIDL identifier.
func (r *CrawlResult) HasIDLDefinitions() bool {
	return r.IDL != nil && len(r.IDL.Defined) > 0
}

// DefinesIDLName reports whether the document defines the given top-level
// IDL identifier.
func (r *CrawlResult) DefinesIDLName(name string) bool {
	if r.IDL == nil {
		return false
	}
	for _, d := range r.IDL.Defined {
		if d == name {
			return true
		}
	}
	return false
}

// HasID reports whether the given fragment identifier exists in the
// document's id index.
func (r *CrawlResult) HasID(id string) bool {
	for _, known := range r.IDs {
		if known == id {
			return true
		}
	}
	return false
}

// FindDfn returns the definition with the given fragment id, or nil.
func (r *CrawlResult) FindDfn(id string) *Dfn {
	for i := range r.Dfns {
		if r.Dfns[i].ID == id {
			return &r.Dfns[i]
		}
	}
	return nil
}

// HasHeading reports whether the given fragment id is a section heading.
func (r *CrawlResult) HasHeading(id string) bool {
	for _, h := range r.Headings {
		if h.ID == id {
			return true
		}
	}
	return false
}

// SortResults orders a result set by canonical URL so repeated merges of
// otherwise-identical inputs are byte-for-byte reproducible.
func SortResults(results []*CrawlResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].URL() < results[j].URL()
	})
}
