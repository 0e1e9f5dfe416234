package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/w3c/speccheck/internal/fetch"
	"github.com/w3c/speccheck/internal/model"
)

// Fetcher is the slice of the fetch collaborator the extractor needs.
// During a crawl this is the scheduler's fetch proxy, never a direct
// network client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Extractor is the document-extract collaborator contract: given a spec
// descriptor and a way to load its document, return a structured extract.
type Extractor interface {
	Extract(ctx context.Context, spec *model.SpecDescriptor, fetcher Fetcher) (*model.CrawlResult, error)
}

// ExtractionError is the typed error attached to a result when a document
// could not be processed. It distinguishes the failing stage so operators
// can tell a fetch failure from a parse failure.
type ExtractionError struct {
	// Stage is "fetch" or "parse".
	Stage string

	// URL is the document URL being processed.
	URL string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed at %s stage for %s: %v", e.Stage, e.URL, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// BasicExtractor extracts structured facts from Bikeshed/ReSpec-style HTML.
type BasicExtractor struct {
	// UseNightly prefers the editor's draft over the published version.
	UseNightly bool
}

// idlNameRe pulls top-level construct names out of IDL blocks.
var idlNameRe = regexp.MustCompile(`(?m)^\s*(?:partial\s+)?(?:callback\s+)?(?:interface(?:\s+mixin)?|dictionary|enum|typedef|namespace)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// exposedRe pulls globals out of [Exposed=...] extended attributes.
var exposedRe = regexp.MustCompile(`\[\s*Exposed\s*=\s*\(?([A-Za-z0-9_,\s]+)\)?`)

// Extract fetches the document for spec and extracts its structured facts.
// Fetch and parse failures are returned as *ExtractionError; the scheduler
// converts them into errored results without aborting the batch.
func (e *BasicExtractor) Extract(ctx context.Context, spec *model.SpecDescriptor, fetcher Fetcher) (*model.CrawlResult, error) {
	crawlURL := e.CrawlURL(spec)
	result := model.NewCrawlResult(spec)
	result.CrawledURL = crawlURL

	resp, err := fetcher.Fetch(ctx, crawlURL)
	if err != nil {
		return nil, &ExtractionError{Stage: "fetch", URL: crawlURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &ExtractionError{Stage: "parse", URL: crawlURL, Err: err}
	}

	base, err := url.Parse(crawlURL)
	if err != nil {
		return nil, &ExtractionError{Stage: "parse", URL: crawlURL, Err: err}
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	extractIDs(doc, result)
	extractLinks(doc, base, result)
	extractReferences(doc, base, result)
	extractIDL(doc, result)

	return result, nil
}

// CrawlURL picks the URL to fetch for a descriptor: the editor's draft when
// nightly crawling is requested, otherwise the published version, falling
// back to the canonical URL.
func (e *BasicExtractor) CrawlURL(spec *model.SpecDescriptor) string {
	if e.UseNightly && spec.NightlyURL != "" {
		return spec.NightlyURL
	}
	if spec.ReleaseURL != "" {
		return spec.ReleaseURL
	}
	return spec.URL
}

// extractIDs collects every fragment identifier, plus definitions and
// headings with their export status.
func extractIDs(doc *goquery.Document, result *model.CrawlResult) {
	seen := make(map[string]bool)

	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		result.IDs = append(result.IDs, id)

		node := s.Get(0)
		switch node.Data {
		case "dfn":
			result.Dfns = append(result.Dfns, model.Dfn{
				ID:     id,
				Type:   attrOr(node, "data-dfn-type", "dfn"),
				Access: dfnAccess(node),
			})
		case "h1", "h2", "h3", "h4", "h5", "h6":
			result.Headings = append(result.Headings, model.Heading{
				ID:    id,
				Title: strings.TrimSpace(s.Text()),
			})
		}
	})
}

// dfnAccess maps Bikeshed/ReSpec export markup to the access constants.
// A dfn is exported when it carries data-export or an export class;
// data-noexport wins over both.
func dfnAccess(node *html.Node) string {
	if hasAttr(node, "data-noexport") {
		return model.AccessPrivate
	}
	if hasAttr(node, "data-export") || hasClass(node, "export") {
		return model.AccessPublic
	}
	// ReSpec exports IDL-typed definitions by default.
	if t := attrOr(node, "data-dfn-type", ""); t != "" && t != "dfn" {
		return model.AccessPublic
	}
	return model.AccessPrivate
}

// extractLinks collects same-page-external hyperlinks grouped by
// fragment-less target URL, accumulating the anchors used against each.
func extractLinks(doc *goquery.Document, base *url.URL, result *model.CrawlResult) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, err := base.Parse(href)
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
			return
		}

		fragment := target.Fragment
		target.Fragment = ""

		// Same-page links are internal navigation, not cross-document
		// references.
		if sameDocument(base, target) {
			return
		}

		key := target.String()
		link := result.Links[key]
		if fragment != "" && !containsString(link.Anchors, fragment) {
			link.Anchors = append(link.Anchors, fragment)
			sort.Strings(link.Anchors)
		}
		result.Links[key] = link
	})
}

// sameDocument reports whether target denotes the same page as base.
func sameDocument(base, target *url.URL) bool {
	return base.Host == target.Host && base.Path == target.Path
}

// extractReferences parses the bibliography sections. Bikeshed and ReSpec
// both emit a references appendix with "normative" and "informative"
// sub-sections containing a <dl> of [LABEL] terms and linked titles.
func extractReferences(doc *goquery.Document, base *url.URL, result *model.CrawlResult) {
	result.References.Normative = referencesUnder(doc, base, "#normative")
	result.References.Informative = referencesUnder(doc, base, "#informative")
}

// referencesUnder extracts bibliography entries from the dl following the
// section with the given id.
func referencesUnder(doc *goquery.Document, base *url.URL, selector string) []model.Reference {
	var refs []model.Reference

	section := doc.Find(selector).First()
	if section.Length() == 0 {
		return nil
	}

	// The dl is either inside the section element or its next sibling,
	// depending on whether the id sits on the section or its heading.
	dl := section.Find("dl").First()
	if dl.Length() == 0 {
		dl = section.NextAllFiltered("dl").First()
	}

	dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		name := strings.Trim(strings.TrimSpace(dt.Text()), "[]")
		dd := dt.NextAllFiltered("dd").First()
		href, ok := dd.Find("a[href]").First().Attr("href")
		if !ok || name == "" {
			return
		}
		target, err := base.Parse(href)
		if err != nil {
			return
		}
		refs = append(refs, model.Reference{Name: name, URL: target.String()})
	})

	return refs
}

// extractIDL summarizes the document's IDL blocks: top-level defined names
// and exposure globals. Full WebIDL parsing belongs to an external
// collaborator; this covers the declaration-name surface the analyzer needs.
func extractIDL(doc *goquery.Document, result *model.CrawlResult) {
	var blocks []string
	doc.Find("pre.idl, pre.def.idl, script[type='text/x-idl']").Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s.Text())
	})
	if len(blocks) == 0 {
		return
	}

	idl := &model.IDLExtract{}
	definedSeen := make(map[string]bool)
	exposedSeen := make(map[string]bool)

	for _, block := range blocks {
		for _, m := range idlNameRe.FindAllStringSubmatch(block, -1) {
			if !definedSeen[m[1]] {
				definedSeen[m[1]] = true
				idl.Defined = append(idl.Defined, m[1])
			}
		}
		for _, m := range exposedRe.FindAllStringSubmatch(block, -1) {
			for _, global := range strings.Split(m[1], ",") {
				global = strings.TrimSpace(global)
				if global != "" && !exposedSeen[global] {
					exposedSeen[global] = true
					idl.Exposed = append(idl.Exposed, global)
				}
			}
		}
	}

	sort.Strings(idl.Defined)
	sort.Strings(idl.Exposed)
	result.IDL = idl
}

// attrOr returns the named attribute or a fallback.
func attrOr(node *html.Node, name, fallback string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return fallback
}

// hasAttr reports whether the node carries the named attribute.
func hasAttr(node *html.Node, name string) bool {
	for _, a := range node.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// hasClass reports whether the node's class list contains the given class.
func hasClass(node *html.Node, class string) bool {
	for _, a := range node.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
