package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/w3c/speccheck/internal/fetch"
	"github.com/w3c/speccheck/internal/model"
)

// stubFetcher serves canned bodies keyed by URL.
type stubFetcher struct {
	bodies map[string]string
	err    error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return &fetch.Response{URL: url, Status: 200, Body: []byte(body)}, nil
}

// testPage is a minimal Bikeshed-style document exercising every extraction
// path: title, ids, dfns with export markup, headings, links with anchors,
// a references appendix, and an IDL block.
const testPage = `<!DOCTYPE html>
<html>
<head><title>Example Colors Level 1</title></head>
<body>
<h2 id="intro">Introduction</h2>
<p><dfn id="color-value" data-dfn-type="value" data-export>color value</dfn></p>
<p><dfn id="internal-note" data-noexport>internal note</dfn></p>
<p>See <a href="https://webidl.spec.whatwg.org/#idl-promise">Promise</a>
and <a href="https://www.w3.org/TR/css-values-4/#lengths">lengths</a>
and <a href="https://www.w3.org/TR/css-values-4/#angles">angles</a>
and <a href="#intro">our intro</a>.</p>
<pre class="idl">
[Exposed=(Window,Worker)]
interface ColorTool {
};
dictionary ColorOptions {
};
</pre>
<h3 id="normative">Normative References</h3>
<dl>
<dt id="biblio-webidl">[WEBIDL]</dt>
<dd><a href="https://webidl.spec.whatwg.org/">Web IDL Standard</a></dd>
</dl>
<h3 id="informative">Informative References</h3>
<dl>
<dt>[CSS-VALUES-4]</dt>
<dd><a href="https://www.w3.org/TR/css-values-4/">CSS Values Level 4</a></dd>
</dl>
</body>
</html>`

// TestBasicExtractorExtract tests the full extraction of a document.
func TestBasicExtractorExtract(t *testing.T) {
	t.Parallel()

	spec := &model.SpecDescriptor{
		URL:       "https://www.w3.org/TR/example-colors-1/",
		Shortname: "example-colors-1",
	}
	fetcher := &stubFetcher{bodies: map[string]string{spec.URL: testPage}}

	result, err := (&BasicExtractor{}).Extract(context.Background(), spec, fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("title", func(t *testing.T) {
		t.Parallel()

		if result.Title != "Example Colors Level 1" {
			t.Errorf("unexpected title %q", result.Title)
		}
	})

	t.Run("ids and headings", func(t *testing.T) {
		t.Parallel()

		if !result.HasID("intro") || !result.HasID("color-value") {
			t.Errorf("missing ids: %v", result.IDs)
		}
		if !result.HasHeading("intro") {
			t.Error("expected intro heading")
		}
	})

	t.Run("dfn export status", func(t *testing.T) {
		t.Parallel()

		exported := result.FindDfn("color-value")
		if exported == nil || exported.Access != model.AccessPublic {
			t.Errorf("expected exported color-value dfn, got %+v", exported)
		}
		private := result.FindDfn("internal-note")
		if private == nil || private.Access != model.AccessPrivate {
			t.Errorf("expected private internal-note dfn, got %+v", private)
		}
	})

	t.Run("links grouped by target with anchors", func(t *testing.T) {
		t.Parallel()

		link, ok := result.Links["https://www.w3.org/TR/css-values-4/"]
		if !ok {
			t.Fatalf("missing css-values-4 link, have %v", result.Links)
		}
		if len(link.Anchors) != 2 || link.Anchors[0] != "angles" || link.Anchors[1] != "lengths" {
			t.Errorf("unexpected anchors %v", link.Anchors)
		}

		// Same-page fragment links are not cross-document references.
		if _, ok := result.Links["https://www.w3.org/TR/example-colors-1/"]; ok {
			t.Error("same-page link should be excluded")
		}
	})

	t.Run("references", func(t *testing.T) {
		t.Parallel()

		if len(result.References.Normative) != 1 {
			t.Fatalf("expected 1 normative ref, got %v", result.References.Normative)
		}
		ref := result.References.Normative[0]
		if ref.Name != "WEBIDL" || ref.URL != "https://webidl.spec.whatwg.org/" {
			t.Errorf("unexpected normative ref %+v", ref)
		}
		if len(result.References.Informative) != 1 {
			t.Fatalf("expected 1 informative ref, got %v", result.References.Informative)
		}
	})

	t.Run("idl summary", func(t *testing.T) {
		t.Parallel()

		if result.IDL == nil {
			t.Fatal("expected IDL extract")
		}
		if len(result.IDL.Defined) != 2 || result.IDL.Defined[0] != "ColorOptions" || result.IDL.Defined[1] != "ColorTool" {
			t.Errorf("unexpected defined names %v", result.IDL.Defined)
		}
		if len(result.IDL.Exposed) != 2 {
			t.Errorf("unexpected exposed globals %v", result.IDL.Exposed)
		}
	})
}

// TestBasicExtractorErrors tests typed extraction errors.
func TestBasicExtractorErrors(t *testing.T) {
	t.Parallel()

	spec := &model.SpecDescriptor{URL: "https://www.w3.org/TR/example/"}

	t.Run("fetch failure", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{err: errors.New("connection refused")}
		_, err := (&BasicExtractor{}).Extract(context.Background(), spec, fetcher)

		var extErr *ExtractionError
		if !errors.As(err, &extErr) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
		if extErr.Stage != "fetch" {
			t.Errorf("expected fetch stage, got %q", extErr.Stage)
		}
	})
}

// TestCrawlURL tests crawl URL selection.
func TestCrawlURL(t *testing.T) {
	t.Parallel()

	spec := &model.SpecDescriptor{
		URL:        "https://www.w3.org/TR/example/",
		ReleaseURL: "https://www.w3.org/TR/2024/REC-example-20240101/",
		NightlyURL: "https://w3c.github.io/example/",
	}

	tests := []struct {
		name       string
		useNightly bool
		want       string
	}{
		{"release by default", false, "https://www.w3.org/TR/2024/REC-example-20240101/"},
		{"nightly when requested", true, "https://w3c.github.io/example/"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &BasicExtractor{UseNightly: tt.useNightly}
			if got := e.CrawlURL(spec); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("falls back to canonical URL", func(t *testing.T) {
		t.Parallel()

		bare := &model.SpecDescriptor{URL: "https://example.spec.whatwg.org/"}
		if got := (&BasicExtractor{}).CrawlURL(bare); got != bare.URL {
			t.Errorf("expected canonical URL, got %q", got)
		}
	})
}
