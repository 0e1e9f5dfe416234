package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/w3c/speccheck/internal/model"
)

// MarkdownWriter outputs study results in Markdown format.
// This format is designed for documentation and for filing issues against
// specs with anomalies.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCrawl outputs a short Markdown summary of a crawl run.
func (w *MarkdownWriter) WriteCrawl(file *model.CrawlFile) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Date", file.Date.Format("2006-01-02 15:04:05 MST")},
			{"Specs crawled", strconv.Itoa(file.Stats.Crawled)},
			{"Errors", strconv.Itoa(file.Stats.Errors)},
			{"Concurrency", strconv.Itoa(file.Options.Concurrency)},
			{"Timeout", strconv.Itoa(file.Options.TimeoutSeconds) + "s"},
		},
	})
	md.PlainText("")

	if file.Stats.Errors > 0 {
		var failed []string
		for _, r := range file.Results {
			if r.Errored() {
				failed = append(failed, "`"+r.URL()+"`: "+r.Error)
			}
		}
		md.H2("Failed specs")
		md.PlainText("")
		md.BulletList(failed...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteStudy outputs the study results in Markdown format.
func (w *MarkdownWriter) WriteStudy(file *model.StudyFile) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, file)
	w.writeSummary(md, file)
	w.writeAnomalies(md, file)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, file *model.StudyFile) {
	md.H1("Specification Study Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Study Date", file.Date.Format("2006-01-02 15:04:05 MST")},
			{"Specs Crawled", strconv.Itoa(file.Stats.Crawled)},
			{"Specs Studied", strconv.Itoa(file.Stats.Studied)},
			{"Crawl Errors", strconv.Itoa(file.Stats.Errors)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the anomaly summary with a distribution chart.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, file *model.StudyFile) {
	ok, anomalous := 0, 0
	for _, e := range file.Results {
		switch {
		case e.Report.Error != "":
		case e.Report.OK:
			ok++
		default:
			anomalous++
		}
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"✅ Clean", strconv.Itoa(ok)},
			{"⚠️ With anomalies", strconv.Itoa(anomalous)},
			{"❌ Crawl errors", strconv.Itoa(file.Stats.Errors)},
		},
	})
	md.PlainText("")

	if anomalous > 0 || file.Stats.Errors > 0 {
		w.writePieChart(md, ok, anomalous, file.Stats.Errors)
	}

	switch {
	case file.Stats.Errors > 0:
		md.Warningf("%d spec(s) could not be crawled; their reports carry only the crawl error.", file.Stats.Errors)
	case anomalous > 0:
		md.Importantf("%d spec(s) have cross-reference anomalies.", anomalous)
	default:
		md.Tip("No cross-reference anomalies detected.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the study outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, ok, anomalous, errored int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Study Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if ok > 0 {
		chart.LabelAndIntValue("Clean", uint64(ok))
	}
	if anomalous > 0 {
		chart.LabelAndIntValue("With anomalies", uint64(anomalous))
	}
	if errored > 0 {
		chart.LabelAndIntValue("Crawl errors", uint64(errored))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAnomalies writes one section per spec that has findings.
func (w *MarkdownWriter) writeAnomalies(md *markdown.Markdown, file *model.StudyFile) {
	md.H2("Findings")
	md.PlainText("")

	any := false
	for _, entry := range file.Results {
		if entry.Report.OK || entry.Report.Error != "" {
			continue
		}
		any = true
		w.writeSpecSection(md, entry)
	}
	if !any {
		md.PlainText("No findings.")
		md.PlainText("")
	}
}

// writeSpecSection writes the findings of one spec.
func (w *MarkdownWriter) writeSpecSection(md *markdown.Markdown, entry model.StudyEntry) {
	title := entry.Title
	if title == "" {
		title = entry.Shortname
	}
	md.H3f("%s (`%s`)", title, entry.Shortname)
	md.PlainText("")
	md.PlainTextf("<%s>", entry.URL)
	md.PlainText("")

	r := entry.Report
	if r.NoNormativeRefs {
		md.BulletList("declares no normative references")
	}
	if r.NoRefToWebIDL {
		md.BulletList("defines WebIDL content but does not cite the WebIDL spec")
	}
	w.writeNameList(md, "Unknown IDL names", r.UnknownIdlNames)
	w.writeNameList(md, "Unknown exposure globals", r.UnknownExposedNames)
	for _, re := range r.RedefinedIdlNames {
		md.BulletList("`" + re.Name + "` is also defined by " + joinCoded(re.Specs))
	}
	for _, mr := range r.MissingWebIdlRefs {
		md.BulletList("uses `" + mr.Name + "` without citing " + joinCoded(mr.Specs))
	}
	w.writeNameList(md, "IDL constructs without prose definitions", r.MissingDfns)
	w.writeLinkList(md, "Spec links without bibliography entries", r.MissingLinkRefs)
	for _, ir := range r.InconsistentRefs {
		md.BulletList("body links to <" + ir.Link + "> while the bibliography cites <" + ir.Ref + ">")
	}
	w.writeLinkList(md, "Broken links", r.BrokenLinks)
	w.writeLinkList(md, "Links to non-definition anchors", r.NotDfn)
	w.writeLinkList(md, "Links to unexported definitions", r.NotExported)
	w.writeLinkList(md, "Links valid only in a later level", r.EvolvingLinks)
	w.writeLinkList(md, "Links to outdated specs", r.OutdatedSpecs)
	w.writeLinkList(md, "Links to unknown specs", r.UnknownSpecs)
	w.writeLinkList(md, "Links using dated snapshot URLs", r.DatedURLs)
	md.PlainText("")
}

// writeNameList writes a collapsible list of identifier findings.
func (w *MarkdownWriter) writeNameList(md *markdown.Markdown, title string, names []string) {
	if len(names) == 0 {
		return
	}
	items := make([]string, len(names))
	for i, n := range names {
		items[i] = "`" + n + "`"
	}
	md.PlainTextf("**%s (%d)**", title, len(names))
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

// writeLinkList writes a list of URL findings.
func (w *MarkdownWriter) writeLinkList(md *markdown.Markdown, title string, urls []string) {
	if len(urls) == 0 {
		return
	}
	items := make([]string, len(urls))
	for i, u := range urls {
		items[i] = "<" + u + ">"
	}
	md.PlainTextf("**%s (%d)**", title, len(urls))
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [speccheck](https://github.com/w3c/speccheck)*")
}

// joinCoded joins shortnames as inline code, comma separated.
func joinCoded(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += "`" + n + "`"
	}
	return out
}
