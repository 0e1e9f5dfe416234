package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/w3c/speccheck/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables per-finding URLs in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the individual finding URLs.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCrawl outputs a crawl summary in human-readable format.
func (w *SimpleWriter) WriteCrawl(file *model.CrawlFile) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "CRAWL REPORT")
	sb.WriteString(fmt.Sprintf("Crawl Date:   %s\n", file.Date.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Specs:        %d\n", file.Stats.Crawled))
	sb.WriteString(fmt.Sprintf("Errors:       %d\n", file.Stats.Errors))
	sb.WriteString(fmt.Sprintf("Concurrency:  %d\n", file.Options.Concurrency))
	sb.WriteString(fmt.Sprintf("Timeout:      %ds\n", file.Options.TimeoutSeconds))
	sb.WriteString("\n")

	if file.Stats.Errors > 0 || w.showEmpty {
		w.writeRule(&sb, "FAILED SPECS")
		if file.Stats.Errors == 0 {
			sb.WriteString("  No failures\n")
		}
		for _, r := range file.Results {
			if r.Errored() {
				sb.WriteString(fmt.Sprintf("  [x] %s\n      %s\n", r.URL(), r.Error))
			}
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteStudy outputs the study results in human-readable format.
func (w *SimpleWriter) WriteStudy(file *model.StudyFile) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "SPECIFICATION STUDY REPORT")
	sb.WriteString(fmt.Sprintf("Study Date:     %s\n", file.Date.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Specs Crawled:  %d\n", file.Stats.Crawled))
	sb.WriteString(fmt.Sprintf("Specs Studied:  %d\n", file.Stats.Studied))
	sb.WriteString(fmt.Sprintf("Crawl Errors:   %d\n", file.Stats.Errors))
	sb.WriteString("\n")

	w.writeRule(&sb, "ANOMALIES")
	any := false
	for _, entry := range file.Results {
		if entry.Report.Error != "" || entry.Report.OK {
			continue
		}
		any = true
		w.writeSpec(&sb, entry)
	}
	if !any {
		sb.WriteString("  No anomalies found\n\n")
	}

	if file.Stats.Errors > 0 || w.showEmpty {
		w.writeRule(&sb, "CRAWL ERRORS")
		errored := false
		for _, entry := range file.Results {
			if entry.Report.Error == "" {
				continue
			}
			errored = true
			sb.WriteString(fmt.Sprintf("  [x] %s\n      %s\n", entry.URL, entry.Report.Error))
		}
		if !errored {
			sb.WriteString("  No crawl errors\n")
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeSpec writes the findings of one spec.
func (w *SimpleWriter) writeSpec(sb *strings.Builder, entry model.StudyEntry) {
	sb.WriteString(fmt.Sprintf("  * %s (%d finding(s))\n", entry.Shortname, entry.Report.AnomalyCount()))
	if w.verbose {
		sb.WriteString(fmt.Sprintf("    URL: %s\n", entry.URL))
	}

	r := entry.Report
	if r.NoNormativeRefs {
		sb.WriteString("    - no normative references\n")
	}
	if r.NoRefToWebIDL {
		sb.WriteString("    - IDL content without a WebIDL reference\n")
	}
	w.writeList(sb, "unknown IDL names", r.UnknownIdlNames)
	w.writeList(sb, "unknown exposure globals", r.UnknownExposedNames)
	for _, re := range r.RedefinedIdlNames {
		sb.WriteString(fmt.Sprintf("    - %q also defined by %s\n", re.Name, strings.Join(re.Specs, ", ")))
	}
	for _, mr := range r.MissingWebIdlRefs {
		sb.WriteString(fmt.Sprintf("    - uses %q without citing %s\n", mr.Name, strings.Join(mr.Specs, ", ")))
	}
	w.writeList(sb, "IDL constructs without prose definitions", r.MissingDfns)
	w.writeList(sb, "spec links without bibliography entries", r.MissingLinkRefs)
	for _, ir := range r.InconsistentRefs {
		sb.WriteString(fmt.Sprintf("    - link %s vs citation %s\n", ir.Link, ir.Ref))
	}
	w.writeList(sb, "broken links", r.BrokenLinks)
	w.writeList(sb, "links to non-definition anchors", r.NotDfn)
	w.writeList(sb, "links to unexported definitions", r.NotExported)
	w.writeList(sb, "links valid only in a later level", r.EvolvingLinks)
	w.writeList(sb, "links to outdated specs", r.OutdatedSpecs)
	w.writeList(sb, "links to unknown specs", r.UnknownSpecs)
	w.writeList(sb, "dated snapshot URLs", r.DatedURLs)
}

// writeList writes one finding category, count first, items only in verbose
// mode to keep the default output scannable.
func (w *SimpleWriter) writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("    - %s: %d\n", label, len(items)))
	if w.verbose {
		for _, item := range items {
			sb.WriteString(fmt.Sprintf("        %s\n", item))
		}
	}
}

// writeBanner writes a full-width double-rule banner.
func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := (70 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeRule writes a single-rule section header.
func (w *SimpleWriter) writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by speccheck\n")
	sb.WriteString("https://github.com/w3c/speccheck\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
