package report

import (
	"io"

	"github.com/w3c/speccheck/internal/model"
)

// Writer defines the interface for result output.
// Implementations write crawl and study results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteCrawl outputs a crawl result file to the configured destination.
	// Returns the number of bytes written and any error encountered.
	WriteCrawl(file *model.CrawlFile) (int, error)

	// WriteStudy outputs a study (anomaly report) file.
	WriteStudy(file *model.StudyFile) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write result files, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteCrawl outputs the crawl file to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteCrawl(file *model.CrawlFile) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteCrawl(file)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteStudy outputs the study file to all configured Writers.
func (m *MultiWriter) WriteStudy(file *model.StudyFile) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteStudy(file)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for result writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
