// Package model defines the core data structures used throughout speccheck.
//
// This package contains the following main types:
//   - SpecDescriptor: One tracked specification and its known URL variants
//   - CrawlResult: The extraction outcome for a single specification
//   - AnomalyReport: Cross-reference findings for a single specification
//   - CrawlFile / StudyFile: The on-disk JSON result formats
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (scheduler, merger, analyzer, report) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for result files and
// database storage.
package model
