// Package analyzer studies a merged crawl corpus for cross-reference
// anomalies.
//
// Given the full corpus and an identity resolver, the analyzer produces one
// anomaly report per spec. Every check is evaluated unconditionally so each
// report is complete, and a report's OK flag is derived purely from the
// individual checks, never computed separately. Specs are studied in
// parallel; the corpus indexes are built once up front and are read-only
// during the parallel phase.
package analyzer
