// Package database provides SQLite-based storage for crawl and study run
// history.
//
// Result files on disk are the canonical interchange format; the database
// exists to answer questions across runs: how a spec's anomaly count
// evolved over time, when a run happened, and what the latest study looked
// like. Full result files are stored as JSON blobs alongside queryable
// per-run and per-spec summary rows.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
