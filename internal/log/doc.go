// Package log provides structured logging helpers for speccheck.
//
// Crawls may be configured with Authorization or Cookie headers to reach
// member-only editor's drafts. Those values travel through fetch options and
// would otherwise leak into debug logs, so all loggers created here wrap the
// underlying slog handler with a redacting handler.
package log
