// Package fetch implements the fetch/cache collaborator: given a URL it
// returns the response content, transparently caching successful responses
// on disk keyed by URL.
//
// The client is only ever driven through the scheduler's fetch proxy, which
// serializes access from concurrent extraction units. Failures surface as
// returned errors, never as silent empty bodies.
package fetch
