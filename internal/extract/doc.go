// Package extract defines the document-extract collaborator contract and a
// basic built-in implementation.
//
// The scheduler only depends on the Extractor interface: given a spec
// descriptor and a fetcher, produce the structured extract (title, links,
// references, ids, definitions, IDL summary) for that document. The built-in
// extractor covers the common Bikeshed and ReSpec markup conventions;
// richer format-specific extraction is expected to come from an external
// collaborator implementing the same interface.
//
// Malformed input is tolerated and reported as a typed extraction error,
// never thrown past the result.
package extract
