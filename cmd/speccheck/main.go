// Package main provides the entry point for the speccheck CLI.
//
// Speccheck crawls a corpus of web specifications, extracts the structured
// facts that connect them (links, references, definitions, Web IDL), and
// studies the corpus for cross-reference inconsistencies.
//
// Usage:
//
//	speccheck crawl specs.yaml
//	speccheck study crawl.json
//
// See --help for all available options.
package main

// main is the entry point for speccheck.
func main() {
	Execute()
}
