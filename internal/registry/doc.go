// Package registry loads the static spec list and constructs the in-memory
// descriptor registry the resolver and scheduler work against.
//
// Descriptors are built once at load time from the YAML spec list plus
// metadata enrichment (series derivation, version-set seeding). The registry
// is never mutated after construction except for the monotonic accumulation
// of newly discovered version URLs on individual descriptors.
package registry
