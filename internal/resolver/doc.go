// Package resolver implements spec identity resolution: given a raw
// reference URL found inside some document, determine which spec descriptor
// it denotes and under what shortname.
//
// Resolution is a pure function of the URL, the static alias and obsolescence
// tables, and the in-memory descriptor registry. It performs no network I/O.
// URLs that resolve to the same descriptor form an equivalence class; classes
// partition the URL space and resolution is transitive by construction, since
// equivalence is defined as "resolves to the same descriptor".
package resolver
