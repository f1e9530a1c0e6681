// Package results collects identifiers that resolved during a scan and
// writes them out when the scan ends.
//
// Hits are kept in memory in the order they were recorded. Finalize
// writes them atomically as CSV (identifier,title,url) or as the plain
// text block format, replacing any earlier file. When a scan found
// nothing, an earlier file is removed so stale results do not linger.
package results
