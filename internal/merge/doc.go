// Package merge collapses several knowledge contexts into one bounded
// context for multi-source generation.
//
// Each input is first summarized to a capped list of concepts and facts plus
// a short abstract. Up to three summaries are merged in a single call; larger
// sets are merged pairwise, level by level, until three or fewer remain.
// Contradictions between sources are reported as conflict notes rather than
// resolved. When the completion backend is missing or failing, both steps
// fall back to deterministic truncation and ordered set union, so a merge
// never fails because of a model outage.
package merge
