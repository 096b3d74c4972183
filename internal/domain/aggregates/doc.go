// Package aggregates defines domain-facing aggregate contracts.
//
// The cargo store has no multi-entity transactions, so these contracts describe
// best-effort repair steps guarded by per-record compare-and-set rather than
// atomic write boundaries.
package aggregates
