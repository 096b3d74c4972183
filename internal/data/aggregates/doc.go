// Package aggregates implements the domain aggregate contracts over the
// entity store.
//
// The store offers single-record atomicity only. Every boat write here is a
// read-modify-write guarded by the record version, retried on conflict and
// optionally serialized per boat by a BoatLocker.
package aggregates
