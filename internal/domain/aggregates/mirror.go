package aggregates

import (
	"context"

	"github.com/yungbote/fleet-backend/internal/domain/cargo"
)

var MirrorAggregateContract = Contract{
	Name:           "Cargo.MirrorAggregate",
	WriteOwnership: WriteCASPerRecord,
	Notes: "Keeps Boat.loads a faithful projection of the loads that name the boat as carrier. " +
		"The load record is authoritative; boat writes are read-modify-write with a version check.",
}

// MissingMirrorPolicy decides what a sync does when the carrier boat has no
// entry for the load.
type MissingMirrorPolicy string

const (
	// MissingMirrorRepair appends the missing entry.
	MissingMirrorRepair MissingMirrorPolicy = "repair"
	// MissingMirrorIgnore leaves the boat untouched.
	MissingMirrorIgnore MissingMirrorPolicy = "ignore"
)

func ParseMissingMirrorPolicy(s string) (MissingMirrorPolicy, bool) {
	switch MissingMirrorPolicy(s) {
	case MissingMirrorRepair, "":
		return MissingMirrorRepair, true
	case MissingMirrorIgnore:
		return MissingMirrorIgnore, true
	default:
		return "", false
	}
}

// MirrorAggregate reconciles a boat's mirrored loads with load-side mutations.
//
// Failures are returned as *aggregates.Error with codes:
// CodeValidation, CodeConflict, CodeRetryable, CodeInternal.
// A boat that no longer exists is not an error; the call is a no-op.
type MirrorAggregate interface {
	Aggregate

	// SyncMirrorOnUpdate pushes the stored item/weight/volume of load into its
	// carrier's entry. The load is re-read inside each boat write; load only
	// names the record and the carrier to reconcile.
	SyncMirrorOnUpdate(ctx context.Context, load *cargo.Load) error

	// RemoveMirrorOnDelete strips every entry for loadID from boatID
	// unconditionally.
	RemoveMirrorOnDelete(ctx context.Context, boatID, loadID int64) error

	// AttachMirror adds (or refreshes) the entry for load on boatID if the
	// stored load is still carried by boatID.
	AttachMirror(ctx context.Context, boatID int64, load *cargo.Load) error

	// DetachMirror strips the entry for loadID from boatID unless the stored
	// load is carried by boatID again.
	DetachMirror(ctx context.Context, boatID, loadID int64) error
}
