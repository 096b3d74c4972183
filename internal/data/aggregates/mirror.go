package aggregates

import (
	"context"
	"errors"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	types "github.com/yungbote/fleet-backend/internal/domain"
	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
)

type MirrorAggregateDeps struct {
	Base     BaseDeps
	Entities entity.Repo
	Policy   domainagg.MissingMirrorPolicy
}

type mirrorAggregate struct {
	deps  MirrorAggregateDeps
	guard CASGuard
}

func NewMirrorAggregate(deps MirrorAggregateDeps) domainagg.MirrorAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "MirrorAggregate")
	if deps.Policy == "" {
		deps.Policy = domainagg.MissingMirrorRepair
	}
	return &mirrorAggregate{
		deps:  deps,
		guard: NewCASGuard(deps.Entities, deps.Base.Attempts, deps.Base.Hooks),
	}
}

func (a *mirrorAggregate) Contract() domainagg.Contract {
	return domainagg.MirrorAggregateContract
}

func (a *mirrorAggregate) SyncMirrorOnUpdate(ctx context.Context, load *types.Load) error {
	const op = "cargo.mirror.sync"
	if load == nil || load.Carrier == nil {
		return nil
	}
	return a.reconcile(ctx, op, load.Carrier.ID, load.ID, a.deps.Policy == domainagg.MissingMirrorRepair)
}

func (a *mirrorAggregate) RemoveMirrorOnDelete(ctx context.Context, boatID, loadID int64) error {
	const op = "cargo.mirror.remove"
	return a.writeBoat(ctx, op, boatID, func(_ dbctx.Context, b *types.Boat) (bool, error) {
		return b.RemoveMirror(loadID) > 0, nil
	})
}

func (a *mirrorAggregate) AttachMirror(ctx context.Context, boatID int64, load *types.Load) error {
	const op = "cargo.mirror.attach"
	if load == nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "load is required", nil)
	}
	return a.reconcile(ctx, op, boatID, load.ID, true)
}

func (a *mirrorAggregate) DetachMirror(ctx context.Context, boatID, loadID int64) error {
	const op = "cargo.mirror.detach"
	return a.reconcile(ctx, op, boatID, loadID, false)
}

// reconcile makes the boat's entry for loadID match the stored load. The load
// is read after the boat on every attempt, so the boat version check also
// rejects a write built from a load that changed since. A load that is gone or
// carried elsewhere loses its entry. insert controls whether a missing entry is
// added for a load the boat does carry.
func (a *mirrorAggregate) reconcile(ctx context.Context, op string, boatID, loadID int64, insert bool) error {
	return a.writeBoat(ctx, op, boatID, func(dbc dbctx.Context, b *types.Boat) (bool, error) {
		le, err := a.deps.Entities.Get(dbc, types.KindLoad, loadID)
		if err != nil {
			return false, err
		}
		l, err := types.DecodeLoad(le)
		if err != nil {
			return false, err
		}
		if l == nil || l.Carrier == nil || l.Carrier.ID != boatID {
			return b.RemoveMirror(loadID) > 0, nil
		}
		if !insert && b.MirrorIndex(loadID) < 0 {
			a.deps.Base.Log.Warn("carrier has no mirror entry; left as is",
				"op", op, "boat_id", b.ID, "load_id", loadID, "policy", string(a.deps.Policy))
			return false, nil
		}
		return b.SyncMirror(l.Mirror(), insert), nil
	})
}

// writeBoat applies mutate to the stored boat under the boat lock and a
// version check. A boat that does not exist is logged and skipped.
func (a *mirrorAggregate) writeBoat(ctx context.Context, op string, boatID int64, mutate func(dbc dbctx.Context, b *types.Boat) (bool, error)) error {
	return executeWrite(ctx, a.deps.Base, op, func(ctx context.Context) error {
		unlock, err := a.deps.Base.Locker.Lock(ctx, boatID)
		switch {
		case err == nil:
			defer unlock()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			a.deps.Base.Log.Warn("boat lock unavailable; relying on version check", "op", op, "boat_id", boatID, "error", err)
		}

		dbc := dbctx.From(ctx)
		e, err := a.guard.Mutate(dbc, op, types.KindBoat, boatID, func(e *types.Entity) (bool, error) {
			b, err := types.DecodeBoat(e)
			if err != nil {
				return false, err
			}
			write, err := mutate(dbc, b)
			if err != nil || !write {
				return false, err
			}
			data, err := b.Encode()
			if err != nil {
				return false, err
			}
			e.Data = data
			return true, nil
		})
		if err != nil {
			return err
		}
		if e == nil {
			a.deps.Base.Log.Warn("carrier boat not found; mirror skipped", "op", op, "boat_id", boatID)
		}
		return nil
	})
}
