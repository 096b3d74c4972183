package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/fleet-backend/internal/data/aggregates"
	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	types "github.com/yungbote/fleet-backend/internal/domain"
	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/pkg/patch"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type CreateLoadInput struct {
	Item   *string
	Weight *float64
	Volume *float64
	// CollectionURL is the absolute URL of the loads collection; the new
	// load's self link is CollectionURL + "/" + id.
	CollectionURL string
}

// LoadPatch is the body of PATCH and PUT. Absent fields keep their value,
// explicit nulls clear it.
type LoadPatch struct {
	Item   patch.Field[string]  `json:"item"`
	Weight patch.Field[float64] `json:"weight"`
	Volume patch.Field[float64] `json:"volume"`
}

func (p LoadPatch) apply(l *types.Load) {
	p.Item.Apply(&l.Item)
	p.Weight.Apply(&l.Weight)
	p.Volume.Apply(&l.Volume)
}

type LoadPage struct {
	Total      int64
	Loads      []*types.Load
	NextCursor string
}

type LoadService interface {
	Create(ctx context.Context, in CreateLoadInput) (*types.Load, error)
	// Get returns (nil, nil) when the load does not exist.
	Get(ctx context.Context, id int64) (*types.Load, error)
	List(ctx context.Context, cursor string) (*LoadPage, error)
	ListByCarrier(ctx context.Context, boatID int64, cursor string) (*LoadPage, error)
	Update(ctx context.Context, id int64, p LoadPatch) (*types.Load, error)
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, boatID, loadID int64) error
	Unassign(ctx context.Context, boatID, loadID int64) error
}

type LoadServiceDeps struct {
	Log      *logger.Logger
	Entities entity.Repo
	Mirror   domainagg.MirrorAggregate
	Guard    aggregates.CASGuard
	PageSize int
}

type loadService struct {
	log      *logger.Logger
	entities entity.Repo
	mirror   domainagg.MirrorAggregate
	guard    aggregates.CASGuard
	pageSize int
}

func NewLoadService(deps LoadServiceDeps) LoadService {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = entity.DefaultPageSize
	}
	return &loadService{
		log:      deps.Log.With("service", "LoadService"),
		entities: deps.Entities,
		mirror:   deps.Mirror,
		guard:    deps.Guard,
		pageSize: pageSize,
	}
}

func (s *loadService) Create(ctx context.Context, in CreateLoadInput) (*types.Load, error) {
	l := &types.Load{Item: in.Item, Weight: in.Weight, Volume: in.Volume}
	e, err := saveWithSelf(dbctx.From(ctx), s.entities, s.log, types.KindLoad, in.CollectionURL,
		func(id int64, self string) (datatypes.JSON, error) {
			l.ID, l.Self = id, self
			return l.Encode()
		})
	if err != nil {
		return nil, err
	}
	l.Version = e.Version
	s.log.Debug("load created", "load_id", l.ID)
	return l, nil
}

func (s *loadService) Get(ctx context.Context, id int64) (*types.Load, error) {
	e, err := s.entities.Get(dbctx.From(ctx), types.KindLoad, id)
	if err != nil {
		return nil, fmt.Errorf("get load %d: %w", id, err)
	}
	return types.DecodeLoad(e)
}

func (s *loadService) List(ctx context.Context, cursor string) (*LoadPage, error) {
	return s.list(ctx, nil, cursor)
}

func (s *loadService) ListByCarrier(ctx context.Context, boatID int64, cursor string) (*LoadPage, error) {
	boat, err := s.entities.Get(dbctx.From(ctx), types.KindBoat, boatID)
	if err != nil {
		return nil, fmt.Errorf("get boat %d: %w", boatID, err)
	}
	if boat == nil {
		return nil, ErrBoatNotFound
	}
	return s.list(ctx, map[string]any{"carrier.id": boatID}, cursor)
}

// list runs the total count and the page query concurrently. The count is a
// separate scan and may be stale relative to the page.
func (s *loadService) list(ctx context.Context, filter map[string]any, cursor string) (*LoadPage, error) {
	var (
		total int64
		page  *entity.Page
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.entities.Count(dbctx.From(gctx), types.KindLoad, filter)
		if err != nil {
			return fmt.Errorf("count loads: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		p, err := s.entities.Query(dbctx.From(gctx), entity.Query{
			Kind:   types.KindLoad,
			Filter: filter,
			Cursor: cursor,
			Limit:  s.pageSize,
		})
		if err != nil {
			if errors.Is(err, entity.ErrInvalidCursor) {
				return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
			}
			return fmt.Errorf("query loads: %w", err)
		}
		page = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &LoadPage{Total: total, Loads: make([]*types.Load, 0, len(page.Entities)), NextCursor: page.NextCursor}
	for _, e := range page.Entities {
		l, err := types.DecodeLoad(e)
		if err != nil {
			return nil, err
		}
		out.Loads = append(out.Loads, l)
	}
	return out, nil
}

// Update merges p into the stored load under a version check, then pushes the
// result into the carrier's mirror. The mirror sync runs on every update,
// whether or not a field changed.
func (s *loadService) Update(ctx context.Context, id int64, p LoadPatch) (*types.Load, error) {
	var updated *types.Load
	e, err := s.guard.Mutate(dbctx.From(ctx), "cargo.load.update", types.KindLoad, id, func(e *types.Entity) (bool, error) {
		l, err := types.DecodeLoad(e)
		if err != nil {
			return false, err
		}
		p.apply(l)
		data, err := l.Encode()
		if err != nil {
			return false, err
		}
		e.Data = data
		updated = l
		return true, nil
	})
	if err != nil {
		return nil, aggregates.MapError("cargo.load.update", err)
	}
	if e == nil {
		return nil, ErrLoadNotFound
	}
	updated.Version = e.Version

	if err := s.mirror.SyncMirrorOnUpdate(ctx, updated); err != nil {
		s.log.Error("mirror sync failed", "load_id", id, "error", err)
		return nil, err
	}
	return updated, nil
}

// Delete strips the load's mirror from its carrier before removing the load.
// If the load is reassigned in between, the delete retries against the new
// carrier. Once the load is gone the carrier is stripped again, dropping an
// entry that a concurrent sync put back after the first pass.
func (s *loadService) Delete(ctx context.Context, id int64) error {
	var carrierID int64
	ok, err := s.guard.Delete(dbctx.From(ctx), "cargo.load.delete", types.KindLoad, id, func(e *types.Entity) error {
		l, err := types.DecodeLoad(e)
		if err != nil {
			return err
		}
		carrierID = 0
		if l.Carrier == nil {
			return nil
		}
		carrierID = l.Carrier.ID
		return s.mirror.RemoveMirrorOnDelete(ctx, l.Carrier.ID, l.ID)
	})
	if err != nil {
		s.log.Error("load delete failed", "load_id", id, "error", err)
		return aggregates.MapError("cargo.load.delete", err)
	}
	if !ok {
		return ErrLoadNotFound
	}
	if carrierID != 0 {
		if err := s.mirror.RemoveMirrorOnDelete(ctx, carrierID, id); err != nil {
			s.log.Error("mirror cleanup after delete failed", "load_id", id, "boat_id", carrierID, "error", err)
			return err
		}
	}
	return nil
}

// Assign sets the load's carrier to the boat and adds the boat's mirror entry.
// A load that already has a carrier is refused.
func (s *loadService) Assign(ctx context.Context, boatID, loadID int64) error {
	dbc := dbctx.From(ctx)
	be, err := s.entities.Get(dbc, types.KindBoat, boatID)
	if err != nil {
		return fmt.Errorf("get boat %d: %w", boatID, err)
	}
	if be == nil {
		return ErrBoatNotFound
	}
	boat, err := types.DecodeBoat(be)
	if err != nil {
		return err
	}

	var assigned *types.Load
	e, err := s.guard.Mutate(dbc, "cargo.load.assign", types.KindLoad, loadID, func(e *types.Entity) (bool, error) {
		l, err := types.DecodeLoad(e)
		if err != nil {
			return false, err
		}
		if l.Carrier != nil {
			return false, ErrLoadAlreadyAssigned
		}
		l.Carrier = boat.CarrierRef()
		data, err := l.Encode()
		if err != nil {
			return false, err
		}
		e.Data = data
		assigned = l
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrLoadAlreadyAssigned) {
			return err
		}
		return aggregates.MapError("cargo.load.assign", err)
	}
	if e == nil {
		return ErrLoadNotFound
	}
	return s.mirror.AttachMirror(ctx, boatID, assigned)
}

// Unassign clears the load's carrier and strips the boat's mirror entry.
// The strip is skipped if the load was assigned back to the boat meanwhile.
func (s *loadService) Unassign(ctx context.Context, boatID, loadID int64) error {
	dbc := dbctx.From(ctx)
	be, err := s.entities.Get(dbc, types.KindBoat, boatID)
	if err != nil {
		return fmt.Errorf("get boat %d: %w", boatID, err)
	}
	if be == nil {
		return ErrBoatNotFound
	}

	e, err := s.guard.Mutate(dbc, "cargo.load.unassign", types.KindLoad, loadID, func(e *types.Entity) (bool, error) {
		l, err := types.DecodeLoad(e)
		if err != nil {
			return false, err
		}
		if l.Carrier == nil || l.Carrier.ID != boatID {
			return false, ErrLoadNotOnBoat
		}
		l.Carrier = nil
		data, err := l.Encode()
		if err != nil {
			return false, err
		}
		e.Data = data
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrLoadNotOnBoat) {
			return err
		}
		return aggregates.MapError("cargo.load.unassign", err)
	}
	if e == nil {
		return ErrLoadNotFound
	}
	return s.mirror.DetachMirror(ctx, boatID, loadID)
}
