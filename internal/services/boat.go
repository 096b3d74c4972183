package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	types "github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/ctxutil"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type CreateBoatInput struct {
	Name          *string
	Type          *string
	Length        *float64
	CollectionURL string
}

// BoatService is the minimal boat surface the load mirror needs.
type BoatService interface {
	Create(ctx context.Context, in CreateBoatInput) (*types.Boat, error)
	// Get returns (nil, nil) when the boat does not exist.
	Get(ctx context.Context, id int64) (*types.Boat, error)
}

type boatService struct {
	log      *logger.Logger
	entities entity.Repo
}

func NewBoatService(log *logger.Logger, entities entity.Repo) BoatService {
	return &boatService{log: log.With("service", "BoatService"), entities: entities}
}

// Create stores a boat with an empty mirror. The owner is the verified caller
// when the request carries one.
func (s *boatService) Create(ctx context.Context, in CreateBoatInput) (*types.Boat, error) {
	b := &types.Boat{Name: in.Name, Type: in.Type, Length: in.Length, Loads: []types.MirrorEntry{}}
	owner := ""
	if id := ctxutil.GetIdentity(ctx); id != nil && id.Subject != "" {
		owner = id.Subject
		b.Owner = &owner
	}
	e, err := saveWithSelf(dbctx.From(ctx), s.entities, s.log, types.KindBoat, in.CollectionURL,
		func(id int64, self string) (datatypes.JSON, error) {
			b.ID, b.Self = id, self
			return b.Encode()
		})
	if err != nil {
		return nil, err
	}
	b.Version = e.Version
	s.log.Debug("boat created", "boat_id", b.ID, "owner", owner)
	return b, nil
}

func (s *boatService) Get(ctx context.Context, id int64) (*types.Boat, error) {
	e, err := s.entities.Get(dbctx.From(ctx), types.KindBoat, id)
	if err != nil {
		return nil, fmt.Errorf("get boat %d: %w", id, err)
	}
	return types.DecodeBoat(e)
}
