package services

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	types "github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// SelfURL is the canonical URL of record id under collectionURL.
func SelfURL(collectionURL string, id int64) string {
	return strings.TrimRight(collectionURL, "/") + "/" + strconv.FormatInt(id, 10)
}

// saveWithSelf is the two-phase create. The first write mints the id, the
// second re-persists the record with its self link. If the second write
// fails the first is removed so no record without self is left behind.
func saveWithSelf(
	dbc dbctx.Context,
	entities entity.Repo,
	log *logger.Logger,
	kind, collectionURL string,
	encode func(id int64, self string) (datatypes.JSON, error),
) (*types.Entity, error) {
	initial, err := encode(0, "")
	if err != nil {
		return nil, err
	}
	e, err := entities.Save(dbc, kind, initial)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", strings.ToLower(kind), err)
	}

	stamped, err := encode(e.ID, SelfURL(collectionURL, e.ID))
	if err == nil {
		e.Data = stamped
		var ok bool
		ok, err = entities.UpdateByVersion(dbc, e, e.Version)
		if err == nil && !ok {
			err = fmt.Errorf("record changed before self was stamped")
		}
	}
	if err != nil {
		if derr := entities.Delete(dbc, kind, e.ID); derr != nil {
			log.Warn("failed to remove half-created record", "kind", kind, "id", e.ID, "error", derr)
		}
		return nil, fmt.Errorf("stamp %s self: %w", strings.ToLower(kind), err)
	}
	return e, nil
}
