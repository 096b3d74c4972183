package aggregates

import (
	"fmt"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	types "github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
)

// CASGuard runs read-modify-write cycles on single records, using the record
// version as the compare-and-set token.
type CASGuard struct {
	entities entity.Repo
	attempts int
	hooks    Hooks
}

func NewCASGuard(entities entity.Repo, attempts int, hooks Hooks) CASGuard {
	if attempts <= 0 {
		attempts = DefaultCASAttempts
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	return CASGuard{entities: entities, attempts: attempts, hooks: hooks}
}

// Mutate reads the record, lets fn edit it in place and writes it back only if
// nobody else wrote in between. fn returning false skips the write. On a
// version miss the cycle restarts from a fresh read. Returns (nil, nil) when
// the record does not exist.
func (g CASGuard) Mutate(dbc dbctx.Context, op, kind string, id int64, fn func(e *types.Entity) (bool, error)) (*types.Entity, error) {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := ctxErr(dbc); err != nil {
			return nil, err
		}
		cur, err := g.entities.Get(dbc, kind, id)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, nil
		}
		expected := cur.Version
		write, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if !write {
			return cur, nil
		}
		ok, err := g.entities.UpdateByVersion(dbc, cur, expected)
		if err != nil {
			return nil, err
		}
		if ok {
			return cur, nil
		}
		if attempt < g.attempts {
			g.hooks.IncRetry(op)
		}
	}
	return nil, ConflictError(fmt.Sprintf("%s %d: version changed on each of %d attempts", kind, id, g.attempts))
}

// Delete removes the record once before has run against the version being
// deleted. If the record changed meanwhile, before runs again on the fresh
// copy. Reports false when the record does not exist.
func (g CASGuard) Delete(dbc dbctx.Context, op, kind string, id int64, before func(e *types.Entity) error) (bool, error) {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := ctxErr(dbc); err != nil {
			return false, err
		}
		cur, err := g.entities.Get(dbc, kind, id)
		if err != nil {
			return false, err
		}
		if cur == nil {
			return false, nil
		}
		if before != nil {
			if err := before(cur); err != nil {
				return false, err
			}
		}
		ok, err := g.entities.DeleteByVersion(dbc, kind, id, cur.Version)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if attempt < g.attempts {
			g.hooks.IncRetry(op)
		}
	}
	return false, ConflictError(fmt.Sprintf("delete %s %d: version changed on each of %d attempts", kind, id, g.attempts))
}

func ctxErr(dbc dbctx.Context) error {
	if dbc.Ctx == nil {
		return nil
	}
	return dbc.Ctx.Err()
}
