package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

const DefaultPageSize = 5

type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// Query selects records of one kind. Filter keys are dotted JSON paths into
// the record payload ("carrier.id") matched by equality.
type Query struct {
	Kind   string
	Filter map[string]any
	Order  Order
	Cursor string
	Limit  int
}

// Page is one bounded slice of a query. NextCursor is empty when no further
// records exist.
type Page struct {
	Entities   []*types.Entity
	NextCursor string
}

// Repo is the store adapter for schemaless keyed records. Get returns
// (nil, nil) for an absent record.
type Repo interface {
	Get(dbc dbctx.Context, kind string, id int64) (*types.Entity, error)
	Save(dbc dbctx.Context, kind string, data datatypes.JSON) (*types.Entity, error)
	Update(dbc dbctx.Context, e *types.Entity) error
	UpdateByVersion(dbc dbctx.Context, e *types.Entity, expectedVersion int) (bool, error)
	Delete(dbc dbctx.Context, kind string, id int64) error
	DeleteByVersion(dbc dbctx.Context, kind string, id int64, expectedVersion int) (bool, error)
	Query(dbc dbctx.Context, q Query) (*Page, error)
	Count(dbc dbctx.Context, kind string, filter map[string]any) (int64, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "EntityRepo")}
}

func (r *repo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if dbc.Ctx != nil {
		return transaction.WithContext(dbc.Ctx)
	}
	return transaction
}

func (r *repo) Get(dbc dbctx.Context, kind string, id int64) (*types.Entity, error) {
	if id <= 0 {
		return nil, nil
	}
	var rows []*types.Entity
	if err := r.base(dbc).
		Where("kind = ? AND id = ?", kind, id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *repo) Save(dbc dbctx.Context, kind string, data datatypes.JSON) (*types.Entity, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, fmt.Errorf("save: kind is required")
	}
	if len(data) == 0 {
		data = datatypes.JSON("{}")
	}
	e := &types.Entity{Kind: kind, Version: 1, Data: data}
	if err := r.base(dbc).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repo) Update(dbc dbctx.Context, e *types.Entity) error {
	now := time.Now().UTC()
	res := r.base(dbc).
		Model(&types.Entity{}).
		Where("kind = ? AND id = ?", e.Kind, e.ID).
		Updates(map[string]interface{}{
			"data":       e.Data,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	e.Version++
	e.UpdatedAt = now
	return nil
}

// UpdateByVersion writes e only when the stored version still equals
// expectedVersion. It reports whether the write happened.
func (r *repo) UpdateByVersion(dbc dbctx.Context, e *types.Entity, expectedVersion int) (bool, error) {
	now := time.Now().UTC()
	res := r.base(dbc).
		Model(&types.Entity{}).
		Where("kind = ? AND id = ? AND version = ?", e.Kind, e.ID, expectedVersion).
		Updates(map[string]interface{}{
			"data":       e.Data,
			"version":    expectedVersion + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	e.Version = expectedVersion + 1
	e.UpdatedAt = now
	return true, nil
}

func (r *repo) Delete(dbc dbctx.Context, kind string, id int64) error {
	return r.base(dbc).
		Where("kind = ? AND id = ?", kind, id).
		Delete(&types.Entity{}).Error
}

func (r *repo) DeleteByVersion(dbc dbctx.Context, kind string, id int64, expectedVersion int) (bool, error) {
	res := r.base(dbc).
		Where("kind = ? AND id = ? AND version = ?", kind, id, expectedVersion).
		Delete(&types.Entity{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Query(dbc dbctx.Context, q Query) (*Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	desc := q.Order == OrderDescending
	fkey := filterKey(q.Filter)

	stmt := r.filtered(dbc, q.Kind, q.Filter)
	if q.Cursor != "" {
		c, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		if c.Desc != desc || c.FilterHash != hashFilter(fkey) {
			return nil, fmt.Errorf("%w: query changed since cursor was issued", ErrInvalidCursor)
		}
		if desc {
			stmt = stmt.Where("id < ?", c.After)
		} else {
			stmt = stmt.Where("id > ?", c.After)
		}
	}
	if desc {
		stmt = stmt.Order("id DESC")
	} else {
		stmt = stmt.Order("id ASC")
	}

	var rows []*types.Entity
	if err := stmt.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &Page{Entities: rows}
	if len(rows) > limit {
		page.Entities = rows[:limit]
		next, err := encodeCursor(cursor{
			After:      rows[limit-1].ID,
			Desc:       desc,
			FilterHash: hashFilter(fkey),
		})
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}
	return page, nil
}

// Count scans every matching record. It runs apart from Query, so a listing's
// total can disagree with its pages when writes land in between.
func (r *repo) Count(dbc dbctx.Context, kind string, filter map[string]any) (int64, error) {
	var n int64
	if err := r.filtered(dbc, kind, filter).
		Model(&types.Entity{}).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repo) filtered(dbc dbctx.Context, kind string, filter map[string]any) *gorm.DB {
	stmt := r.base(dbc).Where("kind = ?", kind)
	for _, field := range sortedKeys(filter) {
		stmt = stmt.Where(datatypes.JSONQuery("data").Equals(filter[field], strings.Split(field, ".")...))
	}
	return stmt
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func filterKey(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(&b, "%s=%v;", k, m[k])
	}
	return b.String()
}
