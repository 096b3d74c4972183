package testutil

import (
	"encoding/json"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/fleet-backend/internal/domain"
)

// SeedLoad stores l as a Load record and sets l.ID and l.Version.
func SeedLoad(tb testing.TB, tx *gorm.DB, l *types.Load) *types.Entity {
	tb.Helper()
	data, err := l.Encode()
	if err != nil {
		tb.Fatalf("encode load: %v", err)
	}
	e := &types.Entity{Kind: types.KindLoad, Version: 1, Data: data}
	if err := tx.Create(e).Error; err != nil {
		tb.Fatalf("seed load: %v", err)
	}
	l.ID, l.Version = e.ID, e.Version
	return e
}

// SeedBoat stores b as a Boat record and sets b.ID and b.Version.
func SeedBoat(tb testing.TB, tx *gorm.DB, b *types.Boat) *types.Entity {
	tb.Helper()
	data, err := b.Encode()
	if err != nil {
		tb.Fatalf("encode boat: %v", err)
	}
	e := &types.Entity{Kind: types.KindBoat, Version: 1, Data: data}
	if err := tx.Create(e).Error; err != nil {
		tb.Fatalf("seed boat: %v", err)
	}
	b.ID, b.Version = e.ID, e.Version
	return e
}

// LoadBoat reads the stored boat back, failing tb when it is absent.
func LoadBoat(tb testing.TB, tx *gorm.DB, id int64) *types.Boat {
	tb.Helper()
	var e types.Entity
	if err := tx.Where("kind = ? AND id = ?", types.KindBoat, id).First(&e).Error; err != nil {
		tb.Fatalf("load boat %d: %v", id, err)
	}
	b, err := types.DecodeBoat(&e)
	if err != nil {
		tb.Fatalf("decode boat: %v", err)
	}
	return b
}

// JSON renders v for failure messages.
func JSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
