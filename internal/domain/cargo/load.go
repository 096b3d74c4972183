package cargo

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Carrier references the boat a load is assigned to.
type Carrier struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Self string `json:"self"`
}

// Load is the authoritative side of the load/boat association.
type Load struct {
	ID      int64    `json:"id"`
	Item    *string  `json:"item"`
	Weight  *float64 `json:"weight"`
	Volume  *float64 `json:"volume"`
	Carrier *Carrier `json:"carrier"`
	Self    string   `json:"self"`

	Version int `json:"-"`
}

// loadRecord is the persisted shape. The id lives on the entity key, and self
// is null until the second creation write stamps it.
type loadRecord struct {
	Item    *string  `json:"item"`
	Weight  *float64 `json:"weight"`
	Volume  *float64 `json:"volume"`
	Carrier *Carrier `json:"carrier"`
	Self    *string  `json:"self"`
}

func DecodeLoad(e *Entity) (*Load, error) {
	if e == nil {
		return nil, nil
	}
	if e.Kind != KindLoad {
		return nil, fmt.Errorf("decode load: entity %d has kind %q", e.ID, e.Kind)
	}
	var rec loadRecord
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode load %d: %w", e.ID, err)
		}
	}
	l := &Load{
		ID:      e.ID,
		Item:    rec.Item,
		Weight:  rec.Weight,
		Volume:  rec.Volume,
		Carrier: rec.Carrier,
		Version: e.Version,
	}
	if rec.Self != nil {
		l.Self = *rec.Self
	}
	return l, nil
}

func (l *Load) Encode() (datatypes.JSON, error) {
	rec := loadRecord{
		Item:    l.Item,
		Weight:  l.Weight,
		Volume:  l.Volume,
		Carrier: l.Carrier,
	}
	if l.Self != "" {
		self := l.Self
		rec.Self = &self
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode load %d: %w", l.ID, err)
	}
	return datatypes.JSON(raw), nil
}

// Mirror returns the partial copy of the load kept on its carrier.
func (l *Load) Mirror() MirrorEntry {
	return MirrorEntry{
		ID:     l.ID,
		Item:   l.Item,
		Weight: l.Weight,
		Volume: l.Volume,
		Self:   l.Self,
	}
}
