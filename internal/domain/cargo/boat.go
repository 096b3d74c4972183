package cargo

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// MirrorEntry is a boat-side copy of a carried load. It is derived state:
// the load record is the source of truth.
type MirrorEntry struct {
	ID     int64    `json:"id"`
	Item   *string  `json:"item"`
	Weight *float64 `json:"weight"`
	Volume *float64 `json:"volume"`
	Self   string   `json:"self"`
}

type Boat struct {
	ID     int64         `json:"id"`
	Name   *string       `json:"name"`
	Type   *string       `json:"type"`
	Length *float64      `json:"length"`
	Owner  *string       `json:"owner"`
	Loads  []MirrorEntry `json:"loads"`
	Self   string        `json:"self"`

	Version int `json:"-"`
}

type boatRecord struct {
	Name   *string       `json:"name"`
	Type   *string       `json:"type"`
	Length *float64      `json:"length"`
	Owner  *string       `json:"owner"`
	Loads  []MirrorEntry `json:"loads"`
	Self   *string       `json:"self"`
}

func DecodeBoat(e *Entity) (*Boat, error) {
	if e == nil {
		return nil, nil
	}
	if e.Kind != KindBoat {
		return nil, fmt.Errorf("decode boat: entity %d has kind %q", e.ID, e.Kind)
	}
	var rec boatRecord
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode boat %d: %w", e.ID, err)
		}
	}
	b := &Boat{
		ID:      e.ID,
		Name:    rec.Name,
		Type:    rec.Type,
		Length:  rec.Length,
		Owner:   rec.Owner,
		Loads:   rec.Loads,
		Version: e.Version,
	}
	if b.Loads == nil {
		b.Loads = []MirrorEntry{}
	}
	if rec.Self != nil {
		b.Self = *rec.Self
	}
	return b, nil
}

func (b *Boat) Encode() (datatypes.JSON, error) {
	rec := boatRecord{
		Name:   b.Name,
		Type:   b.Type,
		Length: b.Length,
		Owner:  b.Owner,
		Loads:  b.Loads,
	}
	if rec.Loads == nil {
		rec.Loads = []MirrorEntry{}
	}
	if b.Self != "" {
		self := b.Self
		rec.Self = &self
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode boat %d: %w", b.ID, err)
	}
	return datatypes.JSON(raw), nil
}

// CarrierRef is the reference a load stores when assigned to this boat.
func (b *Boat) CarrierRef() *Carrier {
	c := &Carrier{ID: b.ID, Self: b.Self}
	if b.Name != nil {
		c.Name = *b.Name
	}
	return c
}

// MirrorIndex returns the position of the first entry for loadID, or -1.
func (b *Boat) MirrorIndex(loadID int64) int {
	for i := range b.Loads {
		if b.Loads[i].ID == loadID {
			return i
		}
	}
	return -1
}

// SyncMirror overwrites item/weight/volume of the entry matching entry.ID and
// drops any later duplicates. When no entry matches, it appends one only if
// insert is set. Reports whether the sequence changed.
func (b *Boat) SyncMirror(entry MirrorEntry, insert bool) bool {
	idx := b.MirrorIndex(entry.ID)
	if idx < 0 {
		if !insert {
			return false
		}
		b.Loads = append(b.Loads, entry)
		return true
	}
	cur := &b.Loads[idx]
	changed := !sameFields(*cur, entry)
	cur.Item, cur.Weight, cur.Volume = entry.Item, entry.Weight, entry.Volume
	if cur.Self == "" && entry.Self != "" {
		cur.Self = entry.Self
		changed = true
	}
	kept := b.Loads[:idx+1]
	for _, m := range b.Loads[idx+1:] {
		if m.ID == entry.ID {
			changed = true
			continue
		}
		kept = append(kept, m)
	}
	b.Loads = kept
	return changed
}

// RemoveMirror drops every entry for loadID, keeping the order of the rest.
// Returns how many entries were removed.
func (b *Boat) RemoveMirror(loadID int64) int {
	kept := make([]MirrorEntry, 0, len(b.Loads))
	for _, m := range b.Loads {
		if m.ID == loadID {
			continue
		}
		kept = append(kept, m)
	}
	removed := len(b.Loads) - len(kept)
	b.Loads = kept
	return removed
}

func sameFields(a, b MirrorEntry) bool {
	return eqPtr(a.Item, b.Item) && eqPtr(a.Weight, b.Weight) && eqPtr(a.Volume, b.Volume)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
