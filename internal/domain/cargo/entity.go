package cargo

import (
	"time"

	"gorm.io/datatypes"
)

// Entity kinds stored in the entity table.
const (
	KindLoad = "Load"
	KindBoat = "Boat"
)

// Entity is a schemaless keyed record. ID is minted by the store on first save
// and Version is bumped by every write so callers can compare-and-set.
type Entity struct {
	ID      int64  `gorm:"primaryKey;autoIncrement;index:idx_entity_kind_id,priority:2" json:"id"`
	Kind    string `gorm:"type:varchar(32);not null;index:idx_entity_kind_id,priority:1" json:"kind"`
	Version int    `gorm:"not null;default:1" json:"version"`

	Data datatypes.JSON `gorm:"not null" json:"data"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Entity) TableName() string { return "entity" }
