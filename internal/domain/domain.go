package domain

import "github.com/yungbote/fleet-backend/internal/domain/cargo"

const (
	KindLoad = cargo.KindLoad
	KindBoat = cargo.KindBoat
)

type (
	Entity      = cargo.Entity
	Load        = cargo.Load
	Boat        = cargo.Boat
	Carrier     = cargo.Carrier
	MirrorEntry = cargo.MirrorEntry
)

var (
	DecodeLoad = cargo.DecodeLoad
	DecodeBoat = cargo.DecodeBoat
)
