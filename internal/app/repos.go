package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Repos struct {
	Entity repos.EntityRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Entity: repos.NewEntityRepo(db, log),
	}
}
