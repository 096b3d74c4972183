package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type EntityRepo = entity.Repo

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return entity.NewRepo(db, baseLog)
}
