package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type Repos struct {
	Model        repos.ModelRepo
	ModelVersion repos.ModelVersionRepo
	Entry        repos.EntryRepo
	EntryVersion repos.EntryVersionRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Model:        repos.NewModelRepo(db, log),
		ModelVersion: repos.NewModelVersionRepo(db, log),
		Entry:        repos.NewEntryRepo(db, log),
		EntryVersion: repos.NewEntryVersionRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
