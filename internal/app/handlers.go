package app

import (
	"github.com/yungbote/datakit-backend/internal/handlers"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type Handlers struct {
	Models      *handlers.ModelsHandler
	Entries     *handlers.EntriesHandler
	Maintenance *handlers.MaintenanceHandler
	Jobs        *handlers.JobsHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Models:      handlers.NewModelsHandler(log, s.Model),
		Entries:     handlers.NewEntriesHandler(log, s.Entry),
		Maintenance: handlers.NewMaintenanceHandler(log, s.Indexer, s.Job),
		Jobs:        handlers.NewJobsHandler(s.Job),
	}
}
