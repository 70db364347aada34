package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/indexer"
	"github.com/yungbote/datakit-backend/internal/jobs/purge"
	"github.com/yungbote/datakit-backend/internal/jobs/runtime"
	"github.com/yungbote/datakit-backend/internal/jobs/worker"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/services"
)

type Services struct {
	Indexer   indexer.Service
	Model     services.ModelService
	Entry     services.EntryService
	Job       services.JobService
	Notifier  services.JobNotifier
	JobWorker *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	catalog := indexer.NewCatalog(r.Model, r.ModelVersion, log)
	indexService := indexer.NewService(db, catalog, log)

	modelService := services.NewModelService(db, log, r.Model, r.ModelVersion, r.Entry, r.EntryVersion, indexService)
	entryService := services.NewEntryService(db, log, r.Model, r.Entry, r.EntryVersion, indexService)
	jobService := services.NewJobService(db, log, r.JobRun)

	notifier, err := services.NewRedisJobNotifier(log)
	if err != nil {
		log.Warn("Redis notifier unavailable, job events disabled", "error", err)
		notifier = services.NewNoopJobNotifier()
	}

	registry := runtime.NewRegistry()
	purgeHandler := purge.NewHandler(modelService, entryService, jobService, cfg.PurgeBatchSize, log)
	if err := registry.Register(purgeHandler); err != nil {
		return Services{}, err
	}

	jobWorker := worker.NewWorker(db, log, r.JobRun, registry, notifier)

	return Services{
		Indexer:   indexService,
		Model:     modelService,
		Entry:     entryService,
		Job:       jobService,
		Notifier:  notifier,
		JobWorker: jobWorker,
	}, nil
}
