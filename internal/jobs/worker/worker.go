package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	"github.com/yungbote/datakit-backend/internal/jobs/runtime"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/platform/envutil"
	"github.com/yungbote/datakit-backend/internal/services"
)

// Worker polls job_run for runnable work and dispatches claimed jobs to
// registered handlers. Multiple workers (or replicas) can poll the same
// table; the SKIP LOCKED claim keeps them from double-running a job.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	slots    int
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		slots:    envutil.GetEnvAsInt("JOB_WORKER_CONCURRENCY", 2, baseLog),
	}
}

// Start launches the polling loops and returns immediately. Loops exit when
// ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	if w.slots < 1 {
		w.slots = 1
	}
	for i := 0; i < w.slots; i++ {
		go w.loop(ctx)
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	const maxAttempts = 5
	retryDelay := 30 * time.Second
	staleRunning := 2 * time.Minute
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(dbctx.New(ctx), maxAttempts, retryDelay, staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
			h, ok := w.registry.Get(job.JobType)
			if !ok {
				w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
				jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
				continue
			}
			// If the handler panics, the job is marked failed instead of
			// sitting locked until the stale reclaim kicks in.
			func() {
				defer func() {
					if r := recover(); r != nil {
						w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
						jc.Fail("panic", fmt.Errorf("panic: %v", r))
					}
				}()
				if err := h.Run(jc); err != nil {
					w.log.Warn("Job handler returned error", "job_id", job.ID, "job_type", job.JobType, "error", err)
				}
			}()
		}
	}
}
