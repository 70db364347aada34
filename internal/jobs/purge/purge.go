package purge

import (
	"fmt"
	"time"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/jobs/runtime"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/services"
)

const (
	// JobType identifies purge runs in the job_run queue.
	JobType = "purge"

	// TargetModels and TargetEntries are the accepted payload targets.
	TargetModels  = "models"
	TargetEntries = "entries"

	defaultBatchSize = 1000

	// maxStuckChecks bounds how many consecutive zero-progress rounds are
	// tolerated before the run is aborted.
	maxStuckChecks = 3

	// stuckRetryDelay spaces out zero-progress retries so a blocked backlog
	// does not spin the worker.
	stuckRetryDelay = 5 * time.Second
)

// Store is the slice of a service the purge handler needs: drain a batch of
// soft-deleted rows and count what is still eligible.
type Store interface {
	Purge(dbc dbctx.Context, limit int) (int, error)
	CountPurgeable(dbc dbctx.Context) (int64, error)
}

// Handler drains soft-deleted models or entries in batches. Each run purges
// at most one batch, then re-enqueues itself so long-running purges never
// hold a worker slot or a claim lock across batches.
type Handler struct {
	stores map[string]Store
	jobs   services.JobService
	batch  int
	log    *logger.Logger
}

func NewHandler(models, entries Store, jobs services.JobService, batchSize int, baseLog *logger.Logger) *Handler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Handler{
		stores: map[string]Store{
			TargetModels:  models,
			TargetEntries: entries,
		},
		jobs:  jobs,
		batch: batchSize,
		log:   baseLog.With("job", JobType),
	}
}

func (h *Handler) Type() string { return JobType }

func (h *Handler) Run(c *runtime.Context) error {
	target := c.PayloadString("target")
	store, ok := h.stores[target]
	if !ok {
		err := fmt.Errorf("unknown purge target %q", target)
		c.Fail("validate", err)
		return err
	}

	stuck := c.PayloadInt("stuck_count")
	total := c.PayloadInt("total_purged")
	dbc := dbctx.Context{Ctx: c.Ctx}

	c.Progress("purging", 0, fmt.Sprintf("purging %s, %d removed so far", target, total))

	purged, err := store.Purge(dbc, h.batch)
	if err != nil {
		c.Fail("purging", err)
		return err
	}
	total += purged

	if purged > 0 {
		// Progress was made; continue immediately and reset the stuck
		// counter. Remaining-count checks are skipped on this path to keep
		// the hot loop to one query per batch.
		next, err := h.enqueueNext(dbc, target, 0, total, nil)
		if err != nil {
			c.Fail("enqueue", err)
			return err
		}
		h.log.Info("purge batch complete", "target", target, "purged", purged, "total", total, "next_run", next.ID)
		c.Succeed("continued", map[string]any{
			"target":       target,
			"purged":       purged,
			"total_purged": total,
			"next_job_id":  next.ID,
		})
		return nil
	}

	remaining, err := store.CountPurgeable(dbc)
	if err != nil {
		c.Fail("counting", err)
		return err
	}
	if remaining == 0 {
		h.log.Info("purge drained", "target", target, "total", total)
		c.Succeed("done", map[string]any{
			"target":       target,
			"total_purged": total,
		})
		return nil
	}

	if stuck >= maxStuckChecks {
		err := fmt.Errorf("purge aborted: %d %s still purgeable after %d rounds without progress", remaining, target, stuck)
		h.log.Warn("purge aborted", "target", target, "remaining", remaining, "total", total)
		c.Fail("aborted", err)
		return err
	}

	// Eligible rows exist but none were removed this round, most likely a
	// concurrent writer racing the batch. Back off briefly and retry.
	runAfter := time.Now().Add(stuckRetryDelay)
	next, err := h.enqueueNext(dbc, target, stuck+1, total, &runAfter)
	if err != nil {
		c.Fail("enqueue", err)
		return err
	}
	h.log.Info("purge made no progress, retrying", "target", target, "remaining", remaining, "stuck_count", stuck+1, "next_run", next.ID)
	c.Succeed("waiting", map[string]any{
		"target":       target,
		"remaining":    remaining,
		"stuck_count":  stuck + 1,
		"total_purged": total,
		"next_job_id":  next.ID,
	})
	return nil
}

func (h *Handler) enqueueNext(dbc dbctx.Context, target string, stuck, total int, runAfter *time.Time) (*types.JobRun, error) {
	return h.jobs.Enqueue(dbc, JobType, map[string]any{
		"target":       target,
		"stuck_count":  stuck,
		"total_purged": total,
	}, runAfter)
}
