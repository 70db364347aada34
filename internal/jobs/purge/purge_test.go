package purge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/jobs/runtime"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type fakeStore struct {
	purgeReturns int
	purgeCalls   int
	lastLimit    int
	countReturns int64
	countCalls   int
}

func (f *fakeStore) Purge(_ dbctx.Context, limit int) (int, error) {
	f.purgeCalls++
	f.lastLimit = limit
	return f.purgeReturns, nil
}

func (f *fakeStore) CountPurgeable(dbctx.Context) (int64, error) {
	f.countCalls++
	return f.countReturns, nil
}

type enqueued struct {
	jobType  string
	payload  map[string]any
	runAfter *time.Time
}

type fakeJobService struct {
	enqueued []enqueued
}

func (f *fakeJobService) Enqueue(_ dbctx.Context, jobType string, payload map[string]any, runAfter *time.Time) (*types.JobRun, error) {
	f.enqueued = append(f.enqueued, enqueued{jobType: jobType, payload: payload, runAfter: runAfter})
	return &types.JobRun{ID: uuid.New(), JobType: jobType, Status: "queued"}, nil
}

func (f *fakeJobService) GetByID(dbctx.Context, uuid.UUID) (*types.JobRun, error) {
	return nil, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func runJob(t *testing.T, h *Handler, payload map[string]any) *types.JobRun {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: JobType,
		Status:  "running",
		Payload: datatypes.JSON(raw),
	}
	// No repo and no notifier: terminal transitions only mutate the
	// in-memory job, which is exactly what these tests inspect.
	c := runtime.NewContext(context.Background(), nil, job, nil, nil)
	_ = h.Run(c)
	return job
}

func TestPurgeProgressReEnqueuesImmediately(t *testing.T) {
	models := &fakeStore{purgeReturns: 7}
	jobs := &fakeJobService{}
	h := NewHandler(models, &fakeStore{}, jobs, 100, testLogger(t))

	job := runJob(t, h, map[string]any{"target": TargetModels, "stuck_count": 2, "total_purged": 10})

	if job.Status != "succeeded" || job.Stage != "continued" {
		t.Fatalf("status=%s stage=%s, want succeeded/continued", job.Status, job.Stage)
	}
	if models.lastLimit != 100 {
		t.Fatalf("batch size = %d, want 100", models.lastLimit)
	}
	// Progress was made, so the remaining count is never consulted.
	if models.countCalls != 0 {
		t.Fatalf("hot path must not count, got %d calls", models.countCalls)
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs.enqueued))
	}
	next := jobs.enqueued[0]
	if next.jobType != JobType || next.runAfter != nil {
		t.Fatalf("continuation should run immediately: %+v", next)
	}
	if next.payload["stuck_count"] != 0 {
		t.Fatalf("progress must reset stuck_count, got %v", next.payload["stuck_count"])
	}
	if next.payload["total_purged"] != 17 {
		t.Fatalf("total_purged = %v, want 17", next.payload["total_purged"])
	}
}

func TestPurgeDrainedSucceeds(t *testing.T) {
	entries := &fakeStore{purgeReturns: 0, countReturns: 0}
	jobs := &fakeJobService{}
	h := NewHandler(&fakeStore{}, entries, jobs, 100, testLogger(t))

	job := runJob(t, h, map[string]any{"target": TargetEntries, "total_purged": 42})

	if job.Status != "succeeded" || job.Stage != "done" {
		t.Fatalf("status=%s stage=%s, want succeeded/done", job.Status, job.Stage)
	}
	if len(jobs.enqueued) != 0 {
		t.Fatalf("drained purge must not re-enqueue: %+v", jobs.enqueued)
	}
	if entries.countCalls != 1 {
		t.Fatalf("zero-progress path must count once, got %d", entries.countCalls)
	}
}

func TestPurgeNoProgressRetriesWithDelay(t *testing.T) {
	models := &fakeStore{purgeReturns: 0, countReturns: 3}
	jobs := &fakeJobService{}
	h := NewHandler(models, &fakeStore{}, jobs, 100, testLogger(t))

	before := time.Now()
	job := runJob(t, h, map[string]any{"target": TargetModels, "stuck_count": 0})

	if job.Status != "succeeded" || job.Stage != "waiting" {
		t.Fatalf("status=%s stage=%s, want succeeded/waiting", job.Status, job.Stage)
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs.enqueued))
	}
	next := jobs.enqueued[0]
	if next.payload["stuck_count"] != 1 {
		t.Fatalf("stuck_count = %v, want 1", next.payload["stuck_count"])
	}
	if next.runAfter == nil {
		t.Fatalf("retry must be delayed")
	}
	if next.runAfter.Before(before.Add(stuckRetryDelay - time.Second)) {
		t.Fatalf("delay too short: %v", next.runAfter)
	}
}

func TestPurgeThirdStallStillRetries(t *testing.T) {
	models := &fakeStore{purgeReturns: 0, countReturns: 3}
	jobs := &fakeJobService{}
	h := NewHandler(models, &fakeStore{}, jobs, 100, testLogger(t))

	job := runJob(t, h, map[string]any{"target": TargetModels, "stuck_count": 2})

	if job.Status != "succeeded" || job.Stage != "waiting" {
		t.Fatalf("status=%s stage=%s, want succeeded/waiting", job.Status, job.Stage)
	}
	if len(jobs.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs.enqueued))
	}
	if got := jobs.enqueued[0].payload["stuck_count"]; got != 3 {
		t.Fatalf("stuck_count = %v, want 3", got)
	}
}

func TestPurgeAbortsAfterRepeatedNoProgress(t *testing.T) {
	models := &fakeStore{purgeReturns: 0, countReturns: 3}
	jobs := &fakeJobService{}
	h := NewHandler(models, &fakeStore{}, jobs, 100, testLogger(t))

	job := runJob(t, h, map[string]any{"target": TargetModels, "stuck_count": 3})

	if job.Status != "failed" || job.Stage != "aborted" {
		t.Fatalf("status=%s stage=%s, want failed/aborted", job.Status, job.Stage)
	}
	if len(jobs.enqueued) != 0 {
		t.Fatalf("aborted purge must not re-enqueue: %+v", jobs.enqueued)
	}
}

func TestPurgeUnknownTargetFails(t *testing.T) {
	jobs := &fakeJobService{}
	h := NewHandler(&fakeStore{}, &fakeStore{}, jobs, 100, testLogger(t))

	job := runJob(t, h, map[string]any{"target": "everything"})

	if job.Status != "failed" || job.Stage != "validate" {
		t.Fatalf("status=%s stage=%s, want failed/validate", job.Status, job.Stage)
	}
	if len(jobs.enqueued) != 0 {
		t.Fatalf("invalid target must not enqueue: %+v", jobs.enqueued)
	}
}
