package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, runAfter *time.Time) (*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

// Enqueue records a queued job run. A non-nil runAfter delays eligibility for
// claiming until that instant; the worker's claim query enforces it.
func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, payload map[string]any, runAfter *time.Time) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("job type is required: %w", apperr.ErrInvalidArgument)
	}
	raw := datatypes.JSON([]byte("{}"))
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = datatypes.JSON(b)
	}
	job := &types.JobRun{
		ID:       uuid.New(),
		JobType:  jobType,
		Status:   "queued",
		Stage:    "queued",
		RunAfter: runAfter,
		Payload:  raw,
		Result:   datatypes.JSON([]byte("{}")),
	}
	created, err := s.repo.Create(dbc, []*types.JobRun{job})
	if err != nil {
		return nil, err
	}
	s.log.Debug("Job enqueued", "job_id", job.ID, "job_type", jobType, "run_after", runAfter)
	return created[0], nil
}

func (s *jobService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	jobs, err := s.repo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return jobs[0], nil
}
