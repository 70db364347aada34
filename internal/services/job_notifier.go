package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

// JobNotifier is the side channel for job lifecycle events. Implementations
// must be safe to call from worker goroutines and must never block a job.
type JobNotifier interface {
	JobProgress(job *types.JobRun, stage string, pct int, msg string)
	JobDone(job *types.JobRun)
	JobFailed(job *types.JobRun, stage string, msg string)
}

type jobEvent struct {
	Event   string    `json:"event"`
	JobID   string    `json:"job_id"`
	JobType string    `json:"job_type"`
	Stage   string    `json:"stage"`
	Pct     int       `json:"pct,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

type redisJobNotifier struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

// NewRedisJobNotifier connects a pub/sub notifier using REDIS_ADDR and
// REDIS_JOB_CHANNEL (default "jobs").
func NewRedisJobNotifier(log *logger.Logger) (JobNotifier, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_JOB_CHANNEL"))
	if ch == "" {
		ch = "jobs"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisJobNotifier{
		log:     log.With("service", "RedisJobNotifier"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (n *redisJobNotifier) publish(ev jobEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("Failed to publish job event", "event", ev.Event, "job_id", ev.JobID, "error", err)
	}
}

func (n *redisJobNotifier) JobProgress(job *types.JobRun, stage string, pct int, msg string) {
	if job == nil {
		return
	}
	n.publish(jobEvent{Event: "progress", JobID: job.ID.String(), JobType: job.JobType, Stage: stage, Pct: pct, Message: msg, At: time.Now()})
}

func (n *redisJobNotifier) JobDone(job *types.JobRun) {
	if job == nil {
		return
	}
	n.publish(jobEvent{Event: "done", JobID: job.ID.String(), JobType: job.JobType, Stage: job.Stage, At: time.Now()})
}

func (n *redisJobNotifier) JobFailed(job *types.JobRun, stage string, msg string) {
	if job == nil {
		return
	}
	n.publish(jobEvent{Event: "failed", JobID: job.ID.String(), JobType: job.JobType, Stage: stage, Message: msg, At: time.Now()})
}

type noopJobNotifier struct{}

// NewNoopJobNotifier is the fallback when no event bus is configured.
func NewNoopJobNotifier() JobNotifier { return noopJobNotifier{} }

func (noopJobNotifier) JobProgress(*types.JobRun, string, int, string) {}
func (noopJobNotifier) JobDone(*types.JobRun)                          {}
func (noopJobNotifier) JobFailed(*types.JobRun, string, string)        {}
