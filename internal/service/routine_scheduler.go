package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/pkg/jobs"
)

const routineSweepJob = "routine_sweep"

type routineSweeper interface {
	Sweep(ctx context.Context, actorID, teacherID string) (*models.SweepResult, error)
}

// RoutineSchedulerConfig tunes the in-process daily trigger.
type RoutineSchedulerConfig struct {
	Interval time.Duration
	Workers  int
	Location *time.Location
	Logger   *zap.Logger
}

// RoutineScheduler periodically enqueues a routine sweep on a worker queue. The sweep is
// idempotent per day, so every tick is safe; the queue refuses a second sweep for the same day
// while one is still queued or running.
type RoutineScheduler struct {
	sweeper  routineSweeper
	queue    *jobs.Queue
	interval time.Duration
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRoutineScheduler wires a scheduler around the sweeper.
func NewRoutineScheduler(sweeper routineSweeper, cfg RoutineSchedulerConfig) *RoutineScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &RoutineScheduler{
		sweeper:  sweeper,
		interval: cfg.Interval,
		loc:      cfg.Location,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	s.queue = jobs.NewQueue("routine-sweep", s.Handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 3,
		RetryDelay: time.Minute,
		Logger:     cfg.Logger,
	})
	return s
}

// Start launches the queue workers and the ticker. The first sweep is enqueued immediately.
func (s *RoutineScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.Trigger()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Trigger()
			}
		}
	}()
	s.logger.Info("routine scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the ticker and waits for running sweeps to exit.
func (s *RoutineScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.queue.Stop()
	s.logger.Info("routine scheduler stopped")
}

// Trigger enqueues today's sweep unless one is already pending.
func (s *RoutineScheduler) Trigger() {
	day := s.now().In(s.loc).Format("2006-01-02")
	err := s.queue.Enqueue(jobs.Job{ID: routineSweepJob + ":" + day, Type: routineSweepJob})
	switch {
	case err == nil:
		s.logger.Debug("routine sweep enqueued", zap.String("date", day))
	case errors.Is(err, jobs.ErrDuplicate):
		s.logger.Debug("routine sweep already pending", zap.String("date", day))
	default:
		s.logger.Warn("failed to enqueue routine sweep", zap.String("date", day), zap.Error(err))
	}
}

// Handle runs one sweep job. Only a failure to load routines is returned, which makes the queue
// retry; per-routine failures are already isolated and logged by the sweep.
func (s *RoutineScheduler) Handle(ctx context.Context, job jobs.Job) error {
	result, err := s.sweeper.Sweep(ctx, "", "")
	if err != nil {
		return err
	}
	s.logger.Info("scheduled routine sweep done",
		zap.String("job_id", job.ID),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))
	return nil
}
