package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Sweeper job names
const (
	JobCloseExpired = "close-expired"
	JobForceResolve = "force-resolve"
	JobReconcile    = "reconcile"
)

// SweepRecorder receives the outcome of each sweeper run
type SweepRecorder interface {
	RecordSweepRun(job string, duration time.Duration, err error)
}

// SweeperConfig sets how often each job runs and how many bets it takes per run
type SweeperConfig struct {
	CloseInterval     time.Duration
	ResolveInterval   time.Duration
	ReconcileInterval time.Duration
	BatchSize         int
}

// Sweeper periodically closes expired bets, force resolves overdue ones and
// retries unfinished settlements
type Sweeper struct {
	scheduler  gocron.Scheduler
	uowFactory UnitOfWorkFactory
	commands   *BetCommands
	cfg        SweeperConfig
	recorder   SweepRecorder
	now        func() time.Time
}

// SweepResult counts the bets a sweep touched
type SweepResult struct {
	Found     int
	Succeeded int
	Failed    int
}

// NewSweeper creates a sweeper; call Start to schedule the jobs
func NewSweeper(uowFactory UnitOfWorkFactory, commands *BetCommands, cfg SweeperConfig, recorder SweepRecorder) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Sweeper{
		scheduler:  scheduler,
		uowFactory: uowFactory,
		commands:   commands,
		cfg:        cfg,
		recorder:   recorder,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start registers the jobs and starts the scheduler
func (s *Sweeper) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) (*SweepResult, error)
	}{
		{JobCloseExpired, s.cfg.CloseInterval, s.CloseExpiredBets},
		{JobForceResolve, s.cfg.ResolveInterval, s.ForceResolveOverdueBets},
		{JobReconcile, s.cfg.ReconcileInterval, s.ReconcileUnsettled},
	}

	for _, job := range jobs {
		if job.interval <= 0 {
			log.WithField("job", job.name).Info("Sweeper job disabled")
			continue
		}
		run := job.run
		name := job.name
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() { s.runJob(ctx, name, run) }),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to register job %s: %w", name, err)
		}
	}

	s.scheduler.Start()
	log.Info("Bet sweeper started")
	return nil
}

// Stop shuts the scheduler down and waits for running jobs
func (s *Sweeper) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	log.Info("Bet sweeper stopped")
	return nil
}

func (s *Sweeper) runJob(ctx context.Context, name string, run func(context.Context) (*SweepResult, error)) {
	start := time.Now()
	result, err := run(ctx)
	if s.recorder != nil {
		s.recorder.RecordSweepRun(name, time.Since(start), err)
	}
	if err != nil {
		log.WithError(err).WithField("job", name).Error("Sweeper job failed")
		return
	}
	if result.Found == 0 {
		return
	}

	log.WithFields(log.Fields{
		"job":        name,
		"total_bets": result.Found,
		"successful": result.Succeeded,
		"failed":     result.Failed,
	}).Info("Completed sweeper job")
}

// CloseExpiredBets closes every open bet whose betting deadline has passed
func (s *Sweeper) CloseExpiredBets(ctx context.Context) (*SweepResult, error) {
	betIDs, err := s.listBets(ctx, func(uow UnitOfWork) ([]int64, error) {
		return uow.BetRepository().ListOpenPastDeadline(ctx, s.now(), s.cfg.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired bets: %w", err)
	}

	return s.each(betIDs, func(betID int64) error {
		_, err := s.commands.CloseIfExpired(ctx, betID)
		return err
	}), nil
}

// ForceResolveOverdueBets resolves every closed bet whose resolve date has passed
func (s *Sweeper) ForceResolveOverdueBets(ctx context.Context) (*SweepResult, error) {
	betIDs, err := s.listBets(ctx, func(uow UnitOfWork) ([]int64, error) {
		return uow.BetRepository().ListClosedPastResolveDate(ctx, s.now(), s.cfg.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue bets: %w", err)
	}

	return s.each(betIDs, func(betID int64) error {
		_, err := s.commands.ForceResolveIfDeadlinePassed(ctx, betID)
		return err
	}), nil
}

// ReconcileUnsettled retries settlement for finished bets that still have unsettled stakes
func (s *Sweeper) ReconcileUnsettled(ctx context.Context) (*SweepResult, error) {
	betIDs, err := s.listBets(ctx, func(uow UnitOfWork) ([]int64, error) {
		return uow.BetRepository().ListWithUnsettledParticipations(ctx, s.cfg.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled bets: %w", err)
	}

	return s.each(betIDs, func(betID int64) error {
		if err := s.markReconcileAttempted(ctx, betID); err != nil {
			return err
		}
		report, err := s.commands.ReconcileBet(ctx, betID)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d participations still unsettled", report.Failed)
		}
		return nil
	}), nil
}

// listBets runs a read-only query in its own unit of work
func (s *Sweeper) listBets(ctx context.Context, query func(uow UnitOfWork) ([]int64, error)) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return query(uow)
}

// markReconcileAttempted commits the attempt stamp on its own so it survives a failed retry
func (s *Sweeper) markReconcileAttempted(ctx context.Context, betID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.BetRepository().MarkReconcileAttempted(ctx, betID, s.now()); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// each processes bets one at a time so one failure never blocks the rest
func (s *Sweeper) each(betIDs []int64, process func(betID int64) error) *SweepResult {
	result := &SweepResult{Found: len(betIDs)}
	for _, betID := range betIDs {
		if err := process(betID); err != nil {
			log.WithError(err).WithField("bet_id", betID).Warn("Sweeper could not process bet")
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result
}
