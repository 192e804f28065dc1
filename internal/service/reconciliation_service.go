package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
	"github.com/haperez86/EduPay/pkg/jobs"
)

const reconcileJobType = "ledger.reconcile"

type driftFinder interface {
	LedgerDrift(ctx context.Context, branchID *string) ([]models.LedgerDrift, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ReconciliationConfig controls the periodic sweep.
type ReconciliationConfig struct {
	Schedule string
}

// ReconciliationRun summarises the latest completed sweep.
type ReconciliationRun struct {
	ID          string    `json:"id"`
	FinishedAt  time.Time `json:"finished_at"`
	Drifting    int       `json:"drifting"`
	Error       string    `json:"error,omitempty"`
	TriggeredBy string    `json:"triggered_by"`
}

// ReconciliationService compares running balances with payment history on a schedule.
type ReconciliationService struct {
	drifts  driftFinder
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ReconciliationConfig
	now     func() time.Time

	cron *cron.Cron
	mu   sync.RWMutex
	last *ReconciliationRun
}

// NewReconciliationService constructs the service. Attach a queue before starting the schedule.
func NewReconciliationService(drifts driftFinder, metrics *MetricsService, cfg ReconciliationConfig, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 * * * *"
	}
	return &ReconciliationService{
		drifts:  drifts,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "reconciler")),
		cfg:     cfg,
		now:     time.Now,
	}
}

// AttachQueue sets the queue sweeps are dispatched through.
func (s *ReconciliationService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Start registers the cron schedule. Ticks enqueue a sweep instead of running it inline.
func (s *ReconciliationService) Start() error {
	if s.queue == nil {
		return fmt.Errorf("reconciliation queue not attached")
	}
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if err := s.enqueue("schedule"); err != nil {
			s.logger.Warn("scheduled reconciliation not enqueued", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("parse reconcile schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reconciliation scheduled", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running tick to return.
func (s *ReconciliationService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// TriggerNow enqueues an immediate sweep on behalf of an operator.
func (s *ReconciliationService) TriggerNow(actor models.Actor) (string, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return "", err
	}
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "reconciliation is disabled")
	}
	id := uuid.NewString()
	if err := s.queue.Enqueue(jobs.Job{ID: id, Type: reconcileJobType, Payload: actor.UserID}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "reconciliation already queued")
	}
	return id, nil
}

// LastRun returns the most recent completed sweep, if any.
func (s *ReconciliationService) LastRun() *ReconciliationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	run := *s.last
	return &run
}

func (s *ReconciliationService) enqueue(triggeredBy string) error {
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: reconcileJobType, Payload: triggeredBy})
}

// HandleJob is the queue handler running one sweep across every branch.
func (s *ReconciliationService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != reconcileJobType {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	drifts, err := s.drifts.LedgerDrift(ctx, nil)
	s.metrics.RecordReconciliation(len(drifts), err)

	triggeredBy, _ := job.Payload.(string)
	run := &ReconciliationRun{ID: job.ID, FinishedAt: s.now().UTC(), Drifting: len(drifts), TriggeredBy: triggeredBy}
	if err != nil {
		run.Error = "sweep failed"
		s.storeRun(run)
		return fmt.Errorf("reconcile ledger: %w", err)
	}
	s.storeRun(run)

	for _, d := range drifts {
		s.logger.Warn("ledger drift detected",
			zap.String("enrollment_id", d.EnrollmentID),
			zap.String("paid_amount", d.PaidAmount.StringFixed(2)),
			zap.String("confirmed_total", d.ConfirmedTotal.StringFixed(2)),
			zap.String("drift", d.Drift.StringFixed(2)),
		)
	}
	s.logger.Info("reconciliation finished", zap.String("job_id", job.ID), zap.Int("drifting", len(drifts)))
	return nil
}

func (s *ReconciliationService) storeRun(run *ReconciliationRun) {
	s.mu.Lock()
	s.last = run
	s.mu.Unlock()
}
