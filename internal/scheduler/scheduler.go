package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pizzaledger/internal/archive"
	"github.com/smallbiznis/pizzaledger/internal/clock"
	"github.com/smallbiznis/pizzaledger/internal/config"
	ledgerdomain "github.com/smallbiznis/pizzaledger/internal/ledger/domain"
	"github.com/smallbiznis/pizzaledger/internal/ledgermetrics"
	"github.com/smallbiznis/pizzaledger/internal/transfer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobIntegrityCheck = "integrity_check"
	JobArchiveExport  = "archive_export"
	JobMetricsPush    = "metrics_push"

	maxLoggedViolations = 10
)

var ErrInvalidConfig = errors.New("invalid scheduler config")

type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) (*ledgerdomain.IntegrityReport, error)
}

type Archiver interface {
	Archive(ctx context.Context) (*transfer.ArchiveResult, error)
}

type MetricsPusher interface {
	Enabled() bool
	Push(ctx context.Context) error
}

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock `optional:"true"`
	LedgerSvc ledgerdomain.Service
	Transfer  *transfer.Service       `optional:"true"`
	Metrics   *ledgermetrics.Reporter `optional:"true"`
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	nextRun  time.Time
}

// Scheduler runs the periodic ledger jobs. Each job keeps its own interval; the loop wakes
// every tick and runs whatever is due.
type Scheduler struct {
	cfg     config.SchedulerConfig
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *Metrics

	integrity IntegrityChecker
	archiver  Archiver
	pusher    MetricsPusher

	mu   sync.Mutex
	jobs []*job
}

func New(p Params) (*Scheduler, error) {
	var archiver Archiver
	if p.Transfer != nil {
		archiver = p.Transfer
	}
	var pusher MetricsPusher
	if p.Metrics.Enabled() {
		pusher = p.Metrics
	}
	return newScheduler(p.Cfg.Scheduler, p.Log, p.GenID, p.Clock, p.LedgerSvc, archiver, pusher,
		SchedulerMetrics(p.Cfg.AppName, p.Cfg.Environment))
}

func newScheduler(
	cfg config.SchedulerConfig,
	log *zap.Logger,
	genID *snowflake.Node,
	clk clock.Clock,
	integrity IntegrityChecker,
	archiver Archiver,
	pusher MetricsPusher,
	metrics *Metrics,
) (*Scheduler, error) {
	if log == nil || genID == nil || integrity == nil {
		return nil, ErrInvalidConfig
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}

	s := &Scheduler{
		cfg:       cfg,
		log:       log.Named("scheduler").With(zap.String("component", "scheduler")),
		genID:     genID,
		clock:     clk,
		metrics:   metrics,
		integrity: integrity,
		archiver:  archiver,
		pusher:    pusher,
	}

	now := clk.Now()
	if cfg.IntegrityInterval > 0 {
		s.jobs = append(s.jobs, &job{name: JobIntegrityCheck, interval: cfg.IntegrityInterval, run: s.IntegrityCheckJob, nextRun: now})
	}
	if cfg.ArchiveInterval > 0 && archiver != nil {
		s.jobs = append(s.jobs, &job{name: JobArchiveExport, interval: cfg.ArchiveInterval, run: s.ArchiveExportJob, nextRun: now.Add(cfg.ArchiveInterval)})
	}
	if cfg.MetricsInterval > 0 && pusher != nil {
		s.jobs = append(s.jobs, &job{name: JobMetricsPush, interval: cfg.MetricsInterval, run: pusher.Push, nextRun: now})
	}
	return s, nil
}

// Jobs lists the enabled job names in run order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		names = append(names, j.name)
	}
	return names
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)
	s.metrics.IncJobRun(name)
	log.Debug("job started")

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		log.Debug("job finished", zap.Duration("duration", s.clock.Now().Sub(start)))
		return nil
	}

	// deadline is a soft timeout; the job runs again on its next interval
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	s.metrics.IncJobError(name)
	log.Warn("job failed", zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job that is due and schedules its next run.
func (s *Scheduler) RunOnce(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	now := s.clock.Now()
	for _, j := range s.jobs {
		if now.Before(j.nextRun) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.run))
		j.nextRun = now.Add(j.interval)
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// IntegrityCheckJob logs every link or sale group violation found in the ledger.
func (s *Scheduler) IntegrityCheckJob(ctx context.Context) error {
	report, err := s.integrity.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	s.metrics.SetViolations(len(report.Violations))
	if report.Healthy {
		s.log.Info("ledger integrity ok", zap.Int("checked", report.Checked))
		return nil
	}

	logged := report.Violations
	if len(logged) > maxLoggedViolations {
		logged = logged[:maxLoggedViolations]
	}
	for _, v := range logged {
		s.log.Warn("ledger integrity violation",
			zap.String("kind", string(v.Kind)),
			zap.String("collection", v.Collection),
			zap.String("id", v.ID),
			zap.String("message", v.Message),
		)
	}
	s.log.Warn("ledger integrity check found violations",
		zap.Int("checked", report.Checked),
		zap.Int("violations", len(report.Violations)),
	)
	return nil
}

// ArchiveExportJob writes a full export to the archive sink.
func (s *Scheduler) ArchiveExportJob(ctx context.Context) error {
	result, err := s.archiver.Archive(ctx)
	if errors.Is(err, archive.ErrDisabled) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("scheduled export archived", zap.String("driver", result.Driver), zap.String("location", result.Location))
	return nil
}
