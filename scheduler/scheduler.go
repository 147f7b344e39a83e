package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/notify"
	"github.com/ariebrainware/medibot/reminder"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// State of the reminder loop.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

const (
	DefaultSpec        = "* * * * *"
	defaultTickTimeout = 50 * time.Second
)

// Dispatcher hands matched reminders to the mail transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, reminders []model.MedicationReminder, clock string) notify.Report
}

// Options configures a Scheduler. Zero values fall back to the defaults.
type Options struct {
	Spec        string
	Location    *time.Location
	TickTimeout time.Duration
	Now         func() time.Time
}

// TickReport describes one tick.
type TickReport struct {
	Skipped bool          `json:"skipped"`
	Clock   string        `json:"clock,omitempty"`
	Report  notify.Report `json:"report"`
}

// Scheduler runs the reminder check on a cron trigger. At most one tick runs
// at a time; a trigger that fires while a tick is running is dropped.
type Scheduler struct {
	db         *gorm.DB
	dispatcher Dispatcher
	log        zerolog.Logger

	spec        string
	loc         *time.Location
	tickTimeout time.Duration
	now         func() time.Time

	parser cron.Parser

	mu      sync.Mutex
	cron    *cron.Cron
	running atomic.Bool
	ticks   atomic.Int64
	skipped atomic.Int64
}

// New validates the schedule and returns a stopped Scheduler.
func New(db *gorm.DB, dispatcher Dispatcher, log zerolog.Logger, opts Options) (*Scheduler, error) {
	if db == nil {
		return nil, errors.New("scheduler: db is nil")
	}
	if dispatcher == nil {
		return nil, errors.New("scheduler: dispatcher is nil")
	}

	s := &Scheduler{
		db:          db,
		dispatcher:  dispatcher,
		log:         log.With().Str("component", "scheduler").Logger(),
		spec:        opts.Spec,
		loc:         opts.Location,
		tickTimeout: opts.TickTimeout,
		now:         opts.Now,
		parser:      cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if s.spec == "" {
		s.spec = DefaultSpec
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.tickTimeout <= 0 {
		s.tickTimeout = defaultTickTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}

	if _, err := s.parser.Parse(s.spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", s.spec, err)
	}
	return s, nil
}

// State reports whether a tick is in flight.
func (s *Scheduler) State() State {
	if s.running.Load() {
		return Running
	}
	return Idle
}

// Stats returns the number of completed and dropped ticks.
func (s *Scheduler) Stats() (ticks, skipped int64) {
	return s.ticks.Load(), s.skipped.Load()
}

// Start registers the job and starts the cron loop. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.spec, s.runScheduled); err != nil {
		return fmt.Errorf("scheduler: register job: %w", err)
	}
	c.Start()
	s.cron = c

	s.log.Info().Str("schedule", s.spec).Str("timezone", s.loc.String()).Msg("reminder scheduler started")
	return nil
}

// Stop halts the trigger and waits for a running tick to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()
	if _, err := s.Tick(ctx); err != nil {
		s.log.Error().Err(err).Msg("reminder tick failed")
	}
}

// Tick runs one check-and-send cycle for the current minute. If another tick
// is running it returns immediately with Skipped set.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Warn().Msg("previous reminder tick still running, skipping")
		return TickReport{Skipped: true}, nil
	}
	defer s.running.Store(false)

	now := s.now().In(s.loc)
	clock := reminder.FormatClock(now)

	due, err := reminder.DueReminders(ctx, s.db, now)
	if err != nil {
		return TickReport{Clock: clock}, err
	}

	report := s.dispatcher.Dispatch(ctx, due, clock)
	s.ticks.Add(1)

	evt := s.log.Debug()
	if report.Matched > 0 {
		evt = s.log.Info()
	}
	evt.Str("clock", clock).
		Int("matched", report.Matched).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("reminder tick finished")

	return TickReport{Clock: clock, Report: report}, nil
}
