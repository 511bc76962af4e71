// Package schedule runs the recurring reminder process: poll the calendar
// source for upcoming events, classify each into a reminder window and
// dispatch at most one reminder per (event, window) pair.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"agenda-backend/application/notify"
	"agenda-backend/application/ports"
	"agenda-backend/domain/notification"
	"agenda-backend/domain/reminder"
)

// Config controls the scheduler's timing.
type Config struct {
	// Interval between poll cycles. Defaults to one minute.
	Interval time.Duration
	// Timezone is the fixed reference zone for all time arithmetic. The
	// server-local zone is never used; it is ambiguous across deployments.
	Timezone string
	// Horizon is the calendar source's lookahead bound, also used to sweep
	// stale dedup keys. Defaults to 25 hours.
	Horizon time.Duration
}

// Scheduler owns the dedup state and the recurring poll task. Cycles are
// driven by a single cron entry wrapped so a late cycle delays the next one;
// ticks never run in parallel, which is what lets the sent log go unlocked.
type Scheduler struct {
	source     ports.CalendarSource
	dispatcher *notify.Dispatcher
	windows    reminder.Windows
	sent       *reminder.SentLog
	loc        *time.Location
	interval   time.Duration
	horizon    time.Duration
	cron       *cron.Cron
	logger     *zap.Logger

	// now is evaluated once per cycle; replaced in tests.
	now func() time.Time
}

// New creates a Scheduler. It fails only when the configured zone is
// unknown.
func New(source ports.CalendarSource, dispatcher *notify.Dispatcher, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Paris"
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 25 * time.Hour
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load reminder timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		source:     source,
		dispatcher: dispatcher,
		windows:    reminder.NewWindows(cfg.Interval),
		sent:       reminder.NewSentLog(),
		loc:        loc,
		interval:   cfg.Interval,
		horizon:    cfg.Horizon,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Start launches the recurring poll task. DelayIfStillRunning defers a tick
// that comes due while the previous cycle is still executing instead of
// running the two in parallel.
func (s *Scheduler) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger.Named("cron")))
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.DelayIfStillRunning(cronLogger),
	))

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.RunCycle(ctx)
	}); err != nil {
		return fmt.Errorf("register reminder poll task: %w", err)
	}

	s.cron.Start()
	s.logger.Info("reminder scheduler started",
		zap.Duration("interval", s.interval),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop halts the recurring task, letting an in-flight cycle finish or the
// given context expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("reminder scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("reminder scheduler stop timed out with a cycle in flight")
	}
}

// RunCycle executes one poll cycle. A failed pull abandons the whole cycle
// with no state recorded; a failure on one event never aborts the rest.
func (s *Scheduler) RunCycle(ctx context.Context) {
	events, err := s.source.Upcoming(ctx)
	if err != nil {
		s.logger.Warn("upcoming-events pull failed, skipping cycle", zap.Error(err))
		return
	}

	now := s.now().In(s.loc)

	if swept := s.sent.Sweep(now.Add(-s.horizon)); swept > 0 {
		s.logger.Debug("swept stale reminder keys", zap.Int("count", swept))
	}

	s.logger.Debug("reminder cycle", zap.Int("upcomingEvents", len(events)))

	for _, ev := range events {
		if !ev.Schedulable() {
			s.logger.Debug("skipping event without start date/time", zap.String("eventId", ev.ID))
			continue
		}

		start, err := ev.StartsAt(s.loc)
		if err != nil {
			s.logger.Warn("skipping event with unparseable start",
				zap.String("eventId", ev.ID),
				zap.Error(err),
			)
			continue
		}

		minutes := int(start.Sub(now).Minutes())
		window, ok := s.windows.Classify(minutes)
		if !ok {
			continue
		}

		key := reminder.Key{EventID: ev.ID, Window: window}
		if s.sent.Seen(key) {
			continue
		}

		n := s.dispatcher.Deliver(ctx, notification.KindReminder, ev.UserID, ev.Title, window.Message(ev.Title), ev.ID)
		s.sent.Mark(key, now)

		s.logger.Info("reminder sent",
			zap.String("eventId", ev.ID),
			zap.String("window", string(window)),
			zap.String("userId", ev.UserID),
			zap.String("notificationId", n.ID),
			zap.Int("minutesUntilStart", minutes),
		)
	}
}

// SendTestReminder synthesizes a single reminder outside the dedup state,
// for smoke-testing delivery without waiting for a real window. The window
// is picked from minutesUntil the way the real classifier would round it.
func (s *Scheduler) SendTestReminder(ctx context.Context, userID, title string, minutesUntil int) notification.Notification {
	window := s.windows.Pick(minutesUntil)
	return s.dispatcher.Deliver(ctx, notification.KindReminder, userID, title, window.Message(title), "")
}
