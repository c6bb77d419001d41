// Package schedule drives recurring and on-demand crawls from cron
// expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/harvester/internal/crawl"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
)

// Errors surfaced by the schedule manager.
var (
	// ErrScheduleNotFound is returned when the schedule does not exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrScheduleInactive is returned when triggering an inactive schedule.
	ErrScheduleInactive = errors.New("schedule is inactive")

	// ErrInvalidCronExpr is returned for unparseable cron expressions.
	ErrInvalidCronExpr = errors.New("invalid cron expression")
)

// Store supplies schedule rows. The manager re-reads through it on every
// fire, so edits made between scheduling and firing are honored.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	ListActive(ctx context.Context) ([]*domain.Schedule, error)
	UpdateLastRun(ctx context.Context, id string) error
}

// Runner executes crawls. Implemented by the crawl engine.
type Runner interface {
	RunCrawl(ctx context.Context, sourceID string, opts crawl.Options) (domain.CrawlResult, error)
}

// Manager owns one cron entry per running schedule. A schedule is either
// stopped (no entry) or running (tracked entry); updating a running
// schedule stops and restarts it with the new parameters.
type Manager struct {
	store  Store
	runner Runner
	logger logger.Interface

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a schedule manager.
func NewManager(store Store, runner Runner, log logger.Interface) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		runner:  runner,
		logger:  log,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start loads all active schedules, registers them and starts the cron
// loop.
func (m *Manager) Start(ctx context.Context) error {
	schedules, err := m.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active schedules: %w", err)
	}

	for _, schedule := range schedules {
		if startErr := m.StartSchedule(schedule); startErr != nil {
			m.logger.Error("Failed to start schedule", "schedule_id", schedule.ID, "error", startErr)
		}
	}

	m.cron.Start()
	m.logger.Info("Schedule manager started", "schedules", len(schedules))
	return nil
}

// Stop halts the cron loop and waits for in-flight crawls to finish.
func (m *Manager) Stop() {
	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Schedule manager stopped")
}

// StartSchedule registers a cron entry for the schedule, replacing any
// existing entry. Only the ID and cron expression are captured; all
// other parameters are read fresh at fire time.
func (m *Manager) StartSchedule(schedule *domain.Schedule) error {
	if schedule == nil {
		return ErrScheduleNotFound
	}
	if _, err := cron.ParseStandard(schedule.CronExpr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCronExpr, schedule.CronExpr, err)
	}

	m.removeEntry(schedule.ID)

	scheduleID := schedule.ID
	entryID, err := m.cron.AddFunc(schedule.CronExpr, func() {
		m.wg.Add(1)
		defer m.wg.Done()
		if err := m.fire(m.ctx, scheduleID); err != nil {
			m.logger.Error("Scheduled crawl failed", "schedule_id", scheduleID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron entry: %w", err)
	}

	m.mu.Lock()
	m.entries[schedule.ID] = entryID
	m.mu.Unlock()

	m.logger.Info("Schedule started",
		"schedule_id", schedule.ID,
		"cron", schedule.CronExpr,
		"next_run", m.cron.Entry(entryID).Schedule.Next(time.Now()).Format(time.RFC3339))
	return nil
}

// StopSchedule removes the schedule's cron entry, if any.
func (m *Manager) StopSchedule(scheduleID string) {
	if m.removeEntry(scheduleID) {
		m.logger.Info("Schedule stopped", "schedule_id", scheduleID)
	}
}

// UpdateSchedule applies new parameters to a running schedule by
// stopping and restarting it.
func (m *Manager) UpdateSchedule(schedule *domain.Schedule) error {
	if schedule == nil {
		return ErrScheduleNotFound
	}
	m.StopSchedule(schedule.ID)
	if !schedule.Active {
		return nil
	}
	return m.StartSchedule(schedule)
}

// TriggerNow runs a schedule's crawl immediately, outside its cron
// cadence, through the same code path as a cron fire. Callers that need
// fire-and-forget semantics invoke it in a goroutine.
func (m *Manager) TriggerNow(ctx context.Context, scheduleID string) error {
	return m.fire(ctx, scheduleID)
}

// NextRun predicts the next fire time for a running schedule. Advisory,
// for display only.
func (m *Manager) NextRun(scheduleID string) (time.Time, error) {
	m.mu.Lock()
	entryID, ok := m.entries[scheduleID]
	m.mu.Unlock()
	if !ok {
		return time.Time{}, ErrScheduleNotFound
	}
	return m.cron.Entry(entryID).Schedule.Next(time.Now()), nil
}

// Running reports whether a schedule has a registered cron entry.
func (m *Manager) Running(scheduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[scheduleID]
	return ok
}

// fire executes one scheduled crawl. The schedule row is re-read fresh
// so edits made since registration are honored; last_run is stamped
// after the crawl completes, success or failure.
func (m *Manager) fire(ctx context.Context, scheduleID string) error {
	schedule, err := m.store.GetByID(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	if schedule == nil {
		m.removeEntry(scheduleID)
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}
	if !schedule.Active {
		m.removeEntry(scheduleID)
		return fmt.Errorf("%w: %s", ErrScheduleInactive, scheduleID)
	}

	opts := optionsFromSchedule(schedule)

	m.logger.Info("Schedule fired", "schedule_id", scheduleID, "source_id", schedule.SourceID)
	_, crawlErr := m.runner.RunCrawl(ctx, schedule.SourceID, opts)

	if updateErr := m.store.UpdateLastRun(ctx, scheduleID); updateErr != nil {
		m.logger.Error("Failed to update schedule last run", "schedule_id", scheduleID, "error", updateErr)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	return nil
}

// removeEntry drops the cron entry for a schedule. Returns whether one
// existed.
func (m *Manager) removeEntry(scheduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entryID, ok := m.entries[scheduleID]
	if !ok {
		return false
	}
	m.cron.Remove(entryID)
	delete(m.entries, scheduleID)
	return true
}

// optionsFromSchedule maps a schedule row onto crawl options, falling
// back to defaults for unset fields.
func optionsFromSchedule(schedule *domain.Schedule) crawl.Options {
	opts := crawl.Defaults()
	if schedule.Limit > 0 {
		opts.Limit = schedule.Limit
	}
	if schedule.CrawlDepth > 0 {
		opts.Depth = schedule.CrawlDepth
	}
	if schedule.Timeout > 0 {
		opts.TimeoutMillis = schedule.Timeout
	}
	opts.FullContent = schedule.FullContent
	opts.FollowLinks = schedule.FollowLinks
	return opts
}
