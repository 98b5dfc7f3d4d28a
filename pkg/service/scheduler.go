package service

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// DefaultTickInterval is the cadence of the trigger scan.
const DefaultTickInterval = 60 * time.Second

// ScheduledTask is a snapshot of one registry entry.
type ScheduledTask struct {
	TaskID  string    `json:"task_id"`
	NextRun time.Time `json:"next_run"`
}

type scheduleEntry struct {
	nextRun    time.Time
	recurrence *models.Recurrence
}

// Scheduler maintains the trigger registry and periodically asks the task
// manager to start due tasks. The scan runs on a single goroutine, so ticks
// never overlap.
type Scheduler struct {
	manager *TaskManager
	logger  Logger

	// OnApprovalNeeded is invoked when a due task cannot auto-run and is
	// left waiting for a human. Set it before Start.
	OnApprovalNeeded func(taskID string)

	tick     time.Duration
	mu       sync.RWMutex
	entries  map[string]*scheduleEntry
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewScheduler(manager *TaskManager, logger Logger) *Scheduler {
	return &Scheduler{
		manager:  manager,
		logger:   logger,
		tick:     DefaultTickInterval,
		entries:  make(map[string]*scheduleEntry),
		stopChan: make(chan struct{}),
	}
}

// SetTickInterval overrides the scan cadence. Call before Start.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Register inserts or replaces the trigger entry for a task. Registering a
// disabled schedule is a no-op.
func (s *Scheduler) Register(taskID string, scheduling models.Scheduling) {
	if !scheduling.Enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[taskID] = &scheduleEntry{
		nextRun:    scheduling.NextRun,
		recurrence: scheduling.Recurrence,
	}
}

// Unregister removes the entry unconditionally. Idempotent.
func (s *Scheduler) Unregister(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, taskID)
}

// ScheduledTasks returns a snapshot of the registry.
func (s *Scheduler) ScheduledTasks() []ScheduledTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ScheduledTask, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, ScheduledTask{TaskID: id, NextRun: e.nextRun})
	}
	return out
}

// Start launches the background trigger loop.
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Scan(time.Now().UTC())
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop terminates the trigger loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Scan fires every entry whose next run is due, then recomputes or removes
// its trigger. Exposed so callers (and tests) can drive the loop with an
// explicit clock.
func (s *Scheduler) Scan(now time.Time) {
	type due struct {
		taskID     string
		recurrence *models.Recurrence
	}

	s.mu.RLock()
	var dueTasks []due
	for id, e := range s.entries {
		if !e.nextRun.After(now) {
			dueTasks = append(dueTasks, due{taskID: id, recurrence: e.recurrence})
		}
	}
	s.mu.RUnlock()

	for _, d := range dueTasks {
		task, ok := s.manager.GetTask(d.taskID)
		if !ok {
			s.logger.Errorf("Scheduled task %s no longer exists, dropping trigger", d.taskID)
			s.Unregister(d.taskID)
			continue
		}

		if task.Automation.AutoRunEnabled {
			if err := s.manager.Start(d.taskID); err != nil {
				s.logger.Errorf("Failed to start scheduled task %s: %v", d.taskID, err)
			}
		} else {
			// Approval-gated: leave the task pending and notify.
			s.logger.Infof("Scheduled task %s requires approval", d.taskID)
			if s.OnApprovalNeeded != nil {
				s.OnApprovalNeeded(d.taskID)
			}
		}

		if d.recurrence == nil {
			// One-shot semantics.
			s.Unregister(d.taskID)
			continue
		}
		next := NextOccurrence(now, *d.recurrence)
		if next == nil {
			s.Unregister(d.taskID)
			continue
		}
		s.mu.Lock()
		if e, ok := s.entries[d.taskID]; ok {
			e.nextRun = *next
		}
		s.mu.Unlock()
	}
}

// NextOccurrence recomputes a trigger time after it fires. Monthly uses a
// fixed 30-day approximation rather than calendar-month arithmetic. A nil
// return means no further occurrence.
func NextOccurrence(from time.Time, rec models.Recurrence) *time.Time {
	switch rec.Frequency {
	case models.DailyFrequency:
		next := from.AddDate(0, 0, 1)
		next = pinClock(next, rec.Time)
		return &next
	case models.WeeklyFrequency:
		next := from.AddDate(0, 0, 7)
		if len(rec.DaysOfWeek) > 0 {
			weekday := mondayIndexed(from)
			matched := false
			for _, d := range rec.DaysOfWeek {
				if d > weekday {
					next = from.AddDate(0, 0, d-weekday)
					matched = true
					break
				}
			}
			if !matched {
				// Wrap to the first listed weekday next week.
				next = from.AddDate(0, 0, 7-weekday+rec.DaysOfWeek[0])
			}
		}
		next = pinClock(next, rec.Time)
		return &next
	case models.MonthlyFrequency:
		next := from.AddDate(0, 0, 30)
		return &next
	case models.CustomFrequency:
		if rec.Interval == nil {
			return nil
		}
		next := from.AddDate(0, 0, *rec.Interval)
		return &next
	}
	return nil
}

// mondayIndexed maps time.Weekday (Sunday=0) to the Monday=0 indexing the
// recurrence descriptor uses.
func mondayIndexed(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// pinClock sets the wall-clock time of day on ts when spec holds a valid
// "HH:MM". Malformed values are ignored and the un-pinned timestamp kept.
func pinClock(ts time.Time, spec *string) time.Time {
	if spec == nil {
		return ts
	}
	hour, minute, ok := parseClock(*spec)
	if !ok {
		return ts
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), hour, minute, 0, 0, ts.Location())
}

func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h >= 24 || m < 0 || m >= 60 {
		return 0, 0, false
	}
	return h, m, true
}
