package models

import "time"

type ScheduleType string

const (
	OnceSchedule      ScheduleType = "once"
	RecurringSchedule ScheduleType = "recurring"
)

type Frequency string

const (
	DailyFrequency   Frequency = "daily"
	WeeklyFrequency  Frequency = "weekly"
	MonthlyFrequency Frequency = "monthly"
	CustomFrequency  Frequency = "custom"
)

// Scheduling is a task's trigger descriptor. A disabled schedule is never
// registered with the scheduler.
type Scheduling struct {
	Type       ScheduleType `json:"schedule_type"`
	NextRun    time.Time    `json:"next_run"`
	Recurrence *Recurrence  `json:"recurrence,omitempty"`
	Enabled    bool         `json:"enabled"`
}

// Recurrence describes how the next run is recomputed after a trigger fires.
// DaysOfWeek uses Monday=0 indices. Time is "HH:MM" (24-hour); malformed
// values are ignored rather than rejected.
type Recurrence struct {
	Frequency  Frequency `json:"frequency"`
	Interval   *int      `json:"interval,omitempty"`
	DaysOfWeek []int     `json:"days_of_week,omitempty"`
	Time       *string   `json:"time,omitempty"`
}
