package models

import "time"

// RoutineFrequency enumerates recurrence kinds.
type RoutineFrequency string

const (
	FrequencyWeekly  RoutineFrequency = "weekly"
	FrequencyMonthly RoutineFrequency = "monthly"
)

// RoutineTask is a recurring template materialised into tasks by the daily sweep.
type RoutineTask struct {
	ID         string           `db:"id" json:"id"`
	TeacherID  string           `db:"teacher_id" json:"teacher_id"`
	SubjectID  *string          `db:"subject_id" json:"subject_id,omitempty"`
	Name       string           `db:"name" json:"name"`
	Type       string           `db:"type" json:"type"`
	TestCount  *int             `db:"test_count" json:"test_count,omitempty"`
	Frequency  RoutineFrequency `db:"frequency" json:"frequency"`
	DayOfWeek  *int             `db:"day_of_week" json:"day_of_week,omitempty"`
	DayOfMonth *int             `db:"day_of_month" json:"day_of_month,omitempty"`
	Time       string           `db:"time" json:"time"`
	IsActive   bool             `db:"is_active" json:"is_active"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
	StudentIDs []string         `db:"-" json:"student_ids"`
}

// RoutineMatch selects routines due on a given day.
type RoutineMatch struct {
	Weekday      int
	DayOfMonth   int
	MatchMonthly bool
	TeacherID    string
}

// RoutineOutcome reports what a sweep did with one routine.
type RoutineOutcome struct {
	RoutineID string `json:"routine_id"`
	Name      string `json:"name"`
	Created   int    `json:"created"`
	Skipped   bool   `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// SweepResult summarises one materialisation run.
type SweepResult struct {
	Date     string           `json:"date"`
	Matched  int              `json:"matched"`
	Created  int              `json:"created"`
	Failed   int              `json:"failed"`
	Outcomes []RoutineOutcome `json:"outcomes"`
}
