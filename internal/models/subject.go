package models

import "time"

// Subject belongs to a class.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Topic belongs to a subject and is the unit of progress tracking.
type Topic struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentSubject records that a subject was assigned to a student.
type StudentSubject struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}

// ProgressStatus is the completion state of a topic for a student.
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "pending"
	ProgressCompleted ProgressStatus = "completed"
)

// StudentProgress stores per-topic completion for a student.
type StudentProgress struct {
	StudentID   string         `db:"student_id" json:"student_id"`
	TopicID     string         `db:"topic_id" json:"topic_id"`
	Status      ProgressStatus `db:"status" json:"status"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectProgressCount is the per-subject aggregate the progress report is built from.
type SubjectProgressCount struct {
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TotalTopics int    `db:"total_topics" json:"total_topics"`
	Completed   int    `db:"completed_topics" json:"completed_topics"`
}

// SubjectProgress is one row of a student's progress report.
type SubjectProgress struct {
	SubjectProgressCount
	Percentage float64 `json:"percentage"`
}

// ProgressReport summarises topic completion across a student's assigned subjects.
type ProgressReport struct {
	StudentID         string            `json:"student_id"`
	Subjects          []SubjectProgress `json:"subjects"`
	TotalTopics       int               `json:"total_topics"`
	CompletedTopics   int               `json:"completed_topics"`
	OverallPercentage float64           `json:"overall_percentage"`
}
