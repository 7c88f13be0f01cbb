package models

import "time"

// TaskStatus enumerates the lifecycle of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// TaskTypeTestSolving marks tasks whose completion is scored from answer counts.
const TaskTypeTestSolving = "test-solving"

// Task is a single assignment given to a student by a teacher.
type Task struct {
	ID             string     `db:"id" json:"id"`
	TeacherID      string     `db:"teacher_id" json:"teacher_id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	SubjectID      *string    `db:"subject_id" json:"subject_id,omitempty"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Type           string     `db:"type" json:"type"`
	TestCount      *int       `db:"test_count" json:"test_count,omitempty"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        time.Time  `db:"end_date" json:"end_date"`
	Status         TaskStatus `db:"status" json:"status"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletionNote *string    `db:"completion_note" json:"completion_note,omitempty"`
	CorrectAnswers *int       `db:"correct_answers" json:"correct_answers,omitempty"`
	WrongAnswers   *int       `db:"wrong_answers" json:"wrong_answers,omitempty"`
	BlankAnswers   *int       `db:"blank_answers" json:"blank_answers,omitempty"`
	TotalScore     *int       `db:"total_score" json:"total_score"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTestSolving reports whether completion requires answer counts.
func (t Task) IsTestSolving() bool {
	return t.Type == TaskTypeTestSolving
}

// TaskFilter captures listing options for tasks.
type TaskFilter struct {
	TeacherID string
	StudentID string
	SubjectID string
	Status    TaskStatus
	From      *time.Time // end date on or after this midnight
	To        *time.Time // end date on this calendar day or earlier
	Page      int
	PageSize  int
}

// TaskCompletion carries the terminal write for a pending task.
type TaskCompletion struct {
	TaskID         string
	StudentID      string
	Status         TaskStatus
	CompletedAt    time.Time
	CompletionNote *string
	CorrectAnswers *int
	WrongAnswers   *int
	BlankAnswers   *int
	TotalScore     *int
}

// TaskStatusCounts aggregates tasks by status for dashboards.
type TaskStatusCounts struct {
	Pending   int `db:"pending" json:"pending"`
	Completed int `db:"completed" json:"completed"`
	Overdue   int `db:"overdue" json:"overdue"`
	Late      int `db:"late" json:"late"`
}

// TaskView is a task with its derived lateness.
type TaskView struct {
	Task
	IsOverdue bool `json:"is_overdue"`
}

// CompletionResult is returned to the student after completing a task.
type CompletionResult struct {
	Task                Task   `json:"task"`
	IsOverdue           bool   `json:"is_overdue"`
	CanRequestExtension bool   `json:"can_request_extension"`
	Message             string `json:"message"`
}
