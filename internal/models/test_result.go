package models

import "time"

// TestResult is the score breakdown of a completed test, either materialised from a
// test-solving task or recorded directly by a teacher.
type TestResult struct {
	ID              string    `db:"id" json:"id"`
	TaskID          *string   `db:"task_id" json:"task_id,omitempty"`
	StudentID       string    `db:"student_id" json:"student_id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	SubjectID       *string   `db:"subject_id" json:"subject_id,omitempty"`
	Title           string    `db:"title" json:"title"`
	TestCount       int       `db:"test_count" json:"test_count"`
	CorrectAnswers  int       `db:"correct_answers" json:"correct_answers"`
	WrongAnswers    int       `db:"wrong_answers" json:"wrong_answers"`
	BlankAnswers    int       `db:"blank_answers" json:"blank_answers"`
	NetScore        int       `db:"net_score" json:"net_score"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Status          string    `db:"status" json:"status"`
	CompletedAt     time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TestResultStatusCompleted is the only status a stored result carries today.
const TestResultStatusCompleted = "completed"

// TestResultDetail adds display names used by listings and exports.
type TestResultDetail struct {
	TestResult
	StudentName string  `db:"student_name" json:"student_name"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// TestResultFilter captures listing options for test results.
type TestResultFilter struct {
	TeacherID string
	StudentID string
	SubjectID string
	Page      int
	PageSize  int
}
