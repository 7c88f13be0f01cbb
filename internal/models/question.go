package models

import "time"

// QuestionStatus enumerates thread states.
type QuestionStatus string

const (
	QuestionOpen     QuestionStatus = "open"
	QuestionAnswered QuestionStatus = "answered"
)

// Question is a student's question addressed to their teacher.
type Question struct {
	ID        string         `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	TeacherID string         `db:"teacher_id" json:"teacher_id"`
	SubjectID *string        `db:"subject_id" json:"subject_id,omitempty"`
	Title     string         `db:"title" json:"title"`
	Content   string         `db:"content" json:"content"`
	Status    QuestionStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// QuestionResponse is one reply in a question thread.
type QuestionResponse struct {
	ID         string    `db:"id" json:"id"`
	QuestionID string    `db:"question_id" json:"question_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorRole UserRole  `db:"author_role" json:"author_role"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// QuestionThread is a question with its ordered responses.
type QuestionThread struct {
	Question
	Responses []QuestionResponse `json:"responses"`
}

// QuestionFilter captures listing options.
type QuestionFilter struct {
	TeacherID string
	StudentID string
	Status    QuestionStatus
	Page      int
	PageSize  int
}
