package models

import "time"

// Class groups subjects, e.g. a grade level or exam track.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	SubjectCount int       `db:"subject_count" json:"subject_count"`
	StudentCount int       `db:"student_count" json:"student_count"`
}
