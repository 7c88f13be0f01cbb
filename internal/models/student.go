package models

import "time"

// Student is the profile row attached to a STUDENT user. A student belongs to exactly one teacher.
type Student struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	ClassID    *string   `db:"class_id" json:"class_id,omitempty"`
	GradeLevel string    `db:"grade_level" json:"grade_level"`
	Phone      string    `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	TeacherID string
	ClassID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains the student profile with identity and class context.
type StudentDetail struct {
	Student
	Email       string  `db:"email" json:"email"`
	FullName    string  `db:"full_name" json:"full_name"`
	Active      bool    `db:"active" json:"active"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
}

// StudentUpdate carries the optional profile changes. Nil means unchanged; ownership never moves.
type StudentUpdate struct {
	ClassID    *string
	GradeLevel *string
	Phone      *string
}
