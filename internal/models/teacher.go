package models

import "time"

// Teacher is the profile row attached to a TEACHER user.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Phone     string    `db:"phone" json:"phone"`
	Branch    string    `db:"branch" json:"branch"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins the teacher profile with its user identity.
type TeacherDetail struct {
	Teacher
	Email        string `db:"email" json:"email"`
	FullName     string `db:"full_name" json:"full_name"`
	Active       bool   `db:"active" json:"active"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// TeacherFilter captures listing options for teachers.
type TeacherFilter struct {
	Search   string
	Page     int
	PageSize int
}

// TeacherUpdate carries the optional fields an admin may change. Nil means unchanged.
type TeacherUpdate struct {
	Phone  *string
	Branch *string
	Active *bool
}
