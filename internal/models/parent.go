package models

import "time"

// Parent is the profile row attached to a PARENT user, optionally linked to one student.
type Parent struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParentDetail joins the parent profile with identity and the linked student name.
type ParentDetail struct {
	Parent
	Email       string  `db:"email" json:"email"`
	FullName    string  `db:"full_name" json:"full_name"`
	Active      bool    `db:"active" json:"active"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}

// ParentFilter captures listing options for parents.
type ParentFilter struct {
	TeacherID string
	Search    string
	Page      int
	PageSize  int
}
