package models

import "time"

// ExtensionStatus enumerates extension request states.
type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// ExtensionRequest is a student's appeal for more time on an overdue task.
type ExtensionRequest struct {
	ID            string          `db:"id" json:"id"`
	TaskID        string          `db:"task_id" json:"task_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	Reason        string          `db:"reason" json:"reason"`
	RequestedDays int             `db:"requested_days" json:"requested_days"`
	Status        ExtensionStatus `db:"status" json:"status"`
	ApprovedDays  *int            `db:"approved_days" json:"approved_days,omitempty"`
	NewDueDate    *time.Time      `db:"new_due_date" json:"new_due_date,omitempty"`
	ResponseNote  *string         `db:"response_note" json:"response_note,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	RespondedAt   *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
}

// ExtensionRequestDetail joins the request with its task and student for listings.
type ExtensionRequestDetail struct {
	ExtensionRequest
	TaskTitle   string    `db:"task_title" json:"task_title"`
	TaskEndDate time.Time `db:"task_end_date" json:"task_end_date"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	StudentName string    `db:"student_name" json:"student_name"`
}

// ExtensionFilter captures listing options.
type ExtensionFilter struct {
	TeacherID string
	StudentID string
	Status    ExtensionStatus
	Page      int
	PageSize  int
}

// ExtensionApproval carries the atomic approval write. The new due date is derived from the
// task's current end date inside the same transaction.
type ExtensionApproval struct {
	RequestID    string
	TaskID       string
	ApprovedDays int
	// PreviousDueDate is the end date NewDueDate was computed from; the task is only moved if
	// it still holds it.
	PreviousDueDate time.Time
	NewDueDate      time.Time
	ResponseNote    *string
	RespondedAt  time.Time
}
