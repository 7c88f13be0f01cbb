package dto

import (
	"time"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// TeacherDashboardResponse captures the aggregated teacher dashboard payload.
type TeacherDashboardResponse struct {
	TeacherID         string                  `json:"teacher_id"`
	StudentCount      int                     `json:"student_count"`
	Tasks             models.TaskStatusCounts `json:"tasks"`
	PendingExtensions int                     `json:"pending_extensions"`
	OpenQuestions     int                     `json:"open_questions"`
	AverageNetScore   *float64                `json:"average_net_score"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

// StudentDashboardResponse captures the aggregated student dashboard payload.
type StudentDashboardResponse struct {
	StudentID   string                    `json:"student_id"`
	Tasks       models.TaskStatusCounts   `json:"tasks"`
	Progress    models.ProgressReport     `json:"progress"`
	LatestTests []models.TestResultDetail `json:"latest_tests"`
	GeneratedAt time.Time                 `json:"generated_at"`
}
