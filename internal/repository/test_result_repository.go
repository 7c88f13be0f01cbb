package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// TestResultRepository persists test results.
type TestResultRepository struct {
	db *sqlx.DB
}

// NewTestResultRepository constructs a TestResultRepository.
func NewTestResultRepository(db *sqlx.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

func insertTestResult(ctx context.Context, exec namedExecer, result *models.TestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	if result.Status == "" {
		result.Status = models.TestResultStatusCompleted
	}
	const query = `INSERT INTO test_results (id, task_id, student_id, teacher_id, subject_id, title, test_count, correct_answers,
        wrong_answers, blank_answers, net_score, duration_minutes, status, completed_at, created_at)
        VALUES (:id, :task_id, :student_id, :teacher_id, :subject_id, :title, :test_count, :correct_answers,
        :wrong_answers, :blank_answers, :net_score, :duration_minutes, :status, :completed_at, :created_at)`
	if _, err := exec.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create test result: %w", err)
	}
	return nil
}

// Create stores a manually recorded result.
func (r *TestResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	return insertTestResult(ctx, r.db, result)
}

const testResultSelect = `SELECT tr.id, tr.task_id, tr.student_id, tr.teacher_id, tr.subject_id, tr.title, tr.test_count,
        tr.correct_answers, tr.wrong_answers, tr.blank_answers, tr.net_score, tr.duration_minutes, tr.status,
        tr.completed_at, tr.created_at, u.full_name AS student_name, sb.name AS subject_name
        FROM test_results tr
        JOIN users u ON u.id = tr.student_id
        LEFT JOIN subjects sb ON sb.id = tr.subject_id`

func testResultWhere(filter models.TestResultFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("tr.teacher_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("tr.student_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("tr.subject_id = $%d", len(args)))
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of results, newest first.
func (r *TestResultRepository) List(ctx context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, int, error) {
	where, args := testResultWhere(filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY tr.completed_at DESC LIMIT %d OFFSET %d", testResultSelect, where, limit, offset)
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list test results: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM test_results tr"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count test results: %w", err)
	}
	return results, total, nil
}

// ListAll returns every matching result for exports.
func (r *TestResultRepository) ListAll(ctx context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, error) {
	where, args := testResultWhere(filter)
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, testResultSelect+where+" ORDER BY tr.completed_at DESC", args...); err != nil {
		return nil, fmt.Errorf("export test results: %w", err)
	}
	return results, nil
}

// AverageNetScore returns the mean net score over a teacher's results, nil when none exist.
func (r *TestResultRepository) AverageNetScore(ctx context.Context, teacherID string) (*float64, error) {
	var avg *float64
	if err := r.db.GetContext(ctx, &avg, `SELECT AVG(net_score)::float8 FROM test_results WHERE teacher_id = $1`, teacherID); err != nil {
		return nil, fmt.Errorf("average net score: %w", err)
	}
	return avg, nil
}

// Latest returns the most recent results of a student.
func (r *TestResultRepository) Latest(ctx context.Context, studentID string, limit int) ([]models.TestResultDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf("%s WHERE tr.student_id = $1 ORDER BY tr.completed_at DESC LIMIT %d", testResultSelect, limit)
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("latest test results: %w", err)
	}
	return results, nil
}
