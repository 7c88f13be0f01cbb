package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

const taskColumns = `id, teacher_id, student_id, subject_id, title, description, type, test_count, start_date, end_date, status,
        completed_at, completion_note, correct_answers, wrong_answers, blank_answers, total_score, created_at, updated_at`

// TaskRepository persists tasks and their terminal completion write.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func insertTask(ctx context.Context, exec namedExecer, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	const query = `INSERT INTO tasks (id, teacher_id, student_id, subject_id, title, description, type, test_count, start_date, end_date, status, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :subject_id, :title, :description, :type, :test_count, :start_date, :end_date, :status, :created_at, :updated_at)`
	if _, err := exec.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Create inserts a new pending task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return insertTask(ctx, r.db, task)
}

// FindByID fetches a task.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// List returns tasks matching the filter ordered by due date.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.TeacherID != "" {
		add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("end_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		// To names a calendar day; tasks due at any time on it are included.
		add("end_date < $%d", filter.To.AddDate(0, 0, 1))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY end_date ASC, created_at ASC LIMIT %d OFFSET %d", taskColumns, where, limit, offset)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tasks"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// Update rewrites the editable fields of a pending task owned by the teacher.
// It returns sql.ErrNoRows when the task is no longer pending.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET subject_id = :subject_id, title = :title, description = :description, type = :type,
        test_count = :test_count, start_date = :start_date, end_date = :end_date, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id AND status = 'pending'`
	res, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a task owned by the teacher.
func (r *TaskRepository) Delete(ctx context.Context, teacherID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Complete moves a pending task to its terminal state and, when provided, stores the derived
// test result in the same transaction. The update only matches while the task is still
// pending, so of several concurrent completions exactly one succeeds; the others get sql.ErrNoRows.
func (r *TaskRepository) Complete(ctx context.Context, completion models.TaskCompletion, result *models.TestResult) (task *models.Task, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin completion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `UPDATE tasks SET status = $3, completed_at = $4, completion_note = $5, correct_answers = $6,
        wrong_answers = $7, blank_answers = $8, total_score = $9, updated_at = $4
        WHERE id = $1 AND student_id = $2 AND status = 'pending'
        RETURNING ` + taskColumns
	var updated models.Task
	if err = tx.GetContext(ctx, &updated, query,
		completion.TaskID,
		completion.StudentID,
		completion.Status,
		completion.CompletedAt,
		completion.CompletionNote,
		completion.CorrectAnswers,
		completion.WrongAnswers,
		completion.BlankAnswers,
		completion.TotalScore,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("complete task: %w", err)
	}

	if result != nil {
		result.TaskID = &updated.ID
		if err = insertTestResult(ctx, tx, result); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return &updated, nil
}

// StatusCounts aggregates tasks by status for a teacher or a student. Pending tasks whose
// end date falls before dayStart are counted as late.
func (r *TaskRepository) StatusCounts(ctx context.Context, teacherID, studentID string, dayStart time.Time) (*models.TaskStatusCounts, error) {
	query := `SELECT
        COUNT(*) FILTER (WHERE status = 'pending') AS pending,
        COUNT(*) FILTER (WHERE status = 'completed') AS completed,
        COUNT(*) FILTER (WHERE status = 'overdue') AS overdue,
        COUNT(*) FILTER (WHERE status = 'pending' AND end_date < $1) AS late
        FROM tasks WHERE 1=1`
	args := []interface{}{dayStart}
	if teacherID != "" {
		args = append(args, teacherID)
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if studentID != "" {
		args = append(args, studentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	var counts models.TaskStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("task status counts: %w", err)
	}
	return &counts, nil
}
