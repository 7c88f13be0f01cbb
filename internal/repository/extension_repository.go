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

// ExtensionRepository persists extension requests.
type ExtensionRepository struct {
	db *sqlx.DB
}

// NewExtensionRepository constructs an ExtensionRepository.
func NewExtensionRepository(db *sqlx.DB) *ExtensionRepository {
	return &ExtensionRepository{db: db}
}

const extensionSelect = `SELECT er.id, er.task_id, er.student_id, er.reason, er.requested_days, er.status, er.approved_days,
        er.new_due_date, er.response_note, er.created_at, er.responded_at,
        t.title AS task_title, t.end_date AS task_end_date, t.teacher_id, u.full_name AS student_name
        FROM extension_requests er
        JOIN tasks t ON t.id = er.task_id
        JOIN users u ON u.id = er.student_id`

// Create inserts a pending request.
func (r *ExtensionRepository) Create(ctx context.Context, req *models.ExtensionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = time.Now().UTC()
	req.Status = models.ExtensionPending
	const query = `INSERT INTO extension_requests (id, task_id, student_id, reason, requested_days, status, created_at)
        VALUES (:id, :task_id, :student_id, :reason, :requested_days, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create extension request: %w", err)
	}
	return nil
}

// FindDetail fetches a request together with its task ownership.
func (r *ExtensionRepository) FindDetail(ctx context.Context, id string) (*models.ExtensionRequestDetail, error) {
	var detail models.ExtensionRequestDetail
	if err := r.db.GetContext(ctx, &detail, extensionSelect+` WHERE er.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find extension request: %w", err)
	}
	return &detail, nil
}

// HasPending reports whether the student already has a pending request for the task.
func (r *ExtensionRepository) HasPending(ctx context.Context, taskID, studentID string) (bool, error) {
	var exists int
	const query = `SELECT 1 FROM extension_requests WHERE task_id = $1 AND student_id = $2 AND status = 'pending' LIMIT 1`
	if err := r.db.GetContext(ctx, &exists, query, taskID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending extension: %w", err)
	}
	return true, nil
}

// List returns requests matching the filter, newest first.
func (r *ExtensionRepository) List(ctx context.Context, filter models.ExtensionFilter) ([]models.ExtensionRequestDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("t.teacher_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("er.student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("er.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	var requests []models.ExtensionRequestDetail
	query := fmt.Sprintf("%s%s ORDER BY er.created_at DESC LIMIT %d OFFSET %d", extensionSelect, where, limit, offset)
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list extension requests: %w", err)
	}
	var total int
	countQuery := "SELECT COUNT(*) FROM extension_requests er JOIN tasks t ON t.id = er.task_id" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count extension requests: %w", err)
	}
	return requests, total, nil
}

// Reject closes a pending request. It returns sql.ErrNoRows when the request was already processed.
func (r *ExtensionRepository) Reject(ctx context.Context, id string, note *string, respondedAt time.Time) error {
	const query = `UPDATE extension_requests SET status = 'rejected', response_note = $2, responded_at = $3
        WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, note, respondedAt)
	if err != nil {
		return fmt.Errorf("reject extension request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rejected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Approve writes the precomputed due date on the task and closes the request in one
// transaction, returning the stored due date. It returns sql.ErrNoRows when the request is no
// longer pending or the task's end date changed since it was read; the task is then untouched.
func (r *ExtensionRepository) Approve(ctx context.Context, approval models.ExtensionApproval) (newDue time.Time, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin approval transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const taskQuery = `UPDATE tasks SET end_date = $2, updated_at = $3
        WHERE id = $1 AND end_date = $4 RETURNING end_date`
	if err = tx.GetContext(ctx, &newDue, taskQuery, approval.TaskID, approval.NewDueDate, approval.RespondedAt, approval.PreviousDueDate); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("extend task due date: %w", err)
	}

	const requestQuery = `UPDATE extension_requests SET status = 'approved', approved_days = $2, new_due_date = $3,
        response_note = $4, responded_at = $5 WHERE id = $1 AND status = 'pending'`
	res, err := tx.ExecContext(ctx, requestQuery, approval.RequestID, approval.ApprovedDays, newDue, approval.ResponseNote, approval.RespondedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("approve extension request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("check approved rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return time.Time{}, err
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit approval: %w", err)
	}
	return newDue, nil
}

// CountPending returns pending requests on a teacher's tasks.
func (r *ExtensionRepository) CountPending(ctx context.Context, teacherID string) (int, error) {
	const query = `SELECT COUNT(*) FROM extension_requests er JOIN tasks t ON t.id = er.task_id
        WHERE t.teacher_id = $1 AND er.status = 'pending'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count pending extensions: %w", err)
	}
	return count, nil
}
