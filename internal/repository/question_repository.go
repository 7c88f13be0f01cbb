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

const questionColumns = `id, student_id, teacher_id, subject_id, title, content, status, created_at, updated_at`

// QuestionRepository persists question threads.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs a QuestionRepository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts an open question.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.Status = models.QuestionOpen
	const query = `INSERT INTO questions (` + questionColumns + `)
        VALUES (:id, :student_id, :teacher_id, :subject_id, :title, :content, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// FindByID fetches a question.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := r.db.GetContext(ctx, &q, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &q, nil
}

// List returns questions matching the filter, newest first.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	var questions []models.Question
	query := fmt.Sprintf("SELECT %s FROM questions%s ORDER BY created_at DESC LIMIT %d OFFSET %d", questionColumns, where, limit, offset)
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM questions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}
	return questions, total, nil
}

// ListResponses returns the thread replies in posting order.
func (r *QuestionRepository) ListResponses(ctx context.Context, questionID string) ([]models.QuestionResponse, error) {
	const query = `SELECT qr.id, qr.question_id, qr.author_id, qr.author_role, u.full_name AS author_name, qr.content, qr.created_at
        FROM question_responses qr JOIN users u ON u.id = qr.author_id
        WHERE qr.question_id = $1 ORDER BY qr.created_at ASC`
	var responses []models.QuestionResponse
	if err := r.db.SelectContext(ctx, &responses, query, questionID); err != nil {
		return nil, fmt.Errorf("list question responses: %w", err)
	}
	return responses, nil
}

// AddResponse stores a reply and updates the question status in one transaction.
func (r *QuestionRepository) AddResponse(ctx context.Context, resp *models.QuestionResponse, status models.QuestionStatus) (err error) {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin response transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO question_responses (id, question_id, author_id, author_role, content, created_at)
        VALUES (:id, :question_id, :author_id, :author_role, :content, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, resp); err != nil {
		return fmt.Errorf("create question response: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE questions SET status = $2, updated_at = $3 WHERE id = $1`, resp.QuestionID, status, resp.CreatedAt); err != nil {
		return fmt.Errorf("update question status: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit question response: %w", err)
	}
	return nil
}

// CountOpen returns open questions addressed to a teacher.
func (r *QuestionRepository) CountOpen(ctx context.Context, teacherID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM questions WHERE teacher_id = $1 AND status = 'open'`, teacherID); err != nil {
		return 0, fmt.Errorf("count open questions: %w", err)
	}
	return count, nil
}
