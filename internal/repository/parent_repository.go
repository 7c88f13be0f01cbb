package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// ParentRepository manages parent profiles.
type ParentRepository struct {
	db *sqlx.DB
}

// NewParentRepository constructs a ParentRepository.
func NewParentRepository(db *sqlx.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

const parentSelect = `SELECT p.id, p.teacher_id, p.student_id, p.phone, p.created_at, p.updated_at,
        u.email, u.full_name, u.active, su.full_name AS student_name
        FROM parents p
        JOIN users u ON u.id = p.id
        LEFT JOIN users su ON su.id = p.student_id`

// Create inserts the user and parent rows in one transaction.
func (r *ParentRepository) Create(ctx context.Context, user *models.User, parent *models.Parent) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin parent transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUserTx(ctx, tx, user); err != nil {
		return err
	}
	parent.ID = user.ID
	now := time.Now().UTC()
	parent.CreatedAt = now
	parent.UpdatedAt = now
	const query = `INSERT INTO parents (id, teacher_id, student_id, phone, created_at, updated_at)
        VALUES (:id, :teacher_id, :student_id, :phone, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit parent: %w", err)
	}
	return nil
}

// FindByID returns a parent detail.
func (r *ParentRepository) FindByID(ctx context.Context, id string) (*models.ParentDetail, error) {
	var detail models.ParentDetail
	if err := r.db.GetContext(ctx, &detail, parentSelect+` WHERE p.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find parent: %w", err)
	}
	return &detail, nil
}

// List returns parents matching the filter.
func (r *ParentRepository) List(ctx context.Context, filter models.ParentFilter) ([]models.ParentDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("p.teacher_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	var parents []models.ParentDetail
	query := fmt.Sprintf("%s%s ORDER BY u.full_name ASC LIMIT %d OFFSET %d", parentSelect, where, limit, offset)
	if err := r.db.SelectContext(ctx, &parents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list parents: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM parents p JOIN users u ON u.id = p.id"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count parents: %w", err)
	}
	return parents, total, nil
}
