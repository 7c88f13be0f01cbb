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

// TeacherRepository manages teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherSelect = `SELECT t.id, t.phone, t.branch, t.created_at, t.updated_at, u.email, u.full_name, u.active,
        (SELECT COUNT(*) FROM students s WHERE s.teacher_id = t.id) AS student_count
        FROM teachers t JOIN users u ON u.id = t.id`

// Create inserts the user and teacher rows in one transaction.
func (r *TeacherRepository) Create(ctx context.Context, user *models.User, teacher *models.Teacher) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUserTx(ctx, tx, user); err != nil {
		return err
	}
	teacher.ID = user.ID
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, phone, branch, created_at, updated_at) VALUES (:id, :phone, :branch, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher: %w", err)
	}
	return nil
}

// FindByID returns the teacher detail.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	var detail models.TeacherDetail
	if err := r.db.GetContext(ctx, &detail, teacherSelect+` WHERE t.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &detail, nil
}

// Update applies the non-nil fields of upd. Deactivation also revokes the teacher's sessions.
// sql.ErrNoRows is returned when the teacher does not exist.
func (r *TeacherRepository) Update(ctx context.Context, id string, upd models.TeacherUpdate) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE teachers SET phone = COALESCE($2, phone), branch = COALESCE($3, branch), updated_at = $4 WHERE id = $1`,
		id, upd.Phone, upd.Branch, now)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = sql.ErrNoRows
		return err
	}
	if upd.Active != nil {
		if _, err = tx.ExecContext(ctx, `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`, id, *upd.Active, now); err != nil {
			return fmt.Errorf("update teacher account: %w", err)
		}
		if !*upd.Active {
			if _, err = tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, id, now); err != nil {
				return fmt.Errorf("revoke teacher sessions: %w", err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher update: %w", err)
	}
	return nil
}

// List returns teachers ordered by name.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where += fmt.Sprintf(" AND (LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args), len(args))
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	var teachers []models.TeacherDetail
	query := fmt.Sprintf("%s%s ORDER BY u.full_name ASC LIMIT %d OFFSET %d", teacherSelect, where, limit, offset)
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers t JOIN users u ON u.id = t.id"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}
