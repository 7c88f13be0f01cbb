package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// ClassRepository reads and writes the class catalogue.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// classSelect carries per-class subject and student counts so the catalogue screen needs a
// single query.
const classSelect = `SELECT c.id, c.name, c.description, c.created_at,
        (SELECT COUNT(*) FROM subjects sb WHERE sb.class_id = c.id) AS subject_count,
        (SELECT COUNT(*) FROM students st WHERE st.class_id = c.id) AS student_count
        FROM classes c`

// List returns every class by name.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, classSelect+` ORDER BY c.name ASC`); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches one class. sql.ErrNoRows is returned unwrapped.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	err := r.db.GetContext(ctx, &class, classSelect+` WHERE c.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("find class %s: %w", id, err)
	}
	return &class, nil
}

// Create inserts a class; a duplicate name surfaces as a unique violation.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO classes (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		class.ID, class.Name, class.Description, class.CreatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}
