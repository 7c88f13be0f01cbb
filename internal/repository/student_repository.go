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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentSelect = `SELECT s.id, s.teacher_id, s.class_id, s.grade_level, s.phone, s.created_at, s.updated_at,
        u.email, u.full_name, u.active, c.name AS class_name, tu.full_name AS teacher_name
        FROM students s
        JOIN users u ON u.id = s.id
        JOIN users tu ON tu.id = s.teacher_id
        LEFT JOIN classes c ON c.id = s.class_id`

// Create inserts the user and student rows in one transaction.
func (r *StudentRepository) Create(ctx context.Context, user *models.User, student *models.Student) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUserTx(ctx, tx, user); err != nil {
		return err
	}
	student.ID = user.ID
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, teacher_id, class_id, grade_level, phone, created_at, updated_at)
        VALUES (:id, :teacher_id, :class_id, :grade_level, :phone, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of upd. sql.ErrNoRows means the student does not exist.
func (r *StudentRepository) Update(ctx context.Context, id string, upd models.StudentUpdate) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students
        SET class_id = COALESCE($2, class_id), grade_level = COALESCE($3, grade_level), phone = COALESCE($4, phone), updated_at = $5
        WHERE id = $1`, id, upd.ClassID, upd.GradeLevel, upd.Phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"full_name":  "u.full_name",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", studentSelect, where, column, order, limit, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM students s JOIN users u ON u.id = s.id" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, studentSelect+` WHERE s.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &detail, nil
}

// TeacherOf returns the owning teacher of a student.
func (r *StudentRepository) TeacherOf(ctx context.Context, studentID string) (string, error) {
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, `SELECT teacher_id FROM students WHERE id = $1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find student teacher: %w", err)
	}
	return teacherID, nil
}

// CountOwned returns how many of the provided student IDs belong to the teacher.
func (r *StudentRepository) CountOwned(ctx context.Context, teacherID string, studentIDs []string) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(DISTINCT id) FROM students WHERE teacher_id = ? AND id IN (?)`, teacherID, studentIDs)
	if err != nil {
		return 0, fmt.Errorf("build owned students query: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count owned students: %w", err)
	}
	return count, nil
}

// CountByTeacher returns the number of students owned by a teacher.
func (r *StudentRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE teacher_id = $1`, teacherID); err != nil {
		return 0, fmt.Errorf("count teacher students: %w", err)
	}
	return count, nil
}
