package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// ProgressRepository manages subject assignment and per-topic progress for students.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// AssignSubject links a subject to a student. Repeated assignment is a no-op.
func (r *ProgressRepository) AssignSubject(ctx context.Context, studentID, subjectID string) error {
	const query = `INSERT INTO student_subjects (student_id, subject_id, assigned_at) VALUES ($1, $2, $3)
        ON CONFLICT (student_id, subject_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, subjectID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign subject: %w", err)
	}
	return nil
}

// UnassignSubject removes a subject assignment.
func (r *ProgressRepository) UnassignSubject(ctx context.Context, studentID, subjectID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID)
	if err != nil {
		return fmt.Errorf("unassign subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check unassigned rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSubjects returns the subjects assigned to a student.
func (r *ProgressRepository) ListSubjects(ctx context.Context, studentID string) ([]models.StudentSubject, error) {
	const query = `SELECT ss.student_id, ss.subject_id, sb.name AS subject_name, ss.assigned_at
        FROM student_subjects ss JOIN subjects sb ON sb.id = ss.subject_id
        WHERE ss.student_id = $1 ORDER BY sb.name ASC`
	var subjects []models.StudentSubject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return subjects, nil
}

// IsAssigned reports whether the subject is assigned to the student.
func (r *ProgressRepository) IsAssigned(ctx context.Context, studentID, subjectID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2`, studentID, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject assignment: %w", err)
	}
	return true, nil
}

// UpsertProgress records the topic state for a student.
func (r *ProgressRepository) UpsertProgress(ctx context.Context, progress *models.StudentProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO student_progress (student_id, topic_id, status, completed_at, updated_at)
        VALUES (:student_id, :topic_id, :status, :completed_at, :updated_at)
        ON CONFLICT (student_id, topic_id) DO UPDATE SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// SubjectCounts returns topic totals and completions for each subject assigned to the student.
func (r *ProgressRepository) SubjectCounts(ctx context.Context, studentID string) ([]models.SubjectProgressCount, error) {
	const query = `SELECT sb.id AS subject_id, sb.name AS subject_name,
        COUNT(t.id) AS total_topics,
        COUNT(sp.topic_id) FILTER (WHERE sp.status = 'completed') AS completed_topics
        FROM student_subjects ss
        JOIN subjects sb ON sb.id = ss.subject_id
        LEFT JOIN topics t ON t.subject_id = sb.id
        LEFT JOIN student_progress sp ON sp.topic_id = t.id AND sp.student_id = ss.student_id
        WHERE ss.student_id = $1
        GROUP BY sb.id, sb.name
        ORDER BY sb.name ASC`
	var counts []models.SubjectProgressCount
	if err := r.db.SelectContext(ctx, &counts, query, studentID); err != nil {
		return nil, fmt.Errorf("progress counts: %w", err)
	}
	return counts, nil
}
