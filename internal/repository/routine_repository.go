package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

const routineColumns = `id, teacher_id, subject_id, name, type, test_count, frequency, day_of_week, day_of_month, time, is_active, created_at, updated_at`

// RoutineRepository persists routine task templates and materialises them into tasks.
type RoutineRepository struct {
	db *sqlx.DB
}

// NewRoutineRepository constructs a RoutineRepository.
func NewRoutineRepository(db *sqlx.DB) *RoutineRepository {
	return &RoutineRepository{db: db}
}

// Create inserts a routine and its target students in one transaction.
func (r *RoutineRepository) Create(ctx context.Context, routine *models.RoutineTask) (err error) {
	if routine.ID == "" {
		routine.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin routine transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO routine_tasks (` + routineColumns + `)
        VALUES (:id, :teacher_id, :subject_id, :name, :type, :test_count, :frequency, :day_of_week, :day_of_month, :time, :is_active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, routine); err != nil {
		return fmt.Errorf("create routine: %w", err)
	}
	if err = replaceRoutineStudents(ctx, tx, routine.ID, routine.StudentIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit routine: %w", err)
	}
	return nil
}

// Update rewrites a routine owned by the teacher and replaces its students.
func (r *RoutineRepository) Update(ctx context.Context, routine *models.RoutineTask) (err error) {
	routine.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin routine transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE routine_tasks SET subject_id = :subject_id, name = :name, type = :type, test_count = :test_count,
        frequency = :frequency, day_of_week = :day_of_week, day_of_month = :day_of_month, time = :time,
        is_active = :is_active, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	res, err := tx.NamedExecContext(ctx, query, routine)
	if err != nil {
		return fmt.Errorf("update routine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated routine rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = replaceRoutineStudents(ctx, tx, routine.ID, routine.StudentIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit routine: %w", err)
	}
	return nil
}

func replaceRoutineStudents(ctx context.Context, tx *sqlx.Tx, routineID string, studentIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM routine_task_students WHERE routine_task_id = $1`, routineID); err != nil {
		return fmt.Errorf("clear routine students: %w", err)
	}
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO routine_task_students (routine_task_id, student_id) VALUES ($1, $2)`, routineID, studentID); err != nil {
			return fmt.Errorf("add routine student: %w", err)
		}
	}
	return nil
}

// Delete removes a routine owned by the teacher.
func (r *RoutineRepository) Delete(ctx context.Context, teacherID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routine_tasks WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted routine rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a routine with its student IDs.
func (r *RoutineRepository) FindByID(ctx context.Context, id string) (*models.RoutineTask, error) {
	var routine models.RoutineTask
	if err := r.db.GetContext(ctx, &routine, `SELECT `+routineColumns+` FROM routine_tasks WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find routine: %w", err)
	}
	routines := []models.RoutineTask{routine}
	if err := r.attachStudents(ctx, routines); err != nil {
		return nil, err
	}
	return &routines[0], nil
}

// List returns routines of a teacher, or every routine when teacherID is empty.
func (r *RoutineRepository) List(ctx context.Context, teacherID string) ([]models.RoutineTask, error) {
	query := `SELECT ` + routineColumns + ` FROM routine_tasks`
	var args []interface{}
	if teacherID != "" {
		query += ` WHERE teacher_id = $1`
		args = append(args, teacherID)
	}
	query += ` ORDER BY created_at DESC`
	var routines []models.RoutineTask
	if err := r.db.SelectContext(ctx, &routines, query, args...); err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	if err := r.attachStudents(ctx, routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// ListDue returns active routines whose recurrence matches the day.
func (r *RoutineRepository) ListDue(ctx context.Context, match models.RoutineMatch) ([]models.RoutineTask, error) {
	args := []interface{}{match.Weekday}
	recurrence := `(frequency = 'weekly' AND day_of_week = $1)`
	if match.MatchMonthly {
		args = append(args, match.DayOfMonth)
		recurrence = fmt.Sprintf(`(%s OR (frequency = 'monthly' AND day_of_month = $%d))`, recurrence, len(args))
	}
	query := `SELECT ` + routineColumns + ` FROM routine_tasks WHERE is_active = TRUE AND ` + recurrence
	if match.TeacherID != "" {
		args = append(args, match.TeacherID)
		query += fmt.Sprintf(` AND teacher_id = $%d`, len(args))
	}
	query += ` ORDER BY created_at ASC`

	var routines []models.RoutineTask
	if err := r.db.SelectContext(ctx, &routines, query, args...); err != nil {
		return nil, fmt.Errorf("list due routines: %w", err)
	}
	if err := r.attachStudents(ctx, routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (r *RoutineRepository) attachStudents(ctx context.Context, routines []models.RoutineTask) error {
	if len(routines) == 0 {
		return nil
	}
	ids := make([]string, len(routines))
	index := make(map[string]int, len(routines))
	for i := range routines {
		ids[i] = routines[i].ID
		index[routines[i].ID] = i
		routines[i].StudentIDs = []string{}
	}
	query, args, err := sqlx.In(`SELECT routine_task_id, student_id FROM routine_task_students WHERE routine_task_id IN (?) ORDER BY student_id`, ids)
	if err != nil {
		return fmt.Errorf("build routine students query: %w", err)
	}
	var rows []struct {
		RoutineID string `db:"routine_task_id"`
		StudentID string `db:"student_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list routine students: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.RoutineID]; ok {
			routines[i].StudentIDs = append(routines[i].StudentIDs, row.StudentID)
		}
	}
	return nil
}

// Materialize creates the day's tasks for a routine unless they already exist. The routine is
// locked for the transaction so concurrent sweeps cannot both pass the duplicate check.
// skipped is true when tasks for the day were already present.
func (r *RoutineRepository) Materialize(ctx context.Context, routine models.RoutineTask, dayStart, dayEnd time.Time, tasks []models.Task) (created int, skipped bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin materialize transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM routine_tasks WHERE id = $1 FOR UPDATE`, routine.ID); err != nil {
		return 0, false, fmt.Errorf("lock routine: %w", err)
	}

	const existsQuery = `SELECT COUNT(*) FROM tasks WHERE teacher_id = $1 AND description = $2
        AND subject_id IS NOT DISTINCT FROM $3 AND start_date >= $4 AND start_date < $5`
	var existing int
	if err = tx.GetContext(ctx, &existing, existsQuery, routine.TeacherID, routine.Name, routine.SubjectID, dayStart, dayEnd); err != nil {
		return 0, false, fmt.Errorf("check materialized tasks: %w", err)
	}
	if existing > 0 {
		if err = tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("commit materialize: %w", err)
		}
		return 0, true, nil
	}

	for i := range tasks {
		if err = insertTask(ctx, tx, &tasks[i]); err != nil {
			return 0, false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit materialize: %w", err)
	}
	return len(tasks), false, nil
}
