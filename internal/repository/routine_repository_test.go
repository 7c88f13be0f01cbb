package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

var routineRowColumns = []string{"id", "teacher_id", "subject_id", "name", "type", "test_count", "frequency", "day_of_week", "day_of_month", "time", "is_active", "created_at", "updated_at"}

func TestRoutineRepositoryListDueWeeklyOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoutineRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = TRUE AND (frequency = 'weekly' AND day_of_week = $1) ORDER BY created_at ASC")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(routineRowColumns).AddRow("r1", "teacher-1", nil, "Daily reading", "reading", nil, "weekly", 3, nil, "16:00", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT routine_task_id, student_id FROM routine_task_students WHERE routine_task_id IN ($1)")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"routine_task_id", "student_id"}).AddRow("r1", "s1").AddRow("r1", "s2"))

	routines, err := repo.ListDue(context.Background(), models.RoutineMatch{Weekday: 3, DayOfMonth: 15})
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, []string{"s1", "s2"}, routines[0].StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineRepositoryListDueWithMonthly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoutineRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("((frequency = 'weekly' AND day_of_week = $1) OR (frequency = 'monthly' AND day_of_month = $2)) AND teacher_id = $3")).
		WithArgs(3, 15, "teacher-1").
		WillReturnRows(sqlmock.NewRows(routineRowColumns))

	routines, err := repo.ListDue(context.Background(), models.RoutineMatch{Weekday: 3, DayOfMonth: 15, MatchMonthly: true, TeacherID: "teacher-1"})
	require.NoError(t, err)
	assert.Empty(t, routines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineRepositoryMaterializeSkipsExistingDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoutineRepository(db)

	dayStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	routine := models.RoutineTask{ID: "r1", TeacherID: "teacher-1", Name: "Daily reading"}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("r1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
	mock.ExpectQuery(regexp.QuoteMeta("subject_id IS NOT DISTINCT FROM $3")).
		WithArgs("teacher-1", "Daily reading", nil, dayStart, dayEnd).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	created, skipped, err := repo.Materialize(context.Background(), routine, dayStart, dayEnd, []models.Task{{}, {}})
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutineRepositoryMaterializeCreatesTasks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoutineRepository(db)

	dayStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	routine := models.RoutineTask{ID: "r1", TeacherID: "teacher-1", Name: "Daily reading"}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tasks := []models.Task{{TeacherID: "teacher-1", StudentID: "s1"}, {TeacherID: "teacher-1", StudentID: "s2"}}
	created, skipped, err := repo.Materialize(context.Background(), routine, dayStart, dayStart.AddDate(0, 0, 1), tasks)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, 2, created)
	assert.Equal(t, models.TaskStatusPending, tasks[0].Status)
	assert.NotEmpty(t, tasks[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
