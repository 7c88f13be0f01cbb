package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

func TestStudentRepositoryCreateWritesUserAndProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Email: "ayse@example.com", FullName: "Ayşe", Role: models.RoleStudent, Active: true}
	student := &models.Student{TeacherID: "teacher-1"}
	require.NoError(t, repo.Create(context.Background(), user, student))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, user.ID, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRollsBackOnProfileFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "x@example.com"}, &models.Student{TeacherID: "missing"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountOwnedExpandsIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT id) FROM students WHERE teacher_id = $1 AND id IN ($2, $3)")).
		WithArgs("teacher-1", "student-1", "student-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountOwned(context.Background(), "teacher-1", []string{"student-1", "student-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountOwnedEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	count, err := repo.CountOwned(context.Background(), "teacher-1", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListScopesToTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`(?s)FROM students s.*WHERE 1=1 AND s\.teacher_id = \$1 AND \(LOWER\(u\.full_name\) LIKE \$2.*ORDER BY u\.full_name ASC LIMIT 20 OFFSET 0`).
		WithArgs("teacher-1", "%ay%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "email", "full_name"}).AddRow("student-1", "teacher-1", "ayse@example.com", "Ayşe"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s JOIN users u ON u.id = s.id WHERE 1=1 AND s.teacher_id = $1")).
		WithArgs("teacher-1", "%ay%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{TeacherID: "teacher-1", Search: "Ay", SortBy: "full_name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "Ayşe", students[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)
	grade := "10"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students")).
		WithArgs("s1", nil, "10", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), "s1", models.StudentUpdate{GradeLevel: &grade}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), "ghost", models.StudentUpdate{GradeLevel: &grade})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
