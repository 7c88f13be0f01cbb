package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

func TestQuestionRepositoryAddResponseUpdatesStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO question_responses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("question-1", models.QuestionAnswered, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp := &models.QuestionResponse{QuestionID: "question-1", AuthorID: "teacher-1", AuthorRole: models.RoleTeacher, Content: "Use the formula"}
	require.NoError(t, repo.AddResponse(context.Background(), resp, models.QuestionAnswered))
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryAddResponseRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO question_responses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE questions SET status").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.AddResponse(context.Background(), &models.QuestionResponse{QuestionID: "question-1"}, models.QuestionOpen)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryCountOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM questions WHERE teacher_id = $1 AND status = 'open'")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountOpen(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
