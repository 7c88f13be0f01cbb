package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type fakeQuestionRepo struct {
	questions  map[string]*models.Question
	responses  []*models.QuestionResponse
	lastFilter models.QuestionFilter
}

func (f *fakeQuestionRepo) Create(_ context.Context, q *models.Question) error {
	q.ID = "question-new"
	q.Status = models.QuestionOpen
	f.questions[q.ID] = q
	return nil
}

func (f *fakeQuestionRepo) FindByID(_ context.Context, id string) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionRepo) List(_ context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	f.lastFilter = filter
	return nil, 0, nil
}

func (f *fakeQuestionRepo) ListResponses(context.Context, string) ([]models.QuestionResponse, error) {
	return nil, nil
}

func (f *fakeQuestionRepo) AddResponse(_ context.Context, resp *models.QuestionResponse, status models.QuestionStatus) error {
	f.responses = append(f.responses, resp)
	f.questions[resp.QuestionID].Status = status
	return nil
}

func newQuestionFixture() (*QuestionService, *fakeQuestionRepo) {
	repo := &fakeQuestionRepo{questions: map[string]*models.Question{
		"q-1": {ID: "q-1", StudentID: "student-1", TeacherID: "teacher-1", Title: "Limits", Status: models.QuestionOpen},
	}}
	return NewQuestionService(repo, newTestAccess(), &recordingInvalidator{}, nil, nil), repo
}

func TestQuestionServiceAskRoutesToOwnTeacher(t *testing.T) {
	svc, _ := newQuestionFixture()

	q, err := svc.Ask(context.Background(), "student-3", AskQuestionRequest{Title: " Vectors ", Content: "How?"})
	require.NoError(t, err)
	assert.Equal(t, "teacher-2", q.TeacherID)
	assert.Equal(t, "Vectors", q.Title)

	_, err = svc.Ask(context.Background(), "student-3", AskQuestionRequest{Title: "", Content: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestQuestionServiceRespondUpdatesStatus(t *testing.T) {
	svc, repo := newQuestionFixture()
	ctx := context.Background()

	resp, err := svc.Respond(ctx, claimsFor(models.RoleTeacher, "teacher-1"), "q-1", RespondQuestionRequest{Content: "Use the definition."})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, resp.AuthorRole)
	assert.Equal(t, models.QuestionAnswered, repo.questions["q-1"].Status)

	_, err = svc.Respond(ctx, claimsFor(models.RoleStudent, "student-1"), "q-1", RespondQuestionRequest{Content: "Still stuck"})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionOpen, repo.questions["q-1"].Status)

	_, err = svc.Respond(ctx, claimsFor(models.RoleTeacher, "teacher-2"), "q-1", RespondQuestionRequest{Content: "hi"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Respond(ctx, claimsFor(models.RoleAdmin, "admin-1"), "q-1", RespondQuestionRequest{Content: "hi"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Len(t, repo.responses, 2)
}

func TestQuestionServiceThreadVisibility(t *testing.T) {
	svc, repo := newQuestionFixture()
	ctx := context.Background()

	thread, err := svc.Get(ctx, claimsFor(models.RoleStudent, "student-1"), "q-1")
	require.NoError(t, err)
	assert.NotNil(t, thread.Responses)

	_, err = svc.Get(ctx, claimsFor(models.RoleStudent, "student-2"), "q-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.List(ctx, claimsFor(models.RoleTeacher, "teacher-1"), models.QuestionFilter{StudentID: "student-9", Status: models.QuestionOpen})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", repo.lastFilter.TeacherID)
	assert.Equal(t, models.QuestionOpen, repo.lastFilter.Status)
}
