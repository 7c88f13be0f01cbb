package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
	"github.com/noah-isme/tutorhub-api/pkg/export"
)

type fakeTestResultRepo struct {
	created    []*models.TestResult
	rows       []models.TestResultDetail
	lastFilter models.TestResultFilter
}

func (f *fakeTestResultRepo) Create(_ context.Context, r *models.TestResult) error {
	f.created = append(f.created, r)
	return nil
}

func (f *fakeTestResultRepo) List(_ context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, int, error) {
	f.lastFilter = filter
	return f.rows, len(f.rows), nil
}

func (f *fakeTestResultRepo) ListAll(_ context.Context, filter models.TestResultFilter) ([]models.TestResultDetail, error) {
	f.lastFilter = filter
	return f.rows, nil
}

func newTestResultFixture() (*TestResultService, *fakeTestResultRepo) {
	repo := &fakeTestResultRepo{rows: []models.TestResultDetail{{
		TestResult: models.TestResult{
			StudentID: "student-1", Title: "Mock exam", TestCount: 14,
			CorrectAnswers: 10, WrongAnswers: 4, NetScore: 9,
			CompletedAt: time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC),
		},
		StudentName: "Deniz",
	}}}
	svc := NewTestResultService(repo, newTestAccess(), ExportRenderers{
		CSV:  export.NewCSVExporter(),
		XLSX: export.NewXLSXExporter("Results"),
		PDF:  export.NewPDFExporter("tutorhub"),
	}, &recordingInvalidator{}, nil, nil, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestTestResultServiceRecordScores(t *testing.T) {
	svc, repo := newTestResultFixture()
	student := "9e0c1b2a-3d4e-4f50-8a6b-7c8d9e0f1a2b"
	svc.access = NewAccessPolicy(&fakeOwnership{owners: map[string]string{student: "teacher-1"}}, &fakeParents{})
	req := RecordTestResultRequest{
		StudentID: student, Title: "Mock exam", TestCount: 22,
		CorrectAnswers: ptr(2), WrongAnswers: ptr(20), BlankAnswers: ptr(0),
		CompletedAt: "2024-04-30",
	}

	result, err := svc.Record(context.Background(), "teacher-1", req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NetScore)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), result.CompletedAt)
	assert.Len(t, repo.created, 1)

	req.BlankAnswers = ptr(1)
	_, err = svc.Record(context.Background(), "teacher-1", req)
	assert.True(t, errors.Is(err, appErrors.ErrSumMismatch))

	req.BlankAnswers = ptr(0)
	_, err = svc.Record(context.Background(), "teacher-2", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTestResultServiceExport(t *testing.T) {
	svc, repo := newTestResultFixture()

	file, err := svc.Export(context.Background(), claimsFor(models.RoleStudent, "student-1"), models.TestResultFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "test-results-20240502.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Student,Subject,Title,Questions,Correct,Wrong,Blank,Net", lines[0])
	assert.Equal(t, "2024-05-01,Deniz,,Mock exam,14,10,4,0,9", lines[1])
	assert.Equal(t, "student-1", repo.lastFilter.StudentID)

	file, err = svc.Export(context.Background(), claimsFor(models.RoleTeacher, "teacher-1"), models.TestResultFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "teacher-1", repo.lastFilter.TeacherID)

	file, err = svc.Export(context.Background(), claimsFor(models.RoleTeacher, "teacher-1"), models.TestResultFilter{}, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "test-results-20240502.xlsx", file.Filename)
	assert.True(t, strings.HasPrefix(string(file.Payload), "PK"))

	_, err = svc.Export(context.Background(), claimsFor(models.RoleTeacher, "teacher-1"), models.TestResultFilter{}, "docx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
