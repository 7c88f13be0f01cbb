package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type fakeExtensionRepo struct {
	requests map[string]*models.ExtensionRequestDetail
	tasks    *fakeTaskRepo
	created  []*models.ExtensionRequest
	pending  bool
	// raceLost makes the next write behave as if another responder got there first.
	raceLost bool
}

func (f *fakeExtensionRepo) Create(_ context.Context, req *models.ExtensionRequest) error {
	req.ID = "req-new"
	req.Status = models.ExtensionPending
	f.created = append(f.created, req)
	return nil
}

func (f *fakeExtensionRepo) FindDetail(_ context.Context, id string) (*models.ExtensionRequestDetail, error) {
	detail, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *detail
	return &copied, nil
}

func (f *fakeExtensionRepo) HasPending(context.Context, string, string) (bool, error) {
	return f.pending, nil
}

func (f *fakeExtensionRepo) List(context.Context, models.ExtensionFilter) ([]models.ExtensionRequestDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeExtensionRepo) Reject(_ context.Context, id string, note *string, respondedAt time.Time) error {
	detail := f.requests[id]
	if f.raceLost || detail.Status != models.ExtensionPending {
		return sql.ErrNoRows
	}
	detail.Status = models.ExtensionRejected
	detail.ResponseNote = note
	detail.RespondedAt = &respondedAt
	return nil
}

func (f *fakeExtensionRepo) Approve(_ context.Context, a models.ExtensionApproval) (time.Time, error) {
	detail := f.requests[a.RequestID]
	if f.raceLost || detail.Status != models.ExtensionPending {
		return time.Time{}, sql.ErrNoRows
	}
	task := f.tasks.tasks[a.TaskID]
	if !task.EndDate.Equal(a.PreviousDueDate) {
		return time.Time{}, sql.ErrNoRows
	}
	task.EndDate = a.NewDueDate
	detail.Status = models.ExtensionApproved
	detail.ApprovedDays = &a.ApprovedDays
	detail.NewDueDate = &task.EndDate
	return task.EndDate, nil
}

func newExtensionFixture(now time.Time) (*ExtensionService, *fakeExtensionRepo, *fakeTaskRepo, *recordingAudit) {
	tasks := newFakeTaskRepo(testSolvingTask())
	repo := &fakeExtensionRepo{
		tasks: tasks,
		requests: map[string]*models.ExtensionRequestDetail{
			"req-1": {
				ExtensionRequest: models.ExtensionRequest{
					ID: "req-1", TaskID: "task-1", StudentID: "student-1",
					Reason: "sick", RequestedDays: 5, Status: models.ExtensionPending,
				},
				TaskEndDate: tasks.tasks["task-1"].EndDate,
				TeacherID:   "teacher-1",
			},
		},
	}
	audit := &recordingAudit{}
	svc := NewExtensionService(repo, tasks, audit, &recordingInvalidator{}, nil, nil, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, repo, tasks, audit
}

func TestExtensionServiceApproveMovesDueDate(t *testing.T) {
	svc, repo, tasks, audit := newExtensionFixture(time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))

	detail, err := svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{
		Action: ExtensionActionApprove, ApprovedDays: ptr(3),
	})
	require.NoError(t, err)
	want := time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, models.ExtensionApproved, detail.Status)
	require.NotNil(t, detail.NewDueDate)
	assert.True(t, detail.NewDueDate.Equal(want))
	assert.True(t, tasks.tasks["task-1"].EndDate.Equal(want))
	assert.True(t, repo.requests["req-1"].NewDueDate.Equal(want))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionExtension, audit.logs[0].Action)
}

func TestExtensionServiceApproveAcrossDaylightSavingChange(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	svc, repo, tasks, _ := newExtensionFixture(time.Date(2024, 11, 3, 12, 0, 0, 0, newYork))
	svc.loc = newYork
	due := time.Date(2024, 11, 2, 0, 0, 0, 0, newYork)
	tasks.tasks["task-1"].EndDate = due
	repo.requests["req-1"].TaskEndDate = due

	detail, err := svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{
		Action: ExtensionActionApprove, ApprovedDays: ptr(3),
	})
	require.NoError(t, err)
	want := time.Date(2024, 11, 5, 0, 0, 0, 0, newYork)
	assert.True(t, detail.NewDueDate.Equal(want), "got %s", detail.NewDueDate.In(newYork))
	assert.Equal(t, "2024-11-05", DueInstant(tasks.tasks["task-1"].EndDate, newYork).Format("2006-01-02"))
}

func TestExtensionServiceRespondTwice(t *testing.T) {
	svc, _, tasks, _ := newExtensionFixture(time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))

	_, err := svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{Action: ExtensionActionReject})
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{
		Action: ExtensionActionApprove, ApprovedDays: ptr(3),
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict), "got %v", err)
	assert.True(t, tasks.tasks["task-1"].EndDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestExtensionServiceRespondLosesRace(t *testing.T) {
	svc, repo, _, audit := newExtensionFixture(time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))
	repo.raceLost = true

	_, err := svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{
		Action: ExtensionActionApprove, ApprovedDays: ptr(3),
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, audit.logs)
}

func TestExtensionServiceRespondValidation(t *testing.T) {
	svc, _, _, _ := newExtensionFixture(time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))

	_, err := svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{Action: ExtensionActionApprove})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Respond(context.Background(), "teacher-1", "req-1", RespondExtensionRequest{Action: "maybe"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Respond(context.Background(), "teacher-2", "req-1", RespondExtensionRequest{Action: ExtensionActionReject})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExtensionServiceRequest(t *testing.T) {
	svc, repo, _, _ := newExtensionFixture(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC))
	req := RequestExtensionRequest{Reason: "family trip", RequestedDays: 2}

	_, err := svc.Request(context.Background(), "student-1", "task-1", req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation), "task is not overdue yet")

	svc.now = func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC) }
	_, err = svc.Request(context.Background(), "student-2", "task-1", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	created, err := svc.Request(context.Background(), "student-1", "task-1", req)
	require.NoError(t, err)
	assert.Equal(t, models.ExtensionPending, created.Status)
	assert.Equal(t, 2, created.RequestedDays)

	repo.pending = true
	_, err = svc.Request(context.Background(), "student-1", "task-1", req)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}
