package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

// fakeOwnership maps student ids to their teacher.
type fakeOwnership struct {
	owners map[string]string
}

func (f *fakeOwnership) TeacherOf(_ context.Context, studentID string) (string, error) {
	owner, ok := f.owners[studentID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return owner, nil
}

func (f *fakeOwnership) CountOwned(_ context.Context, teacherID string, studentIDs []string) (int, error) {
	seen := map[string]struct{}{}
	for _, id := range studentIDs {
		if f.owners[id] == teacherID {
			seen[id] = struct{}{}
		}
	}
	return len(seen), nil
}

type fakeParents struct {
	parents map[string]*models.ParentDetail
}

func (f *fakeParents) FindByID(_ context.Context, id string) (*models.ParentDetail, error) {
	p, ok := f.parents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return r.err
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][2]string
}

func (r *recordingInvalidator) InvalidateDashboards(_ context.Context, teacherID, studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]string{teacherID, studentID})
}

func strPtr(v string) *string { return &v }

// newTestAccess: teacher-1 owns student-1 and student-2, teacher-2 owns student-3,
// parent-1 is linked to student-1 and parent-2 to nobody.
func newTestAccess() *AccessPolicy {
	return NewAccessPolicy(
		&fakeOwnership{owners: map[string]string{
			"student-1": "teacher-1",
			"student-2": "teacher-1",
			"student-3": "teacher-2",
		}},
		&fakeParents{parents: map[string]*models.ParentDetail{
			"parent-1": {Parent: models.Parent{ID: "parent-1", TeacherID: "teacher-1", StudentID: strPtr("student-1")}},
			"parent-2": {Parent: models.Parent{ID: "parent-2", TeacherID: "teacher-1"}},
		}},
	)
}

func claimsFor(role models.UserRole, id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role, FullName: string(role) + " " + id}
}

func TestAccessPolicyOwnership(t *testing.T) {
	access := newTestAccess()
	ctx := context.Background()

	assert.NoError(t, access.RequireOwnedStudent(ctx, "teacher-1", "student-1"))
	err := access.RequireOwnedStudent(ctx, "teacher-2", "student-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	err = access.RequireOwnedStudent(ctx, "teacher-1", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.NoError(t, access.RequireOwnedStudents(ctx, "teacher-1", []string{"student-1", "student-2", "student-1"}))
	err = access.RequireOwnedStudents(ctx, "teacher-1", []string{"student-1", "student-3"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAccessPolicyCanViewStudent(t *testing.T) {
	access := newTestAccess()
	ctx := context.Background()

	cases := []struct {
		name   string
		claims *models.JWTClaims
		target string
		ok     bool
	}{
		{"admin", claimsFor(models.RoleAdmin, "admin-1"), "student-3", true},
		{"owning teacher", claimsFor(models.RoleTeacher, "teacher-1"), "student-2", true},
		{"other teacher", claimsFor(models.RoleTeacher, "teacher-2"), "student-2", false},
		{"self", claimsFor(models.RoleStudent, "student-1"), "student-1", true},
		{"classmate", claimsFor(models.RoleStudent, "student-2"), "student-1", false},
		{"linked parent", claimsFor(models.RoleParent, "parent-1"), "student-1", true},
		{"unlinked child", claimsFor(models.RoleParent, "parent-1"), "student-2", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := access.CanViewStudent(ctx, tc.claims, tc.target)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, appErrors.ErrNotFound), "got %v", err)
		})
	}
}

func TestAccessPolicyScopeStudent(t *testing.T) {
	access := newTestAccess()
	ctx := context.Background()

	studentID, teacherID, err := access.ScopeStudent(ctx, claimsFor(models.RoleStudent, "student-2"), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-2", studentID)
	assert.Empty(t, teacherID)

	studentID, _, err = access.ScopeStudent(ctx, claimsFor(models.RoleParent, "parent-1"), "")
	require.NoError(t, err)
	assert.Equal(t, "student-1", studentID)

	_, _, err = access.ScopeStudent(ctx, claimsFor(models.RoleParent, "parent-2"), "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	studentID, teacherID, err = access.ScopeStudent(ctx, claimsFor(models.RoleTeacher, "teacher-1"), "")
	require.NoError(t, err)
	assert.Empty(t, studentID)
	assert.Equal(t, "teacher-1", teacherID)

	_, _, err = access.ScopeStudent(ctx, claimsFor(models.RoleTeacher, "teacher-1"), "student-3")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = access.ScopeStudent(ctx, nil, "")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
