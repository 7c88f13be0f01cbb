package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type studentOwnerLookup interface {
	TeacherOf(ctx context.Context, studentID string) (string, error)
	CountOwned(ctx context.Context, teacherID string, studentIDs []string) (int, error)
}

type parentLookup interface {
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
}

// AccessPolicy answers ownership questions shared by every portal. Roles are enforced by the
// RBAC middleware; this type decides which rows a role may touch. Relationships are read from
// the store on every call, never from token claims.
type AccessPolicy struct {
	students studentOwnerLookup
	parents  parentLookup
}

// NewAccessPolicy constructs an AccessPolicy.
func NewAccessPolicy(students studentOwnerLookup, parents parentLookup) *AccessPolicy {
	return &AccessPolicy{students: students, parents: parents}
}

// RequireOwnedStudent fails with NOT_FOUND unless the student belongs to the teacher.
func (p *AccessPolicy) RequireOwnedStudent(ctx context.Context, teacherID, studentID string) error {
	owner, err := p.students.TeacherOf(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if owner != teacherID {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// RequireOwnedStudents checks a batch of students in one query.
func (p *AccessPolicy) RequireOwnedStudents(ctx context.Context, teacherID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		unique[id] = struct{}{}
	}
	count, err := p.students.CountOwned(ctx, teacherID, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify students")
	}
	if count != len(unique) {
		return appErrors.Clone(appErrors.ErrNotFound, "one or more students not found")
	}
	return nil
}

// TeacherOf returns the owning teacher of a student.
func (p *AccessPolicy) TeacherOf(ctx context.Context, studentID string) (string, error) {
	owner, err := p.students.TeacherOf(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return owner, nil
}

// LinkedStudent returns the student a parent is linked to.
func (p *AccessPolicy) LinkedStudent(ctx context.Context, parentID string) (string, error) {
	parent, err := p.parents.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent")
	}
	if parent.StudentID == nil || *parent.StudentID == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no student linked to parent")
	}
	return *parent.StudentID, nil
}

// CanViewStudent allows the owning teacher, the student, a linked parent and admins.
func (p *AccessPolicy) CanViewStudent(ctx context.Context, claims *models.JWTClaims, studentID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		return p.RequireOwnedStudent(ctx, claims.UserID, studentID)
	case models.RoleStudent:
		if claims.UserID == studentID {
			return nil
		}
	case models.RoleParent:
		linked, err := p.LinkedStudent(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if linked == studentID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// ScopeStudent resolves which student a read is about. Students are pinned to themselves and
// parents to their child; teachers and admins may pass any student they can view.
func (p *AccessPolicy) ScopeStudent(ctx context.Context, claims *models.JWTClaims, requested string) (studentID, teacherID string, err error) {
	if claims == nil {
		return "", "", appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleStudent:
		return claims.UserID, "", nil
	case models.RoleParent:
		linked, err := p.LinkedStudent(ctx, claims.UserID)
		if err != nil {
			return "", "", err
		}
		return linked, "", nil
	case models.RoleTeacher:
		if requested != "" {
			if err := p.RequireOwnedStudent(ctx, claims.UserID, requested); err != nil {
				return "", "", err
			}
		}
		return requested, claims.UserID, nil
	case models.RoleAdmin:
		return requested, "", nil
	}
	return "", "", appErrors.ErrForbidden
}
