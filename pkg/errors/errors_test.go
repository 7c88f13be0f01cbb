package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestFromDatabaseTranslatesPostgresCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"unique violation", &pq.Error{Code: "23505"}, ErrConflict.Code, http.StatusConflict},
		{"foreign key violation", fmt.Errorf("insert task: %w", &pq.Error{Code: "23503"}), ErrNotFound.Code, http.StatusNotFound},
		{"check violation", &pq.Error{Code: "23514"}, ErrValidation.Code, http.StatusBadRequest},
		{"no rows", sql.ErrNoRows, ErrNotFound.Code, http.StatusNotFound},
		{"unknown", errors.New("boom"), ErrInternal.Code, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDatabase(tc.err, "failed")
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.Status)
		})
	}
}

func TestFromDatabaseKeepsDomainErrors(t *testing.T) {
	domain := Clone(ErrAlreadyCompleted, "task already completed")
	assert.Same(t, domain, FromDatabase(domain, "ignored"))
}

func TestClonedErrorsMatchTemplate(t *testing.T) {
	err := fmt.Errorf("complete: %w", Clone(ErrSumMismatch, "sum is 12, expected 14"))
	assert.True(t, errors.Is(err, ErrSumMismatch))
	assert.False(t, errors.Is(err, ErrNegativeCounts))
}
