package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

func ptr(v int) *int { return &v }

func TestNetScore(t *testing.T) {
	assert.Equal(t, 9, NetScore(10, 4))
	assert.Equal(t, 0, NetScore(2, 20))
	assert.Equal(t, 5, NetScore(5, 3))
	assert.Equal(t, 0, NetScore(0, 0))
}

func TestValidateAnswerCountsOrder(t *testing.T) {
	cases := []struct {
		name                   string
		correct, wrong, blank *int
		want                   *appErrors.Error
	}{
		{"missing blank", ptr(10), ptr(4), nil, appErrors.ErrCountsRequired},
		{"sum mismatch", ptr(10), ptr(4), ptr(1), appErrors.ErrSumMismatch},
		{"negative but sums", ptr(16), ptr(-2), ptr(0), appErrors.ErrNegativeCounts},
		{"negative and wrong sum reports sum", ptr(-1), ptr(0), ptr(0), appErrors.ErrSumMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAnswerCounts(14, tc.correct, tc.wrong, tc.blank)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
	assert.NoError(t, ValidateAnswerCounts(14, ptr(10), ptr(4), ptr(0)))
}

func TestSumMismatchReportsTotals(t *testing.T) {
	err := ValidateAnswerCounts(14, ptr(10), ptr(4), ptr(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "16")
	assert.Contains(t, err.Error(), "14")
}

func TestIsLateBoundary(t *testing.T) {
	loc := time.UTC
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	assert.False(t, IsLate(time.Date(2024, 5, 1, 23, 59, 59, 0, loc), end, loc))
	assert.False(t, IsLate(time.Date(2024, 5, 1, 23, 59, 59, int(999*time.Millisecond), loc), end, loc))
	assert.True(t, IsLate(time.Date(2024, 5, 2, 0, 0, 0, int(time.Millisecond), loc), end, loc))
}

func TestDueInstantUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	due := DueInstant(end, loc)
	assert.Equal(t, time.Date(2024, 5, 1, 20, 59, 59, int(999*time.Millisecond), time.UTC), due.UTC())
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	d, err := parseDate("2024-05-01", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 21, 0, 0, 0, time.UTC), d.UTC())

	_, err = parseDate("01/05/2024", loc)
	assert.Error(t, err)
}

func TestExtendDueKeepsCalendarDays(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-11-03 has 25 hours in New York.
	got := ExtendDue(time.Date(2024, 11, 2, 0, 0, 0, 0, newYork).UTC(), 3, newYork)
	assert.True(t, got.Equal(time.Date(2024, 11, 5, 0, 0, 0, 0, newYork)), "got %s", got)
	assert.NotEqual(t, 72*time.Hour, got.Sub(time.Date(2024, 11, 2, 0, 0, 0, 0, newYork)))

	got = ExtendDue(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 3, time.UTC)
	assert.True(t, got.Equal(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)))
}
