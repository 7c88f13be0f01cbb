package service

import (
	"fmt"
	"time"

	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

// wrongPerPenalty is how many wrong answers cancel one correct answer.
const wrongPerPenalty = 4

// ValidateAnswerCounts checks the counts of a test against its expected size. The checks run
// in a fixed order: presence, sum, sign.
func ValidateAnswerCounts(testCount int, correct, wrong, blank *int) error {
	if correct == nil || wrong == nil || blank == nil {
		return appErrors.Clone(appErrors.ErrCountsRequired, "")
	}
	sum := *correct + *wrong + *blank
	if sum != testCount {
		return appErrors.Clone(appErrors.ErrSumMismatch, fmt.Sprintf("answer counts add up to %d, expected %d", sum, testCount))
	}
	if *correct < 0 || *wrong < 0 || *blank < 0 {
		return appErrors.Clone(appErrors.ErrNegativeCounts, "")
	}
	return nil
}

// NetScore applies the wrong-answer penalty and clamps at zero.
func NetScore(correct, wrong int) int {
	net := correct - wrong/wrongPerPenalty
	if net < 0 {
		return 0
	}
	return net
}

// DueInstant is the last millisecond of the end date's calendar day in loc.
func DueInstant(endDate time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := endDate.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}

// ExtendDue moves endDate forward by days calendar days in loc, keeping its wall-clock time
// across daylight-saving changes.
func ExtendDue(endDate time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return endDate.In(loc).AddDate(0, 0, days)
}

// IsLate reports whether now is strictly after the due instant of endDate.
func IsLate(now, endDate time.Time, loc *time.Location) bool {
	return now.After(DueInstant(endDate, loc))
}

// dayBounds returns [midnight, next midnight) of t's calendar day in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// parseDate accepts either a calendar date, interpreted as midnight in loc, or an RFC 3339 timestamp.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}
