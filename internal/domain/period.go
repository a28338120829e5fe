package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PeriodLayout is the wire format of a period: the first day of a month
const PeriodLayout = "2006-01-02"

var (
	yearMonthPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	fullDatePattern  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	periodPattern    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-01$`)
)

// PeriodResolver derives canonical first-of-month periods and rejects
// months or years outside the accepted range
type PeriodResolver struct {
	MinYear int
	MaxYear int
}

// NewPeriodResolver creates a PeriodResolver, falling back to the default
// year range when the bounds are unset or inverted
func NewPeriodResolver(minYear, maxYear int) PeriodResolver {
	if minYear <= 0 || maxYear <= 0 || minYear > maxYear {
		minYear, maxYear = DefaultPeriodMinYear, DefaultPeriodMaxYear
	}
	return PeriodResolver{MinYear: minYear, MaxYear: maxYear}
}

// FromYearMonth returns the period for a year/month pair
func (r PeriodResolver) FromYearMonth(year, month int) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	if year < r.MinYear || year > r.MaxYear {
		return time.Time{}, fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidPeriod, year, r.MinYear, r.MaxYear)
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// FromDate returns the period containing the calendar date of t
func (r PeriodResolver) FromDate(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidPeriod)
	}
	return r.FromYearMonth(t.Year(), int(t.Month()))
}

// Parse normalizes "YYYY-M", "YYYY-MM", "YYYY-MM-DD" or an RFC 3339
// timestamp into a period
func (r PeriodResolver) Parse(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidPeriod)
	}

	if m := yearMonthPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return r.FromYearMonth(year, month)
	}

	if m := fullDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 {
			return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
		}
		// Reject dates like 2025-02-30 instead of letting time.Date roll them over
		lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if day < 1 || day > lastDay {
			return time.Time{}, fmt.Errorf("%w: day %d out of range", ErrInvalidPeriod, day)
		}
		return r.FromYearMonth(year, month)
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return r.FromDate(t)
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized format %q", ErrInvalidPeriod, value)
}

// FormatPeriod renders a period in its wire format
func FormatPeriod(period time.Time) string {
	return period.Format(PeriodLayout)
}

// IsPeriod reports whether t is already a normalized period
func IsPeriod(t time.Time) bool {
	return t.Day() == 1 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// IsPeriodString reports whether s has the exact "YYYY-MM-01" shape
func IsPeriodString(s string) bool {
	return periodPattern.MatchString(s)
}

// NextPeriod returns the period n months after period
func NextPeriod(period time.Time, n int) time.Time {
	return time.Date(period.Year(), period.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}
