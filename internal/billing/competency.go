package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCompetency = errors.New("billing: invalid competency, use YYYY-MM")

// Competency is a calendar-month billing period.
type Competency struct {
	Year  int
	Month time.Month
}

// ParseCompetency accepts "YYYY-MM" or "YYYY-MM-01".
func ParseCompetency(raw string) (Competency, error) {
	s := strings.TrimSpace(raw)
	switch {
	case len(s) == 7:
	case len(s) == 10 && strings.HasSuffix(s, "-01"):
		s = s[:7]
	default:
		return Competency{}, fmt.Errorf("%w: %q", ErrInvalidCompetency, raw)
	}

	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Competency{}, fmt.Errorf("%w: %q", ErrInvalidCompetency, raw)
	}
	return Competency{Year: t.Year(), Month: t.Month()}, nil
}

// CompetencyOf returns the month containing t.
func CompetencyOf(t time.Time) Competency {
	return Competency{Year: t.Year(), Month: t.Month()}
}

// PreviousCompetency returns the month before the one containing today.
func PreviousCompetency(today time.Time) Competency {
	return CompetencyOf(today).Prev()
}

func (c Competency) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

func (c Competency) IsZero() bool {
	return c.Year == 0 && c.Month == 0
}

func (c Competency) Next() Competency {
	if c.Month == time.December {
		return Competency{Year: c.Year + 1, Month: time.January}
	}
	return Competency{Year: c.Year, Month: c.Month + 1}
}

func (c Competency) Prev() Competency {
	if c.Month == time.January {
		return Competency{Year: c.Year - 1, Month: time.December}
	}
	return Competency{Year: c.Year, Month: c.Month - 1}
}

func (c Competency) Before(o Competency) bool {
	if c.Year != o.Year {
		return c.Year < o.Year
	}
	return c.Month < o.Month
}

// FirstDay returns midnight UTC on the first day of the month.
func (c Competency) FirstDay() time.Time {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the number of days in the month.
func (c Competency) LastDay() int {
	return c.FirstDay().AddDate(0, 1, -1).Day()
}

// Contains reports whether t falls inside the month (by calendar date).
func (c Competency) Contains(t time.Time) bool {
	return t.Year() == c.Year && t.Month() == c.Month
}

// DueDate places day inside the month, clamped to its last day. Days outside
// 1..31 yield no due date.
func (c Competency) DueDate(day int) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(c.Year, c.Month, min(day, c.LastDay()), 0, 0, 0, 0, time.UTC), true
}

// Months lists every month from start through end inclusive. It is empty when
// end precedes start.
func Months(start, end Competency) []Competency {
	var out []Competency
	for c := start; !end.Before(c); c = c.Next() {
		out = append(out, c)
	}
	return out
}

// ExternalReference is the reference sent to the gateway for a student's
// competency. ParseExternalReference reverses it.
func ExternalReference(studentID uuid.UUID, c Competency) string {
	return "student:" + studentID.String() + ":" + c.String()
}

func ParseExternalReference(ref string) (uuid.UUID, Competency, bool) {
	parts := strings.Split(ref, ":")
	if len(parts) != 3 || parts[0] != "student" {
		return uuid.Nil, Competency{}, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, Competency{}, false
	}
	c, err := ParseCompetency(parts[2])
	if err != nil {
		return uuid.Nil, Competency{}, false
	}
	return id, c, true
}
