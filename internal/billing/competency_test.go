package billing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mentorpro/internal/billing"
)

func month(y int, m time.Month) billing.Competency {
	return billing.Competency{Year: y, Month: m}
}

func TestParseCompetency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    billing.Competency
		wantErr bool
	}{
		{in: "2025-03", want: month(2025, time.March)},
		{in: "2025-03-01", want: month(2025, time.March)},
		{in: " 2024-12 ", want: month(2024, time.December)},
		{in: "2025-03-15", wantErr: true},
		{in: "2025-13", wantErr: true},
		{in: "03/2025", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := billing.ParseCompetency(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, billing.ErrInvalidCompetency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompetency_NextPrevWrapYears(t *testing.T) {
	t.Parallel()

	assert.Equal(t, month(2026, time.January), month(2025, time.December).Next())
	assert.Equal(t, month(2024, time.December), month(2025, time.January).Prev())
	assert.Equal(t, month(2025, time.February), billing.PreviousCompetency(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-02", month(2025, time.February).String())
}

func TestCompetency_DueDateClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    billing.Competency
		day  int
		want string
		ok   bool
	}{
		{name: "plain", c: month(2025, time.March), day: 10, want: "2025-03-10", ok: true},
		{name: "february", c: month(2025, time.February), day: 31, want: "2025-02-28", ok: true},
		{name: "leap february", c: month(2024, time.February), day: 30, want: "2024-02-29", ok: true},
		{name: "april", c: month(2025, time.April), day: 31, want: "2025-04-30", ok: true},
		{name: "zero", c: month(2025, time.April), day: 0},
		{name: "too large", c: month(2025, time.April), day: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.c.DueDate(tt.day)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format(time.DateOnly))
			}
		})
	}
}

func TestMonths(t *testing.T) {
	t.Parallel()

	got := billing.Months(month(2024, time.November), month(2025, time.February))
	want := []billing.Competency{
		month(2024, time.November), month(2024, time.December),
		month(2025, time.January), month(2025, time.February),
	}
	assert.Equal(t, want, got)

	assert.Empty(t, billing.Months(month(2025, time.March), month(2025, time.February)))
	assert.Len(t, billing.Months(month(2025, time.March), month(2025, time.March)), 1)
}

func TestExternalReference_RoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ref := billing.ExternalReference(id, month(2025, time.May))
	assert.Equal(t, "student:"+id.String()+":2025-05", ref)

	gotID, gotC, ok := billing.ParseExternalReference(ref)
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, month(2025, time.May), gotC)

	for _, bad := range []string{"", "student:nope:2025-05", "order:" + id.String() + ":2025-05", "student:" + id.String()} {
		_, _, ok := billing.ParseExternalReference(bad)
		assert.False(t, ok, bad)
	}
}
