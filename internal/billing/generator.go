package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/domain"
)

var ErrNoPurchaseDate = errors.New("billing: student has no purchase date")

// GenerateOptions adjusts competency generation. Zero values fall back to the
// defaults: previous month, product price, student's due day.
type GenerateOptions struct {
	Until       Competency
	AmountCents *int64
	DueOn       *time.Time
}

// DueFor returns the student's due date inside c, if the student has a usable
// due day.
func DueFor(c Competency, st *domain.Student) *time.Time {
	if st.DueDay == nil {
		return nil
	}
	d, ok := c.DueDate(*st.DueDay)
	if !ok {
		return nil
	}
	return &d
}

// PlanCompetencies builds one pending record per month from the student's
// purchase month through until, leaving out months listed in existing. It
// returns the records to insert and how many months were skipped.
func PlanCompetencies(st *domain.Student, until Competency, existing map[string]bool, amount *int64, dueOverride *time.Time, now time.Time) ([]*domain.Payment, int, error) {
	if st.PurchasedOn == nil {
		return nil, 0, ErrNoPurchaseDate
	}

	var (
		planned []*domain.Payment
		skipped int
	)
	for _, c := range Months(CompetencyOf(*st.PurchasedOn), until) {
		key := c.String()
		if existing[key] {
			skipped++
			continue
		}

		due := dueOverride
		if due == nil {
			due = DueFor(c, st)
		}

		planned = append(planned, &domain.Payment{
			ID:                uuid.New(),
			TenantID:          st.TenantID,
			MentorID:          st.MentorID,
			StudentID:         st.ID,
			Competency:        key,
			DueOn:             due,
			AmountCents:       amount,
			Status:            domain.PaymentPending,
			Source:            domain.SourceManual,
			ExternalReference: ExternalReference(st.ID, c),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return planned, skipped, nil
}
