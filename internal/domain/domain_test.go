package domain_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mentorpro/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. Scope and enums.
// ---------------------------------------------------------------------------

func TestScope_TenantWide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role domain.Role
		want bool
	}{
		{domain.RoleAdmin, true},
		{domain.RoleStaff, true},
		{domain.RoleMentor, false},
		{domain.Role(""), false},
		{domain.Role("student"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()

			scope := domain.Scope{TenantID: uuid.New(), UserID: uuid.New(), Role: tt.role}
			assert.Equal(t, tt.want, scope.TenantWide())
		})
	}
}

func TestBoardKind_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.BoardActivities.Valid())
	assert.True(t, domain.BoardCRM.Valid())
	assert.False(t, domain.BoardKind("kanban").Valid())
	assert.False(t, domain.BoardKind("").Valid())
}

func TestPaymentStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []domain.PaymentStatus{
		domain.PaymentPending, domain.PaymentPaid, domain.PaymentOverdue, domain.PaymentCancelled,
	} {
		assert.Truef(t, s.Valid(), "%q", s)
	}
	assert.False(t, domain.PaymentStatus("PENDING").Valid())
	assert.False(t, domain.PaymentStatus("").Valid())
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		assert.Truef(t, p.Valid(), "%q", p)
	}
	assert.False(t, domain.Priority("Media").Valid())
}

func TestPlacement_Moves(t *testing.T) {
	t.Parallel()

	stage := uuid.New()
	pos := 0

	assert.False(t, domain.Placement{}.Moves())
	assert.True(t, domain.Placement{StageID: &stage}.Moves())
	assert.True(t, domain.Placement{Position: &pos}.Moves())
}

// ---------------------------------------------------------------------------
// 2. Sentinel errors: distinctness and wrapping.
// ---------------------------------------------------------------------------

func sentinels() []error {
	return []error{
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrInvalid,
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	t.Parallel()

	all := sentinels()
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.NotErrorIsf(t, a, b, "%v vs %v", a, b)
		}
	}
}

func TestSentinelErrors_WrappingPreservesIdentity(t *testing.T) {
	t.Parallel()

	for _, sentinel := range sentinels() {
		t.Run(sentinel.Error(), func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("leadRepo.Update: %w", sentinel)
			require.ErrorIs(t, wrapped, sentinel)

			doubleWrapped := fmt.Errorf("handler: %w", wrapped)
			require.ErrorIs(t, doubleWrapped, sentinel)
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Stored string values: regression guards.
// ---------------------------------------------------------------------------

func TestStoredConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got  string
		want string
	}{
		{string(domain.PaymentPending), "pendente"},
		{string(domain.PaymentPaid), "pago"},
		{string(domain.PaymentOverdue), "atrasado"},
		{string(domain.PaymentCancelled), "cancelado"},
		{string(domain.SourceManual), "manual"},
		{string(domain.SourceAsaas), "asaas"},
		{string(domain.PriorityHigh), "Alta"},
		{string(domain.PriorityMedium), "Média"},
		{string(domain.PriorityLow), "Baixa"},
		{string(domain.BoardActivities), "activities"},
		{string(domain.BoardCRM), "crm"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}
