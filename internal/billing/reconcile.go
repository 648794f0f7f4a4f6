package billing

import (
	"strings"
	"time"

	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
)

// Class is the local meaning of a gateway payment status.
type Class int

const (
	ClassUnknown Class = iota
	ClassPending
	ClassOverdue
	ClassPaid
)

func (c Class) String() string {
	switch c {
	case ClassPending:
		return "pending"
	case ClassOverdue:
		return "overdue"
	case ClassPaid:
		return "paid"
	default:
		return "unknown"
	}
}

// Classify maps an Asaas payment status onto a Class.
func Classify(status string) Class {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "RECEIVED", "RECEIVED_IN_CASH", "CONFIRMED", "DUNNING_RECEIVED":
		return ClassPaid
	case "PENDING", "AWAITING_RISK_ANALYSIS":
		return ClassPending
	case "OVERDUE", "DUNNING_REQUESTED":
		return ClassOverdue
	default:
		return ClassUnknown
	}
}

func (c Class) status() domain.PaymentStatus {
	switch c {
	case ClassPaid:
		return domain.PaymentPaid
	case ClassOverdue:
		return domain.PaymentOverdue
	default:
		return domain.PaymentPending
	}
}

// rank orders local statuses by settlement progress. Cancelled records are
// outside the ladder.
func rank(s domain.PaymentStatus) int {
	switch s {
	case domain.PaymentPending:
		return 0
	case domain.PaymentOverdue:
		return 1
	case domain.PaymentPaid:
		return 2
	default:
		return -1
	}
}

// MethodFor translates an Asaas billing type into the local method label.
func MethodFor(billingType string) string {
	switch strings.ToUpper(strings.TrimSpace(billingType)) {
	case "BOLETO":
		return "boleto"
	case "PIX":
		return "pix"
	case "CREDIT_CARD":
		return "cartao"
	default:
		return strings.ToLower(strings.TrimSpace(billingType))
	}
}

// Merge folds a gateway payment into a local record. Only forward progress is
// applied: a status is replaced only by a later one on the
// pendente < atrasado < pago ladder and cancelled records are left alone. A
// record linked to another gateway payment is relinked only when this one
// settles it. It reports whether local changed.
func Merge(local *domain.Payment, ext asaas.Payment, now time.Time) bool {
	if local.Status == domain.PaymentCancelled {
		return false
	}

	class := Classify(ext.Status)
	if class == ClassUnknown {
		return false
	}

	changed := false
	if local.GatewayPaymentID != ext.ID {
		switch {
		case local.GatewayPaymentID == "":
		case ext.ID != "" && class == ClassPaid && rank(domain.PaymentPaid) > rank(local.Status):
		default:
			return false
		}
		local.GatewayPaymentID = ext.ID
		changed = true
	}

	target := class.status()
	if rank(target) > rank(local.Status) {
		local.Status = target
		changed = true

		if class == ClassPaid {
			settle(local, ext)
		}
	}

	if changed {
		local.UpdatedAt = now
	}
	return changed
}

// settle copies settlement details from a paid gateway payment.
func settle(local *domain.Payment, ext asaas.Payment) {
	if paidOn, ok := ext.PaidOn(); ok {
		local.PaidOn = &paidOn
	}
	if m := MethodFor(ext.BillingType); m != "" {
		local.Method = m
	}
	if ext.Value > 0 {
		cents := toCents(ext.Value)
		local.AmountCents = &cents
	}
	if local.ExternalReference == "" {
		local.ExternalReference = ext.ExternalReference
	}
	local.Source = domain.SourceAsaas
}

func toCents(v float64) int64 {
	if v < 0 {
		return int64(v*100 - 0.5)
	}
	return int64(v*100 + 0.5)
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}
