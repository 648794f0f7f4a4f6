package asaas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type BillingType string

const (
	BillingBoleto     BillingType = "BOLETO"
	BillingPix        BillingType = "PIX"
	BillingCreditCard BillingType = "CREDIT_CARD"
	BillingUndefined  BillingType = "UNDEFINED"
)

const dateLayout = "2006-01-02"

// listPageSize is the largest page the API serves; maxListPages bounds a
// single listing.
const (
	listPageSize = 100
	maxListPages = 50
)

type PaymentRequest struct {
	Customer          string      `json:"customer" validate:"required"`
	BillingType       BillingType `json:"billingType" validate:"required,oneof=BOLETO PIX CREDIT_CARD UNDEFINED"`
	Value             float64     `json:"value" validate:"gt=0"`
	DueDate           string      `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Description       string      `json:"description,omitempty" validate:"max=500"`
	ExternalReference string      `json:"externalReference,omitempty"`
}

type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Value             float64 `json:"value"`
	NetValue          float64 `json:"netValue,omitempty"`
	Status            string  `json:"status"`
	BillingType       string  `json:"billingType"`
	DueDate           string  `json:"dueDate,omitempty"`
	PaymentDate       string  `json:"paymentDate,omitempty"`
	ClientPaymentDate string  `json:"clientPaymentDate,omitempty"`
	ConfirmedDate     string  `json:"confirmedDate,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
	InvoiceURL        string  `json:"invoiceUrl,omitempty"`
	Description       string  `json:"description,omitempty"`
	Deleted           bool    `json:"deleted,omitempty"`
}

// PaidOn picks the settlement date: clientPaymentDate, then paymentDate, then
// confirmedDate.
func (p Payment) PaidOn() (time.Time, bool) {
	for _, v := range []string{p.ClientPaymentDate, p.PaymentDate, p.ConfirmedDate} {
		if t, ok := ParseDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Due returns the parsed due date.
func (p Payment) Due() (time.Time, bool) {
	return ParseDate(p.DueDate)
}

// ParseDate reads "YYYY-MM-DD" or a full RFC 3339 timestamp, keeping only the
// calendar date.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// FormatDate renders t the way the API expects dates.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// PaymentQuery filters ListPayments. Empty fields are not sent.
type PaymentQuery struct {
	Customer          string
	ExternalReference string
	DueDateFrom       string
	DueDateTo         string
}

func (q PaymentQuery) values() url.Values {
	v := url.Values{}
	if q.Customer != "" {
		v.Set("customer", q.Customer)
	}
	if q.ExternalReference != "" {
		v.Set("externalReference", q.ExternalReference)
	}
	if q.DueDateFrom != "" {
		v.Set("dueDate[ge]", q.DueDateFrom)
	}
	if q.DueDateTo != "" {
		v.Set("dueDate[le]", q.DueDateTo)
	}
	return v
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	if err := c.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("asaas.CreatePayment: %w: %w", ErrInvalidInput, err)
	}

	var out Payment
	if err := c.do(ctx, "create_payment", http.MethodPost, "/payments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, "get_payment", http.MethodGet, "/payments/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPayments follows pagination until the API reports no more pages.
func (c *Client) ListPayments(ctx context.Context, q PaymentQuery) ([]Payment, error) {
	var all []Payment
	params := q.values()
	params.Set("limit", strconv.Itoa(listPageSize))

	for pageNo := 0; pageNo < maxListPages; pageNo++ {
		params.Set("offset", strconv.Itoa(pageNo*listPageSize))

		var res page[Payment]
		if err := c.do(ctx, "list_payments", http.MethodGet, "/payments", params, nil, &res); err != nil {
			return nil, err
		}
		for _, p := range res.Data {
			if !p.Deleted {
				all = append(all, p)
			}
		}
		if !res.HasMore {
			return all, nil
		}
	}

	return all, nil
}

func (c *Client) DeletePayment(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("asaas.DeletePayment: %w: empty payment id", ErrInvalidInput)
	}
	return c.do(ctx, "delete_payment", http.MethodDelete, "/payments/"+url.PathEscape(id), nil, nil, nil)
}
