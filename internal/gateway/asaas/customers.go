package asaas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Customer struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name" validate:"required,max=200"`
	CpfCnpj           string `json:"cpfCnpj,omitempty" validate:"omitempty,numeric,len=11|len=14"`
	Email             string `json:"email,omitempty" validate:"omitempty,email"`
	MobilePhone       string `json:"mobilePhone,omitempty" validate:"omitempty,numeric"`
	ExternalReference string `json:"externalReference,omitempty"`
	Deleted           bool   `json:"deleted,omitempty"`
}

// NewCustomer builds a customer payload with documents normalized the way
// the API expects them.
func NewCustomer(name, document, email, phone string) Customer {
	return Customer{
		Name:        strings.TrimSpace(name),
		CpfCnpj:     NormalizeDocument(document),
		Email:       strings.TrimSpace(email),
		MobilePhone: Digits(phone),
	}
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeDocument returns the digits of a CPF (11) or CNPJ (14) and an
// empty string for anything else.
func NormalizeDocument(s string) string {
	d := Digits(s)
	if len(d) == 11 || len(d) == 14 {
		return d
	}
	return ""
}

func (c *Client) CreateCustomer(ctx context.Context, cust Customer) (*Customer, error) {
	if err := c.validate.StructCtx(ctx, cust); err != nil {
		return nil, fmt.Errorf("asaas.CreateCustomer: %w: %w", ErrInvalidInput, err)
	}

	var out Customer
	if err := c.do(ctx, "create_customer", http.MethodPost, "/customers", nil, cust, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomer sends only the non-empty fields of cust.
func (c *Client) UpdateCustomer(ctx context.Context, id string, cust Customer) (*Customer, error) {
	if id == "" {
		return nil, fmt.Errorf("asaas.UpdateCustomer: %w: empty customer id", ErrInvalidInput)
	}
	if err := c.validate.StructPartialCtx(ctx, cust, "CpfCnpj", "Email", "MobilePhone"); err != nil {
		return nil, fmt.Errorf("asaas.UpdateCustomer: %w: %w", ErrInvalidInput, err)
	}

	var out Customer
	if err := c.do(ctx, "update_customer", http.MethodPut, "/customers/"+url.PathEscape(id), nil, cust, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindCustomer looks a customer up by document first and by email second.
// It returns ErrNotFound when neither matches.
func (c *Client) FindCustomer(ctx context.Context, document, email string) (*Customer, error) {
	lookups := []url.Values{}
	if doc := NormalizeDocument(document); doc != "" {
		lookups = append(lookups, url.Values{"cpfCnpj": {doc}})
	}
	if email = strings.TrimSpace(email); email != "" {
		lookups = append(lookups, url.Values{"email": {email}})
	}

	for _, q := range lookups {
		var res page[Customer]
		if err := c.do(ctx, "find_customer", http.MethodGet, "/customers", q, nil, &res); err != nil {
			return nil, err
		}
		for i := range res.Data {
			if !res.Data[i].Deleted {
				return &res.Data[i], nil
			}
		}
	}

	return nil, fmt.Errorf("asaas.FindCustomer: %w", ErrNotFound)
}

func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("asaas.DeleteCustomer: %w: empty customer id", ErrInvalidInput)
	}
	return c.do(ctx, "delete_customer", http.MethodDelete, "/customers/"+url.PathEscape(id), nil, nil, nil)
}
