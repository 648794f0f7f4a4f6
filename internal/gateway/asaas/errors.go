package asaas

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotConfigured = errors.New("asaas: gateway credentials not configured")
	ErrNotFound      = errors.New("asaas: not found")
	ErrInvalidInput  = errors.New("asaas: invalid request")
	// ErrUpstream covers transport failures and unreadable answers.
	ErrUpstream = errors.New("asaas: gateway unreachable")
)

// Error is a non-2xx answer from the API. Body holds the upstream payload as
// received.
type Error struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	body := string(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("asaas.%s: HTTP %d: %s", e.Op, e.StatusCode, body)
}

// Detail returns the upstream body as decoded JSON when it is JSON and as a
// plain string otherwise.
func (e *Error) Detail() any {
	var v any
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

// Descriptions lists the messages from Asaas' {"errors":[{"code","description"}]}
// envelope.
func (e *Error) Descriptions() []string {
	var env struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(e.Body, &env); err != nil {
		return nil
	}
	out := make([]string, 0, len(env.Errors))
	for _, item := range env.Errors {
		out = append(out, item.Description)
	}
	return out
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
