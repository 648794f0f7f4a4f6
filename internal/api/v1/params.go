package v1

import (
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

const dateLayout = time.DateOnly

// optionalUUID parses an optional query parameter.
func optionalUUID(raw, name string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid "+name, &huma.ErrorDetail{
			Message:  "expected a UUID",
			Location: "query." + name,
			Value:    raw,
		})
	}
	return &id, nil
}

// optionalDate parses a YYYY-MM-DD body field; empty means unset.
func optionalDate(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid "+name, &huma.ErrorDetail{
			Message:  "expected YYYY-MM-DD",
			Location: "body." + name,
			Value:    raw,
		})
	}
	return &t, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
