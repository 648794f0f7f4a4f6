package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
	"github.com/gosuda/mentorpro/internal/server/middleware"
)

// scopeFrom returns the authenticated principal.
func scopeFrom(ctx context.Context) (domain.Scope, error) {
	scope, ok := middleware.ScopeFromContext(ctx)
	if !ok {
		return domain.Scope{}, huma.Error403Forbidden("missing tenant context")
	}
	return scope, nil
}

// clientErrors are failures caused by the request itself. The message shown
// is the sentinel's text without its package prefix.
var clientErrors = []struct {
	err    error
	status int
}{
	{domain.ErrInvalid, http.StatusBadRequest},
	{billing.ErrInvalidCompetency, http.StatusBadRequest},
	{billing.ErrInvalidAmount, http.StatusBadRequest},
	{billing.ErrInvalidStatus, http.StatusBadRequest},
	{billing.ErrNoPurchaseDate, http.StatusBadRequest},
	{billing.ErrNoCustomer, http.StatusBadRequest},
	{billing.ErrNoAmount, http.StatusBadRequest},
	{asaas.ErrInvalidInput, http.StatusBadRequest},
	{asaas.ErrNotConfigured, http.StatusBadRequest},
	{billing.ErrAlreadySettled, http.StatusConflict},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrForbidden, http.StatusForbidden},
}

// problem translates a service or repository error into a problem response.
// what names the resource in 404s; op names the action in 500s.
func problem(err error, what, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound(what + " not found")
	}

	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return huma.NewError(ce.status, sentinelText(ce.err))
		}
	}

	var apiErr *asaas.Error
	if errors.As(err, &apiErr) {
		log.Warn().Err(err).Str("op", op).Msg("gateway request rejected")
		return huma.NewError(http.StatusBadGateway, "payment gateway rejected the request", &huma.ErrorDetail{
			Message:  apiErr.Error(),
			Location: "gateway." + apiErr.Op,
			Value:    apiErr.Detail(),
		})
	}
	if errors.Is(err, asaas.ErrUpstream) {
		log.Warn().Err(err).Str("op", op).Msg("gateway unreachable")
		return huma.Error502BadGateway("payment gateway unreachable", err)
	}

	log.Error().Err(err).Str("op", op).Msg("request failed")
	return huma.Error500InternalServerError("failed to "+op, err)
}

func sentinelText(err error) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}
