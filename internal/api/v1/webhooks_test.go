package v1_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/mentorpro/internal/api/v1"
)

func TestAsaasWebhook(t *testing.T) {
	t.Parallel()

	t.Run("acknowledged", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterWebhookRoutes(api)

		resp := api.Post("/asaas", "Content-Type: application/json", strings.NewReader(
			`{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"pay_9","status":"RECEIVED","externalReference":"pay-ref"}}`,
		))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"received":true,"event":"PAYMENT_RECEIVED","id":"evt_1"}`, stripSchema(t, resp.Body.Bytes()))
	})

	t.Run("unknown_event_still_acknowledged", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterWebhookRoutes(api)

		resp := api.Post("/asaas", "Content-Type: application/json", strings.NewReader(`{"event":"ACCOUNT_STATUS_UPDATED"}`))

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterWebhookRoutes(api)

		resp := api.Post("/asaas", "Content-Type: application/json", strings.NewReader(`{not json`))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
