package v1

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"
)

type AsaasWebhookInput struct {
	RawBody []byte
}

type AsaasWebhookOutput struct {
	Body struct {
		Received bool   `json:"received"`
		Event    string `json:"event,omitempty"`
		ID       string `json:"id,omitempty"`
	}
}

// RegisterWebhookRoutes wires the gateway's event callback. Requests are not
// signed; the payload is only logged and acknowledged.
func RegisterWebhookRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "asaas-webhook",
		Method:      http.MethodPost,
		Path:        "/asaas",
		Summary:     "Acknowledge an Asaas event",
		Tags:        []string{"Webhooks"},
	}, func(_ context.Context, input *AsaasWebhookInput) (*AsaasWebhookOutput, error) {
		var payload struct {
			ID      string `json:"id"`
			Event   string `json:"event"`
			Payment *struct {
				ID                string `json:"id"`
				Status            string `json:"status"`
				ExternalReference string `json:"externalReference"`
			} `json:"payment"`
		}
		if err := json.Unmarshal(input.RawBody, &payload); err != nil {
			return nil, huma.Error400BadRequest("payload must be a JSON object", err)
		}

		ev := log.Info().Str("event", payload.Event).Str("id", payload.ID)
		if p := payload.Payment; p != nil {
			ev = ev.Str("payment_id", p.ID).Str("status", p.Status).Str("external_reference", p.ExternalReference)
		}
		ev.Msg("asaas webhook received")

		out := &AsaasWebhookOutput{}
		out.Body.Received = true
		out.Body.Event = payload.Event
		out.Body.ID = payload.ID
		return out, nil
	})
}
