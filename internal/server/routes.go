package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	v1 "github.com/gosuda/mentorpro/internal/api/v1"
	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/metrics"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterActivityRoutes(api, deps.Store, deps.Hub, deps.Seeds)
	v1.RegisterCRMRoutes(api, deps.Store, deps.Hub, deps.Seeds)
	v1.RegisterPaymentRoutes(api, deps.Billing)
	v1.RegisterGatewayRoutes(api, deps.Accounts, deps.Billing)
}

func registerWebhookRoutes(api huma.API) {
	v1.RegisterWebhookRoutes(api)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/boards/{kind}", hub.ServeBoard)
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return metrics.Handler(g)
}

// healthHandler probes every check with a short deadline and answers 503 when
// any of them fails.
func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
