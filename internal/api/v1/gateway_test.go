package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/mentorpro/internal/api/v1"
	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
)

// ---------------------------------------------------------------------------
// Gateway config
// ---------------------------------------------------------------------------

func TestGetGatewayConfig(t *testing.T) {
	t.Parallel()

	t.Run("masked", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		accounts := &mockAccounts{
			settingsFunc: func(_ context.Context, _ domain.Scope) (*asaas.Settings, error) {
				return &asaas.Settings{APIKey: "****abcd", Sandbox: true, BaseURL: asaas.SandboxBaseURL, UpdatedAt: time.Now()}, nil
			},
		}
		v1.RegisterGatewayRoutes(api, accounts, &mockBilling{})

		resp := api.GetCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/config")

		require.Equal(t, http.StatusOK, resp.Code)
		var body asaas.Settings
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "****abcd", body.APIKey)
		assert.True(t, body.Sandbox)
	})

	t.Run("not_configured", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		accounts := &mockAccounts{
			settingsFunc: func(_ context.Context, _ domain.Scope) (*asaas.Settings, error) {
				return nil, asaas.ErrNotConfigured
			},
		}
		v1.RegisterGatewayRoutes(api, accounts, &mockBilling{})

		resp := api.GetCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/config")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("missing_scope", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterGatewayRoutes(api, &mockAccounts{}, &mockBilling{})

		resp := api.Get("/gateway/config")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestPutGatewayConfig(t *testing.T) {
	t.Parallel()

	t.Run("stored", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		accounts := &mockAccounts{
			saveFunc: func(_ context.Context, _ domain.Scope, apiKey string, sandbox bool) (*asaas.Settings, error) {
				assert.Equal(t, "$aact_live_key", apiKey)
				assert.False(t, sandbox)
				return &asaas.Settings{APIKey: "****_key", BaseURL: asaas.ProductionBaseURL}, nil
			},
		}
		v1.RegisterGatewayRoutes(api, accounts, &mockBilling{})

		resp := api.PutCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/config", map[string]any{
			"api_key": "$aact_live_key",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.NotContains(t, resp.Body.String(), "$aact_live_key")
	})

	t.Run("empty_key", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterGatewayRoutes(api, &mockAccounts{}, &mockBilling{})

		resp := api.PutCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/config", map[string]any{
			"api_key": "",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("storage_failure", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		accounts := &mockAccounts{
			saveFunc: func(_ context.Context, _ domain.Scope, _ string, _ bool) (*asaas.Settings, error) {
				return nil, errors.New("connection reset")
			},
		}
		v1.RegisterGatewayRoutes(api, accounts, &mockBilling{})

		resp := api.PutCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/config", map[string]any{
			"api_key": "key",
		})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestGatewayHealth(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	svc := &mockBilling{
		healthFunc: func(_ context.Context, _ domain.Scope) billing.HealthReport {
			return billing.HealthReport{OK: false, Message: "HTTP 401: unauthorized"}
		},
	}
	v1.RegisterGatewayRoutes(api, &mockAccounts{}, svc)

	resp := api.GetCtx(scopeCtx(mentorScope(uuid.New())), "/gateway/health")

	require.Equal(t, http.StatusOK, resp.Code)
	var body billing.HealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.Equal(t, "HTTP 401: unauthorized", body.Message)
}

// ---------------------------------------------------------------------------
// Customer sync
// ---------------------------------------------------------------------------

func TestSyncStudentCustomer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		student    *domain.Student
		err        error
		wantStatus int
	}{
		{
			name:       "linked",
			student:    &domain.Student{Name: "Ana", GatewayCustomerID: "cus_1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing_student",
			err:        domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "incomplete_student",
			err:        asaas.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "gateway_rejected",
			err: &asaas.Error{
				Op:         "CreateCustomer",
				StatusCode: http.StatusBadRequest,
				Body:       []byte(`{"errors":[{"code":"invalid_cpfCnpj","description":"CPF inválido"}]}`),
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			studentID := uuid.New()
			_, api := humatest.New(t)
			svc := &mockBilling{
				syncCustomerFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID) (*domain.Student, error) {
					assert.Equal(t, studentID, id)
					if tt.err != nil {
						return nil, tt.err
					}
					st := *tt.student
					st.ID = id
					return &st, nil
				},
			}
			v1.RegisterGatewayRoutes(api, &mockAccounts{}, svc)

			resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/students/"+studentID.String()+"/gateway/sync")

			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantStatus == http.StatusBadGateway {
				assert.Contains(t, resp.Body.String(), "CPF inválido")
			}
		})
	}
}

func TestRefreshStudentCustomer(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	svc := &mockBilling{
		refreshCustomerFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID) (*domain.Student, bool, error) {
			return &domain.Student{ID: id, Name: "Ana", GatewayCustomerID: "cus_1"}, false, nil
		},
	}
	v1.RegisterGatewayRoutes(api, &mockAccounts{}, svc)

	resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/students/"+uuid.NewString()+"/gateway/refresh")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Student domain.Student `json:"student"`
		Synced  bool           `json:"synced"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Synced)
	assert.Equal(t, "cus_1", body.Student.GatewayCustomerID)
}
