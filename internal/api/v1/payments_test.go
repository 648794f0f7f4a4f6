package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
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

func TestListPayments(t *testing.T) {
	t.Parallel()

	t.Run("forwards_filters", func(t *testing.T) {
		t.Parallel()

		studentID := uuid.New()
		_, api := humatest.New(t)
		svc := &mockBilling{
			listFunc: func(_ context.Context, _ domain.Scope, q billing.ListQuery) (*billing.PaymentPage, error) {
				require.NotNil(t, q.StudentID)
				assert.Equal(t, studentID, *q.StudentID)
				assert.Equal(t, "2025-01", q.Start)
				assert.Equal(t, "2025-06", q.End)
				assert.Equal(t, "pendente", q.Status)
				assert.Equal(t, 20, q.Limit)
				return &billing.PaymentPage{Items: []*domain.Payment{}, Total: 0}, nil
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.GetCtx(scopeCtx(mentorScope(uuid.New())),
			"/payments?student_id="+studentID.String()+"&start=2025-01&end=2025-06&status=pendente&limit=20")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"items":[],"total":0}`, stripSchema(t, resp.Body.Bytes()))
	})

	t.Run("bad_competency", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			listFunc: func(_ context.Context, _ domain.Scope, q billing.ListQuery) (*billing.PaymentPage, error) {
				_, err := billing.ParseCompetency(q.Competency)
				return nil, fmt.Errorf("billing.List: %w", err)
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.GetCtx(scopeCtx(mentorScope(uuid.New())), "/payments?competency=2025-13")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "invalid competency")
	})
}

func TestSyncCompetencies(t *testing.T) {
	t.Parallel()

	t.Run("without_body", func(t *testing.T) {
		t.Parallel()

		studentID := uuid.New()
		_, api := humatest.New(t)
		svc := &mockBilling{
			generateFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID, opts billing.GenerateOptions) (*billing.GenerateResult, error) {
				assert.Equal(t, studentID, id)
				assert.True(t, opts.Until.IsZero())
				assert.Nil(t, opts.AmountCents)
				return &billing.GenerateResult{Created: 4, Skipped: 1}, nil
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/sync/"+studentID.String())

		require.Equal(t, http.StatusOK, resp.Code)
		var body billing.GenerateResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, billing.GenerateResult{Created: 4, Skipped: 1}, body)
	})

	t.Run("with_options", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			generateFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, opts billing.GenerateOptions) (*billing.GenerateResult, error) {
				assert.Equal(t, "2025-02", opts.Until.String())
				require.NotNil(t, opts.AmountCents)
				assert.Equal(t, int64(49900), *opts.AmountCents)
				return &billing.GenerateResult{}, nil
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/sync/"+uuid.NewString(), map[string]any{
			"until":        "2025-02",
			"amount_cents": 49900,
		})

		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("student_without_purchase_date", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			generateFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, _ billing.GenerateOptions) (*billing.GenerateResult, error) {
				return nil, billing.ErrNoPurchaseDate
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/sync/"+uuid.NewString())

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "student has no purchase date")
	})

	t.Run("unknown_student", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			generateFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, _ billing.GenerateOptions) (*billing.GenerateResult, error) {
				return nil, fmt.Errorf("billing.GenerateCompetencies: %w", domain.ErrNotFound)
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/sync/"+uuid.NewString())

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestMarkPaid(t *testing.T) {
	t.Parallel()

	studentID := uuid.New()
	_, api := humatest.New(t)
	svc := &mockBilling{
		markPaidFunc: func(_ context.Context, _ domain.Scope, req billing.MarkPaidRequest) (*domain.Payment, error) {
			assert.Equal(t, studentID, req.StudentID)
			assert.Equal(t, "2025-02", req.Competency)
			assert.Equal(t, int64(35000), req.AmountCents)
			assert.Equal(t, "2025-02-11", req.PaidOn.Format(time.DateOnly))
			assert.Equal(t, "pix", req.Method)
			amount := req.AmountCents
			return &domain.Payment{
				ID:          uuid.New(),
				StudentID:   req.StudentID,
				Competency:  req.Competency,
				AmountCents: &amount,
				Status:      domain.PaymentPaid,
				Source:      domain.SourceManual,
			}, nil
		},
	}
	v1.RegisterPaymentRoutes(api, svc)

	resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/mark-paid", map[string]any{
		"student_id":   studentID.String(),
		"competency":   "2025-02",
		"amount_cents": 35000,
		"paid_on":      "2025-02-11",
		"method":       "pix",
	})

	require.Equal(t, http.StatusOK, resp.Code)
	var body domain.Payment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.PaymentPaid, body.Status)
}

func TestMarkPaid_RejectsZeroAmount(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterPaymentRoutes(api, &mockBilling{})

	resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/mark-paid", map[string]any{
		"student_id":   uuid.NewString(),
		"competency":   "2025-02",
		"amount_cents": 0,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestDeletePayment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "missing", err: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "bad_month", err: billing.ErrInvalidCompetency, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			studentID := uuid.New()
			_, api := humatest.New(t)
			svc := &mockBilling{
				deleteFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID, competency string) error {
					assert.Equal(t, studentID, id)
					assert.Equal(t, "2025-03", competency)
					return tt.err
				},
			}
			v1.RegisterPaymentRoutes(api, svc)

			resp := api.DeleteCtx(scopeCtx(mentorScope(uuid.New())), "/payments/by-student/"+studentID.String()+"/2025-03")

			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestCreateCharge(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		paymentID := uuid.New()
		_, api := humatest.New(t)
		svc := &mockBilling{
			createChargeFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID, req billing.ChargeRequest) (*domain.Payment, error) {
				assert.Equal(t, paymentID, id)
				assert.Equal(t, asaas.BillingPix, req.BillingType)
				return &domain.Payment{ID: id, GatewayPaymentID: "pay_123", Source: domain.SourceAsaas}, nil
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/"+paymentID.String()+"/charge", map[string]any{
			"billing_type": "PIX",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body domain.Payment
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "pay_123", body.GatewayPaymentID)
	})

	t.Run("upstream_rejection_is_502_with_body", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			createChargeFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, _ billing.ChargeRequest) (*domain.Payment, error) {
				return nil, &asaas.Error{
					Op:         "CreatePayment",
					StatusCode: http.StatusBadRequest,
					Body:       []byte(`{"errors":[{"code":"invalid_customer","description":"Cliente inexistente"}]}`),
				}
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/"+uuid.NewString()+"/charge")

		require.Equal(t, http.StatusBadGateway, resp.Code)
		var problem struct {
			Status int `json:"status"`
			Errors []struct {
				Location string         `json:"location"`
				Value    map[string]any `json:"value"`
			} `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, http.StatusBadGateway, problem.Status)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "gateway.CreatePayment", problem.Errors[0].Location)
		assert.Contains(t, problem.Errors[0].Value, "errors")
	})

	t.Run("unreachable_gateway_is_502", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockBilling{
			createChargeFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, _ billing.ChargeRequest) (*domain.Payment, error) {
				return nil, fmt.Errorf("asaas.CreatePayment: %w: dial tcp: i/o timeout", asaas.ErrUpstream)
			},
		}
		v1.RegisterPaymentRoutes(api, svc)

		resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/"+uuid.NewString()+"/charge")

		assert.Equal(t, http.StatusBadGateway, resp.Code)
	})

	t.Run("preconditions", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			err        error
			wantStatus int
		}{
			{err: billing.ErrNoCustomer, wantStatus: http.StatusBadRequest},
			{err: billing.ErrNoAmount, wantStatus: http.StatusBadRequest},
			{err: asaas.ErrNotConfigured, wantStatus: http.StatusBadRequest},
			{err: billing.ErrAlreadySettled, wantStatus: http.StatusConflict},
		}

		for _, tt := range tests {
			_, api := humatest.New(t)
			svc := &mockBilling{
				createChargeFunc: func(_ context.Context, _ domain.Scope, _ uuid.UUID, _ billing.ChargeRequest) (*domain.Payment, error) {
					return nil, tt.err
				},
			}
			v1.RegisterPaymentRoutes(api, svc)

			resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/"+uuid.NewString()+"/charge")

			assert.Equalf(t, tt.wantStatus, resp.Code, "error %v", tt.err)
		}
	})
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	studentID := uuid.New()
	_, api := humatest.New(t)
	svc := &mockBilling{
		reconcileFunc: func(_ context.Context, _ domain.Scope, id uuid.UUID) (*billing.ReconcileResult, error) {
			assert.Equal(t, studentID, id)
			return &billing.ReconcileResult{Updated: 2, Created: 1, Unchanged: 3}, nil
		},
	}
	v1.RegisterPaymentRoutes(api, svc)

	resp := api.PostCtx(scopeCtx(mentorScope(uuid.New())), "/payments/reconcile/"+studentID.String())

	require.Equal(t, http.StatusOK, resp.Code)
	var body billing.ReconcileResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, billing.ReconcileResult{Updated: 2, Created: 1, Unchanged: 3}, body)
}

// stripSchema drops the $schema link huma adds to response bodies.
func stripSchema(t *testing.T, raw []byte) string {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	delete(m, "$schema")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
