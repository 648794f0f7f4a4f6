package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
)

type ListPaymentsInput struct {
	StudentID  string `query:"student_id" format:"uuid" doc:"Only this student's payments"`
	Competency string `query:"competency" doc:"Exact month, YYYY-MM"`
	Start      string `query:"start" doc:"First month, inclusive"`
	End        string `query:"end" doc:"Last month, inclusive"`
	Status     string `query:"status" enum:"pendente,pago,atrasado,cancelado" doc:"Payment status"`
	Limit      int    `query:"limit" minimum:"0" maximum:"1000" doc:"Page size, default 100"`
	Offset     int    `query:"offset" minimum:"0"`
}

type ListPaymentsOutput struct {
	Body *billing.PaymentPage
}

type SyncCompetenciesInput struct {
	StudentID uuid.UUID `path:"studentID" doc:"Student ID"`
	Body      *struct {
		Until       string `json:"until,omitempty" pattern:"^[0-9]{4}-[0-9]{2}$" doc:"Last month to generate; defaults to the previous month"`
		AmountCents *int64 `json:"amount_cents,omitempty" minimum:"0" doc:"Overrides the plan price"`
		DueOn       string `json:"due_on,omitempty" format:"date" doc:"Fixed due date for every generated month"`
	} `required:"false"`
}

type SyncCompetenciesOutput struct {
	Body *billing.GenerateResult
}

type MarkPaidInput struct {
	Body struct {
		StudentID   uuid.UUID `json:"student_id"`
		Competency  string    `json:"competency" doc:"YYYY-MM"`
		AmountCents int64     `json:"amount_cents" minimum:"1"`
		PaidOn      string    `json:"paid_on,omitempty" format:"date" doc:"Defaults to today"`
		Method      string    `json:"method,omitempty" maxLength:"32" doc:"pix, boleto, cartao, dinheiro..."`
		Reference   string    `json:"reference,omitempty" maxLength:"120"`
	}
}

type PaymentOutput struct {
	Body *domain.Payment
}

type DeletePaymentInput struct {
	StudentID  uuid.UUID `path:"studentID" doc:"Student ID"`
	Competency string    `path:"competency" doc:"YYYY-MM"`
}

type CreateChargeInput struct {
	PaymentID uuid.UUID `path:"paymentID" doc:"Payment ID"`
	Body      *struct {
		BillingType asaas.BillingType `json:"billing_type,omitempty" enum:"BOLETO,PIX,CREDIT_CARD,UNDEFINED" doc:"Defaults to UNDEFINED (payer chooses)"`
		Description string            `json:"description,omitempty" maxLength:"500"`
	} `required:"false"`
}

type ReconcileInput struct {
	StudentID uuid.UUID `path:"studentID" doc:"Student ID"`
}

type ReconcileOutput struct {
	Body *billing.ReconcileResult
}

// RegisterPaymentRoutes wires the payment ledger.
func RegisterPaymentRoutes(api huma.API, svc BillingService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-payments",
		Method:      http.MethodGet,
		Path:        "/payments",
		Summary:     "List payments",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ListPaymentsInput) (*ListPaymentsOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		studentID, err := optionalUUID(input.StudentID, "student_id")
		if err != nil {
			return nil, err
		}

		page, err := svc.List(ctx, scope, billing.ListQuery{
			StudentID:  studentID,
			Competency: input.Competency,
			Start:      input.Start,
			End:        input.End,
			Status:     input.Status,
			Limit:      input.Limit,
			Offset:     input.Offset,
		})
		if err != nil {
			return nil, problem(err, "payment", "list payments")
		}
		return &ListPaymentsOutput{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-competencies",
		Method:      http.MethodPost,
		Path:        "/payments/sync/{studentID}",
		Summary:     "Generate the missing monthly payments of a student",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *SyncCompetenciesInput) (*SyncCompetenciesOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		var opts billing.GenerateOptions
		if b := input.Body; b != nil {
			if b.Until != "" {
				if opts.Until, err = billing.ParseCompetency(b.Until); err != nil {
					return nil, problem(err, "student", "generate payments")
				}
			}
			opts.AmountCents = b.AmountCents
			if opts.DueOn, err = optionalDate(b.DueOn, "due_on"); err != nil {
				return nil, err
			}
		}

		res, err := svc.GenerateCompetencies(ctx, scope, input.StudentID, opts)
		if err != nil {
			return nil, problem(err, "student", "generate payments")
		}
		return &SyncCompetenciesOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-payment-paid",
		Method:      http.MethodPost,
		Path:        "/payments/mark-paid",
		Summary:     "Settle a month by hand",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *MarkPaidInput) (*PaymentOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		paidOn, err := optionalDate(input.Body.PaidOn, "paid_on")
		if err != nil {
			return nil, err
		}
		req := billing.MarkPaidRequest{
			StudentID:   input.Body.StudentID,
			Competency:  input.Body.Competency,
			AmountCents: input.Body.AmountCents,
			Method:      input.Body.Method,
			Reference:   input.Body.Reference,
		}
		if paidOn != nil {
			req.PaidOn = *paidOn
		}

		p, err := svc.MarkPaid(ctx, scope, req)
		if err != nil {
			return nil, problem(err, "student", "mark payment paid")
		}
		return &PaymentOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-payment",
		Method:      http.MethodDelete,
		Path:        "/payments/by-student/{studentID}/{competency}",
		Summary:     "Delete a student's payment for a month",
		Description: "The linked gateway charge, if any, is cancelled on a best-effort basis.",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *DeletePaymentInput) (*struct{}, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(ctx, scope, input.StudentID, input.Competency); err != nil {
			return nil, problem(err, "payment", "delete payment")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-payment-charge",
		Method:      http.MethodPost,
		Path:        "/payments/{paymentID}/charge",
		Summary:     "Issue a gateway charge for a payment",
		Description: "Gateway failures are reported as 502 with the upstream body.",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *CreateChargeInput) (*PaymentOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		var req billing.ChargeRequest
		if input.Body != nil {
			req.BillingType = input.Body.BillingType
			req.Description = input.Body.Description
		}

		p, err := svc.CreateCharge(ctx, scope, input.PaymentID, req)
		if err != nil {
			return nil, problem(err, "payment", "create charge")
		}
		return &PaymentOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reconcile-payments",
		Method:      http.MethodPost,
		Path:        "/payments/reconcile/{studentID}",
		Summary:     "Pull a student's charges from the gateway into the ledger",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ReconcileInput) (*ReconcileOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		res, err := svc.Reconcile(ctx, scope, input.StudentID)
		if err != nil {
			return nil, problem(err, "student", "reconcile payments")
		}
		return &ReconcileOutput{Body: res}, nil
	})
}
