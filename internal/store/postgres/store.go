package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/domain"
)

type Store struct {
	pool           *pgxpool.Pool
	activityStages *StageRepo
	crmFunnels     *StageRepo
	activities     *ActivityRepo
	leads          *LeadRepo
	students       *StudentRepo
	products       *ProductRepo
	payments       *PaymentRepo
	gatewayConfigs *GatewayConfigRepo
	audit          *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:           pool,
		activityStages: NewStageRepo(pool, activityBoard),
		crmFunnels:     NewStageRepo(pool, crmBoard),
		activities:     NewActivityRepo(pool),
		leads:          NewLeadRepo(pool),
		students:       NewStudentRepo(pool),
		products:       NewProductRepo(pool),
		payments:       NewPaymentRepo(pool),
		gatewayConfigs: NewGatewayConfigRepo(pool),
		audit:          NewAuditRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database answers. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ActivityStages() domain.StageRepository         { return s.activityStages }
func (s *Store) CRMFunnels() domain.StageRepository             { return s.crmFunnels }
func (s *Store) Activities() domain.ActivityRepository          { return s.activities }
func (s *Store) Leads() domain.LeadRepository                   { return s.leads }
func (s *Store) Students() domain.StudentRepository             { return s.students }
func (s *Store) Products() domain.ProductRepository             { return s.products }
func (s *Store) Payments() domain.PaymentRepository             { return s.payments }
func (s *Store) GatewayConfigs() domain.GatewayConfigRepository { return s.gatewayConfigs }
func (s *Store) Audit() domain.AuditRepository                  { return s.audit }
