package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

type ReportStore interface {
	Create(ctx context.Context, rep *domain.WeeklyBalanceReport) error
	ByWeek(ctx context.Context, weekID string) (*domain.WeeklyBalanceReport, error)
	List(ctx context.Context, limit int) ([]domain.WeeklyBalanceReport, error)
}

// SettlementSvc aggregates one week of closed sessions and ledger income
// into a price recommendation. It only reads committed data from the other
// components and writes nothing but the report.
type SettlementSvc struct {
	sessions SessionStore
	ledger   WalletLedger
	reports  ReportStore
	clock    func() time.Time
}

func NewSettlementSvc(sessions SessionStore, ledger WalletLedger, reports ReportStore) *SettlementSvc {
	return &SettlementSvc{
		sessions: sessions,
		ledger:   ledger,
		reports:  reports,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Run settles the week starting at startDate (7 days, end exclusive). A
// re-run of the same week writes a superseding report version; the previous
// report stays in the audit trail. A missing input aborts before anything is
// written, leaving the previous report authoritative.
func (s *SettlementSvc) Run(ctx context.Context, startDate time.Time, in domain.SettlementInputs) (*domain.WeeklyBalanceReport, error) {
	if in.CourtCost < 0 {
		return nil, &domain.SettlementInputMissingError{Field: "court_cost"}
	}
	if in.ShuttlecockCost < 0 {
		return nil, &domain.SettlementInputMissingError{Field: "shuttlecock_cost"}
	}
	calc, err := domain.CalculatePrice(in)
	if err != nil {
		return nil, err
	}

	start := startDate.UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 7)

	closed, err := s.sessions.ClosedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	income, err := s.ledger.SumChargesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	totalPlayers := 0
	for _, sess := range closed {
		totalPlayers += len(sess.Active())
	}

	calcJSON, err := json.Marshal(calc)
	if err != nil {
		return nil, err
	}
	rep := &domain.WeeklyBalanceReport{
		WeekID:          domain.WeekID(start),
		StartDate:       start,
		EndDate:         end,
		SessionCount:    len(closed),
		TotalPlayers:    totalPlayers,
		TotalIncome:     income,
		CourtCost:       in.CourtCost,
		ShuttlecockCost: in.ShuttlecockCost,
		TotalExpenses:   calc.WeeklyCost,
		GrossProfit:     income - calc.WeeklyCost,
		PriceCalc:       calcJSON,
		CreatedAt:       s.clock(),
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *SettlementSvc) Report(ctx context.Context, weekID string) (*domain.WeeklyBalanceReport, error) {
	return s.reports.ByWeek(ctx, weekID)
}

func (s *SettlementSvc) Reports(ctx context.Context, limit int) ([]domain.WeeklyBalanceReport, error) {
	return s.reports.List(ctx, limit)
}
