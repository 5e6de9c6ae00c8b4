package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

func newSettlementFixture(t *testing.T) (*SettlementSvc, *fakeSessionStore, *fakeLedger, *fakeReportStore) {
	t.Helper()
	ledger := newFakeLedger(0)
	sessions := newFakeSessionStore(ledger)
	reports := &fakeReportStore{}
	svc := NewSettlementSvc(sessions, ledger, reports)
	svc.clock = func() time.Time { return testNow }
	return svc, sessions, ledger, reports
}

// closedWeek plays one full session through its lifecycle inside the week
// starting at start: n funded players register, the session publishes (bulk
// charge) and closes.
func closedWeek(t *testing.T, sessions *fakeSessionStore, ledger *fakeLedger, start time.Time, n int, price int64) {
	t.Helper()
	ctx := context.Background()
	sess := &domain.Session{
		DayLabel:      "Wednesday",
		Date:          start.AddDate(0, 0, 2),
		MaxPlayers:    n,
		PaymentAmount: price,
	}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 1; i <= n; i++ {
		u := userN(i)
		ledger.balances[u] += price
		if _, _, err := sessions.Register(ctx, sess.ID, domain.Registration{Name: u, UserID: u}, true, start); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if _, err := sessions.Publish(ctx, sess.ID, start.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := sessions.Transition(ctx, sess.ID, domain.StatusClosed, start.AddDate(0, 0, 3)); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunAggregatesWeekAndRecommendsPrice(t *testing.T) {
	svc, sessions, ledger, reports := newSettlementFixture(t)
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) // Monday, ISO week 35
	closedWeek(t, sessions, ledger, start, 8, 125)        // income 1000

	rep, err := svc.Run(context.Background(), start, domain.SettlementInputs{
		CourtCost:         800,
		ShuttlecockCost:   200,
		PlayersPerWeek:    12,
		WeeksToDistribute: 4,
		WalletPoolBalance: 2400,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.WeekID != "2026-W35" || rep.Version != 1 {
		t.Fatalf("report key = %s v%d, want 2026-W35 v1", rep.WeekID, rep.Version)
	}
	if rep.SessionCount != 1 || rep.TotalPlayers != 8 {
		t.Fatalf("aggregates = %d sessions / %d players, want 1/8", rep.SessionCount, rep.TotalPlayers)
	}
	if rep.TotalIncome != 1000 {
		t.Fatalf("income = %d, want 1000", rep.TotalIncome)
	}
	if rep.TotalExpenses != 1000 || rep.GrossProfit != 0 {
		t.Fatalf("expenses/profit = %d/%d, want 1000/0", rep.TotalExpenses, rep.GrossProfit)
	}

	var calc domain.PriceCalculation
	if err := json.Unmarshal(rep.PriceCalc, &calc); err != nil {
		t.Fatalf("decode calc: %v", err)
	}
	if calc.BasePrice != 83 || calc.PriceAdjustment != 50 || calc.RecommendedPrice != 33 {
		t.Fatalf("calc = %+v, want 83/50/33", calc)
	}
	if len(reports.reports) != 1 {
		t.Fatalf("%d reports stored", len(reports.reports))
	}
}

func TestRunIgnoresSessionsOutsideWeek(t *testing.T) {
	svc, sessions, ledger, _ := newSettlementFixture(t)
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	closedWeek(t, sessions, ledger, start, 4, 100)
	closedWeek(t, sessions, ledger, start.AddDate(0, 0, -7), 6, 100) // previous week

	rep, err := svc.Run(context.Background(), start, domain.SettlementInputs{
		CourtCost: 400, PlayersPerWeek: 4, WeeksToDistribute: 4,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.SessionCount != 1 || rep.TotalPlayers != 4 {
		t.Fatalf("aggregates = %d/%d, want only the in-week session (1/4)", rep.SessionCount, rep.TotalPlayers)
	}
	if rep.TotalIncome != 400 {
		t.Fatalf("income = %d, want 400 (in-week charges only)", rep.TotalIncome)
	}
}

func TestRerunSupersedesWithNewVersion(t *testing.T) {
	svc, sessions, ledger, reports := newSettlementFixture(t)
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	closedWeek(t, sessions, ledger, start, 4, 100)

	in := domain.SettlementInputs{CourtCost: 400, PlayersPerWeek: 4, WeeksToDistribute: 4}
	first, err := svc.Run(context.Background(), start, in)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	in.WalletPoolBalance = 800 // operator corrects the pool figure
	second, err := svc.Run(context.Background(), start, in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("versions = %d/%d, want 1/2", first.Version, second.Version)
	}
	if len(reports.reports) != 2 {
		t.Fatalf("%d stored reports; the first must survive as audit trail", len(reports.reports))
	}

	latest, err := svc.Report(context.Background(), second.WeekID)
	if err != nil {
		t.Fatalf("report lookup: %v", err)
	}
	if latest.Version != 2 {
		t.Fatalf("lookup returned v%d, want latest v2", latest.Version)
	}
}

func TestRunMissingInputWritesNothing(t *testing.T) {
	svc, sessions, ledger, reports := newSettlementFixture(t)
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	closedWeek(t, sessions, ledger, start, 4, 100)

	var missErr *domain.SettlementInputMissingError
	_, err := svc.Run(context.Background(), start, domain.SettlementInputs{CourtCost: 400})
	if !errors.As(err, &missErr) {
		t.Fatalf("err = %v, want SettlementInputMissingError", err)
	}
	_, err = svc.Run(context.Background(), start, domain.SettlementInputs{
		CourtCost: -1, PlayersPerWeek: 4, WeeksToDistribute: 4,
	})
	if !errors.As(err, &missErr) || missErr.Field != "court_cost" {
		t.Fatalf("err = %v, want missing court_cost", err)
	}
	if len(reports.reports) != 0 {
		t.Fatalf("aborted run stored %d reports", len(reports.reports))
	}
}
