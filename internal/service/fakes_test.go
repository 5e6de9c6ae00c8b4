package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

// The fakes mirror the repository contracts in memory: every multi-step
// operation either commits all of its effects or none of them, same as the
// gorm transactions they stand in for.

type recordedEvent struct {
	Key     string
	Payload any
}

type fakePublisher struct {
	events []recordedEvent
}

func (p *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.events = append(p.events, recordedEvent{Key: key, Payload: v})
	return nil
}

func (p *fakePublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Key)
	}
	return out
}

type fakeLedger struct {
	floor    int64
	balances map[string]int64
	txns     []domain.WalletTransaction
	consumed map[string]bool
	seq      int
}

func newFakeLedger(floor int64) *fakeLedger {
	return &fakeLedger{
		floor:    floor,
		balances: map[string]int64{},
		consumed: map[string]bool{},
	}
}

type ledgerMark struct {
	balances map[string]int64
	txnLen   int
}

func (l *fakeLedger) mark() ledgerMark {
	snap := make(map[string]int64, len(l.balances))
	for k, v := range l.balances {
		snap[k] = v
	}
	return ledgerMark{balances: snap, txnLen: len(l.txns)}
}

func (l *fakeLedger) rollback(m ledgerMark) {
	l.balances = m.balances
	l.txns = l.txns[:m.txnLen]
}

func (l *fakeLedger) apply(userID string, amount int64, typ domain.TxnType, sessionID, refID, note string, at time.Time) (*domain.WalletTransaction, error) {
	next, err := domain.NextBalance(userID, l.balances[userID], amount, l.floor)
	if err != nil {
		return nil, err
	}
	l.seq++
	txn := domain.WalletTransaction{
		ID:               fmt.Sprintf("txn-%d", l.seq),
		UserID:           userID,
		Amount:           amount,
		Type:             typ,
		RelatedSessionID: sessionID,
		RefID:            refID,
		Note:             note,
		BalanceAfter:     next,
		CreatedAt:        at,
	}
	l.balances[userID] = next
	l.txns = append(l.txns, txn)
	return &txn, nil
}

func (l *fakeLedger) Apply(_ context.Context, userID string, amount int64, typ domain.TxnType, relatedSessionID string) (*domain.WalletTransaction, error) {
	return l.apply(userID, amount, typ, relatedSessionID, "", "", time.Now())
}

func (l *fakeLedger) TopUpOnce(_ context.Context, eventID, userID string, amount int64) (*domain.WalletTransaction, bool, error) {
	if l.consumed[eventID] {
		return nil, false, nil
	}
	txn, err := l.apply(userID, amount, domain.TxnTopUp, "", "", "", time.Now())
	if err != nil {
		return nil, false, err
	}
	l.consumed[eventID] = true
	return txn, true, nil
}

func (l *fakeLedger) Transfer(_ context.Context, fromUserID, toUserID string, amount int64, note string) (*domain.WalletTransaction, *domain.WalletTransaction, error) {
	m := l.mark()
	refID := fmt.Sprintf("ref-%d", len(l.txns)+1)
	out, err := l.apply(fromUserID, -amount, domain.TxnPeerTransferOut, "", refID, note, time.Now())
	if err != nil {
		l.rollback(m)
		return nil, nil, err
	}
	in, err := l.apply(toUserID, amount, domain.TxnPeerTransferIn, "", refID, note, time.Now())
	if err != nil {
		l.rollback(m)
		return nil, nil, err
	}
	return out, in, nil
}

func (l *fakeLedger) Balance(_ context.Context, userID string) (int64, error) {
	return l.balances[userID], nil
}

func (l *fakeLedger) Transactions(_ context.Context, userID string, limit int) ([]domain.WalletTransaction, error) {
	var out []domain.WalletTransaction
	for i := len(l.txns) - 1; i >= 0; i-- {
		if l.txns[i].UserID == userID {
			out = append(out, l.txns[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *fakeLedger) SumChargesBetween(_ context.Context, from, to time.Time) (int64, error) {
	var sum int64
	for _, txn := range l.txns {
		if txn.Type != domain.TxnSessionCharge {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		sum += -txn.Amount
	}
	return sum, nil
}

func (l *fakeLedger) txnsOfType(typ domain.TxnType) []domain.WalletTransaction {
	var out []domain.WalletTransaction
	for _, txn := range l.txns {
		if txn.Type == typ {
			out = append(out, txn)
		}
	}
	return out
}

type fakeSessionStore struct {
	sessions map[string]*domain.Session
	ledger   *fakeLedger
	seq      int
}

func newFakeSessionStore(ledger *fakeLedger) *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*domain.Session{}, ledger: ledger}
}

func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	cp.Registrations = make([]domain.Registration, len(s.Registrations))
	copy(cp.Registrations, s.Registrations)
	return &cp
}

func (st *fakeSessionStore) get(id string) (*domain.Session, error) {
	s, ok := st.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (st *fakeSessionStore) Create(_ context.Context, s *domain.Session) error {
	st.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sess-%d", st.seq)
	}
	s.Status = domain.StatusDraft
	st.sessions[s.ID] = cloneSession(s)
	return nil
}

func (st *fakeSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s, err := st.get(id)
	if err != nil {
		return nil, err
	}
	return cloneSession(s), nil
}

func (st *fakeSessionStore) List(_ context.Context, status domain.Status, limit int) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range st.sessions {
		if status == "" || s.Status == status {
			out = append(out, *cloneSession(s))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (st *fakeSessionStore) ClosedBetween(_ context.Context, from, to time.Time) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range st.sessions {
		if s.Status != domain.StatusClosed || s.ClosedAt == nil {
			continue
		}
		if s.ClosedAt.Before(from) || !s.ClosedAt.Before(to) {
			continue
		}
		out = append(out, *cloneSession(s))
	}
	return out, nil
}

func (st *fakeSessionStore) Publish(_ context.Context, id string, now time.Time) (*domain.Session, error) {
	cur, err := st.get(id)
	if err != nil {
		return nil, err
	}
	s := cloneSession(cur)
	if err := s.Transition(domain.StatusPublished, now); err != nil {
		return nil, err
	}
	if err := s.CheckPositions(); err != nil {
		return nil, err
	}
	m := st.ledger.mark()
	for i := range s.Registrations {
		reg := &s.Registrations[i]
		if reg.Position > s.MaxPlayers || reg.Paid {
			continue
		}
		if _, err := st.ledger.apply(reg.UserID, -s.PaymentAmount, domain.TxnSessionCharge, s.ID, "", "", now); err != nil {
			st.ledger.rollback(m)
			return nil, err
		}
		reg.Paid = true
	}
	st.sessions[id] = s
	return cloneSession(s), nil
}

func (st *fakeSessionStore) Transition(_ context.Context, id string, to domain.Status, now time.Time) (*domain.Session, error) {
	cur, err := st.get(id)
	if err != nil {
		return nil, err
	}
	s := cloneSession(cur)
	if err := s.Transition(to, now); err != nil {
		return nil, err
	}
	st.sessions[id] = s
	return cloneSession(s), nil
}

func (st *fakeSessionStore) Register(_ context.Context, id string, reg domain.Registration, allowDraft bool, now time.Time) (*domain.Session, *domain.Registration, error) {
	cur, err := st.get(id)
	if err != nil {
		return nil, nil, err
	}
	s := cloneSession(cur)
	switch s.Status {
	case domain.StatusPublished:
	case domain.StatusDraft:
		if !allowDraft {
			return nil, nil, domain.ErrRegistrationClosed
		}
	default:
		return nil, nil, domain.ErrRegistrationClosed
	}
	st.seq++
	reg.ID = fmt.Sprintf("reg-%d", st.seq)
	reg.SessionID = s.ID
	reg.RegisteredAt = now
	created, active, err := s.AddRegistration(reg)
	if err != nil {
		return nil, nil, err
	}
	if active && s.Status == domain.StatusPublished {
		if _, err := st.ledger.apply(created.UserID, -s.PaymentAmount, domain.TxnSessionCharge, s.ID, "", "", now); err != nil {
			return nil, nil, err
		}
		created.Paid = true
		for i := range s.Registrations {
			if s.Registrations[i].ID == created.ID {
				s.Registrations[i].Paid = true
			}
		}
	}
	st.sessions[id] = s
	return cloneSession(s), &created, nil
}

func (st *fakeSessionStore) Cancel(_ context.Context, id string, position int, now time.Time) (*domain.Session, domain.CancelOutcome, error) {
	cur, err := st.get(id)
	if err != nil {
		return nil, domain.CancelOutcome{}, err
	}
	s := cloneSession(cur)
	if s.Status != domain.StatusPublished {
		return nil, domain.CancelOutcome{}, domain.ErrRegistrationClosed
	}
	outcome, err := s.CancelAt(position)
	if err != nil {
		return nil, domain.CancelOutcome{}, err
	}
	m := st.ledger.mark()
	if outcome.Removed.Paid {
		if _, err := st.ledger.apply(outcome.Removed.UserID, s.PaymentAmount, domain.TxnCancellationRefund, s.ID, "", "", now); err != nil {
			st.ledger.rollback(m)
			return nil, domain.CancelOutcome{}, err
		}
	}
	if outcome.Promoted != nil {
		if _, err := st.ledger.apply(outcome.Promoted.UserID, -s.PaymentAmount, domain.TxnSessionCharge, s.ID, "", "", now); err != nil {
			st.ledger.rollback(m)
			return nil, domain.CancelOutcome{}, err
		}
		outcome.Promoted.Paid = true
	}
	st.sessions[id] = s
	return cloneSession(s), outcome, nil
}

type fakeReportStore struct {
	reports []domain.WeeklyBalanceReport
	seq     int
}

func (st *fakeReportStore) Create(_ context.Context, rep *domain.WeeklyBalanceReport) error {
	st.seq++
	rep.ID = fmt.Sprintf("rep-%d", st.seq)
	rep.Version = 1
	for _, prev := range st.reports {
		if prev.WeekID == rep.WeekID && prev.Version >= rep.Version {
			rep.Version = prev.Version + 1
		}
	}
	st.reports = append(st.reports, *rep)
	return nil
}

func (st *fakeReportStore) ByWeek(_ context.Context, weekID string) (*domain.WeeklyBalanceReport, error) {
	var found *domain.WeeklyBalanceReport
	for i := range st.reports {
		rep := st.reports[i]
		if rep.WeekID == weekID && (found == nil || rep.Version > found.Version) {
			found = &st.reports[i]
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

func (st *fakeReportStore) List(_ context.Context, limit int) ([]domain.WeeklyBalanceReport, error) {
	out := make([]domain.WeeklyBalanceReport, len(st.reports))
	copy(out, st.reports)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
