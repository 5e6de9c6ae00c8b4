package service

import (
	"context"
	"errors"
	"time"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
	"github.com/lapstuen/badminton-signup-sub001/internal/events"
)

// SessionStore is the durable store contract the session service needs.
// *repository.SessionRepo implements it; tests use fakes.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, status domain.Status, limit int) ([]domain.Session, error)
	ClosedBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	Publish(ctx context.Context, id string, now time.Time) (*domain.Session, error)
	Transition(ctx context.Context, id string, to domain.Status, now time.Time) (*domain.Session, error)
	Register(ctx context.Context, id string, reg domain.Registration, allowDraft bool, now time.Time) (*domain.Session, *domain.Registration, error)
	Cancel(ctx context.Context, id string, position int, now time.Time) (*domain.Session, domain.CancelOutcome, error)
}

type SessionSvc struct {
	store      SessionStore
	pub        events.Publisher
	allowDraft bool // whether signups are accepted before publish
	clock      func() time.Time
}

func NewSessionSvc(store SessionStore, pub events.Publisher, allowDraftSignup bool) *SessionSvc {
	return &SessionSvc{
		store:      store,
		pub:        pub,
		allowDraft: allowDraftSignup,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateSessionInput struct {
	DayLabel      string
	StartTime     string
	EndTime       string
	Date          time.Time
	MaxPlayers    int
	PaymentAmount int64
}

func (s *SessionSvc) Create(ctx context.Context, in CreateSessionInput) (*domain.Session, error) {
	if in.MaxPlayers <= 0 {
		return nil, errors.New("max players must be positive")
	}
	if in.PaymentAmount < 0 {
		return nil, errors.New("payment amount must not be negative")
	}
	sess := &domain.Session{
		DayLabel:      in.DayLabel,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Date:          in.Date,
		MaxPlayers:    in.MaxPlayers,
		PaymentAmount: in.PaymentAmount,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Publish charges the whole active roster and announces the session. The
// bulk charge is all-or-nothing inside the store.
func (s *SessionSvc) Publish(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.store.Publish(ctx, id, s.clock())
	if err != nil {
		return nil, err
	}
	_ = s.pub.PublishJSON(ctx, events.RKSessionPublished, events.SessionPublished{
		SessionID: sess.ID,
		Day:       sess.DayLabel,
		Time:      sess.StartTime + "-" + sess.EndTime,
		Date:      sess.Date.Format("2006-01-02"),
		Price:     sess.PaymentAmount,
		Occupancy: sess.Occupancy(),
	})
	return sess, nil
}

func (s *SessionSvc) Lock(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Transition(ctx, id, domain.StatusLocked, s.clock())
}

func (s *SessionSvc) Close(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Transition(ctx, id, domain.StatusClosed, s.clock())
}

func (s *SessionSvc) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

func (s *SessionSvc) List(ctx context.Context, status domain.Status, limit int) ([]domain.Session, error) {
	return s.store.List(ctx, status, limit)
}

// Register signs name up for the session. Guests ride on the acting user's
// wallet; a charge applies immediately only when the signup lands on the
// active roster of a published session.
func (s *SessionSvc) Register(ctx context.Context, sessionID, name string, isGuest bool, actingUser string) (*domain.Registration, bool, error) {
	reg := domain.Registration{
		Name:         name,
		IsGuest:      isGuest,
		UserID:       actingUser,
		RegisteredBy: actingUser,
	}
	sess, created, err := s.store.Register(ctx, sessionID, reg, s.allowDraft, s.clock())
	if err != nil {
		return nil, false, err
	}
	return created, created.Position <= sess.MaxPlayers, nil
}

// Cancel removes the registration at position and emits exactly one event:
// SlotAutoFilled when a waitlisted player took the slot, SlotAvailable when
// the slot is genuinely open, RegistrationCancelled for waitlist exits.
func (s *SessionSvc) Cancel(ctx context.Context, sessionID string, position int) (domain.CancelOutcome, error) {
	sess, outcome, err := s.store.Cancel(ctx, sessionID, position, s.clock())
	if err != nil {
		return domain.CancelOutcome{}, err
	}
	switch {
	case outcome.Promoted != nil:
		_ = s.pub.PublishJSON(ctx, events.RKSlotAutoFilled, events.SlotAutoFilled{
			SessionID:    sess.ID,
			PromotedName: outcome.Promoted.Name,
			Occupancy:    sess.Occupancy(),
		})
	case outcome.SlotOpened:
		_ = s.pub.PublishJSON(ctx, events.RKSlotAvailable, events.SlotAvailable{
			SessionID:   sess.ID,
			CancelledBy: outcome.Removed.Name,
			Occupancy:   sess.Occupancy(),
			Day:         sess.DayLabel,
			Time:        sess.StartTime + "-" + sess.EndTime,
			Date:        sess.Date.Format("2006-01-02"),
		})
	default:
		_ = s.pub.PublishJSON(ctx, events.RKRegistrationCancelled, events.RegistrationCancelled{
			SessionID: sess.ID,
			Name:      outcome.Removed.Name,
			Occupancy: sess.Occupancy(),
			Day:       sess.DayLabel,
			Time:      sess.StartTime + "-" + sess.EndTime,
			Date:      sess.Date.Format("2006-01-02"),
		})
	}
	return outcome, nil
}
