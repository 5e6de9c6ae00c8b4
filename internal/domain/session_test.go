package domain

import (
	"errors"
	"testing"
	"time"
)

func testSession(maxPlayers int, names ...string) *Session {
	s := &Session{
		ID:            "sess-1",
		Status:        StatusPublished,
		DayLabel:      "Wednesday",
		StartTime:     "20:00",
		EndTime:       "22:00",
		Date:          time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		MaxPlayers:    maxPlayers,
		PaymentAmount: 150,
	}
	for i, n := range names {
		s.Registrations = append(s.Registrations, Registration{
			ID: "reg-" + n, SessionID: s.ID, Name: n, Position: i + 1, UserID: "user-" + n,
		})
	}
	return s
}

func TestTransitionForwardOnly(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	s := &Session{Status: StatusDraft}
	if err := s.Transition(StatusPublished, now); err != nil {
		t.Fatalf("draft -> published: %v", err)
	}
	if s.PublishedAt == nil || !s.PublishedAt.Equal(now) {
		t.Fatalf("publishedAt not set, got %v", s.PublishedAt)
	}
	if err := s.Transition(StatusLocked, now); err != nil {
		t.Fatalf("published -> locked: %v", err)
	}
	if err := s.Transition(StatusClosed, now); err != nil {
		t.Fatalf("locked -> closed: %v", err)
	}
	if s.ClosedAt == nil {
		t.Fatal("closedAt not set")
	}

	var stateErr *StateTransitionError
	if err := s.Transition(StatusPublished, now); !errors.As(err, &stateErr) {
		t.Fatalf("closed -> published should fail with StateTransitionError, got %v", err)
	}
	if s.Status != StatusClosed {
		t.Fatalf("failed transition mutated status to %s", s.Status)
	}
}

func TestTransitionPublishedStraightToClosed(t *testing.T) {
	s := &Session{Status: StatusPublished}
	if err := s.Transition(StatusClosed, time.Now()); err != nil {
		t.Fatalf("published -> closed: %v", err)
	}
}

func TestTransitionNoBackwardFromDraft(t *testing.T) {
	for _, to := range []Status{StatusLocked, StatusClosed} {
		s := &Session{Status: StatusDraft}
		if err := s.Transition(to, time.Now()); err == nil {
			t.Fatalf("draft -> %s should fail", to)
		}
	}
}

func TestNextPositionMonotonic(t *testing.T) {
	s := testSession(2, "a", "b", "c") // c is waitlisted
	if got := s.NextPosition(); got != 4 {
		t.Fatalf("next position = %d, want 4", got)
	}
	if _, err := s.CancelAt(3); err != nil {
		t.Fatalf("cancel waitlist: %v", err)
	}
	if got := s.NextPosition(); got != 3 {
		t.Fatalf("next position after tail cancel = %d, want 3", got)
	}
}

func TestRosterSplit(t *testing.T) {
	s := testSession(4, "a", "b", "c", "d", "e", "f")
	active, wl := s.Active(), s.Waitlist()
	if len(active) != 4 || len(wl) != 2 {
		t.Fatalf("split = %d active, %d waitlist; want 4/2", len(active), len(wl))
	}
	if wl[0].Name != "e" || wl[1].Name != "f" {
		t.Fatalf("waitlist order = %s,%s; want e,f", wl[0].Name, wl[1].Name)
	}
	if got := s.Occupancy(); got != "4/4" {
		t.Fatalf("occupancy = %q, want 4/4", got)
	}
}

func TestCancelActivePromotesSmallestWaitlistPosition(t *testing.T) {
	s := testSession(3, "a", "b", "c", "d", "e") // d(4), e(5) waiting

	out, err := s.CancelAt(2)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !out.WasActive || out.SlotOpened {
		t.Fatalf("outcome = %+v; want active cancel without open slot", out)
	}
	if out.Promoted == nil || out.Promoted.Name != "d" {
		t.Fatalf("promoted %+v; want d (smallest waitlist position)", out.Promoted)
	}
	if out.Promoted.Position != 2 {
		t.Fatalf("promoted into position %d, want the freed slot 2", out.Promoted.Position)
	}
	// e keeps its original position; nothing else is renumbered
	for _, r := range s.Registrations {
		if r.Name == "e" && r.Position != 5 {
			t.Fatalf("e moved to %d; waitlist must not shift", r.Position)
		}
	}
	if err := s.CheckPositions(); err != nil {
		t.Fatalf("invariant after promotion: %v", err)
	}
}

func TestCancelActiveEmptyWaitlistOpensSlot(t *testing.T) {
	s := testSession(4, "a", "b", "c")

	out, err := s.CancelAt(2)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !out.SlotOpened || out.Promoted != nil {
		t.Fatalf("outcome = %+v; want an open slot and no promotion", out)
	}
	// actives stay gapless: c moves from 3 to 2
	if err := s.CheckPositions(); err != nil {
		t.Fatalf("invariant after cancel: %v", err)
	}
	if got := s.NextPosition(); got != 3 {
		t.Fatalf("next position = %d, want 3", got)
	}
}

func TestCancelWaitlistEntryNoPromotion(t *testing.T) {
	s := testSession(2, "a", "b", "c", "d") // c(3), d(4) waiting

	out, err := s.CancelAt(3)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.WasActive || out.Promoted != nil || out.SlotOpened {
		t.Fatalf("outcome = %+v; want plain waitlist removal", out)
	}
	// d keeps position 4; waitlist positions are the strictly-increasing remainder
	wl := s.Waitlist()
	if len(wl) != 1 || wl[0].Position != 4 {
		t.Fatalf("waitlist = %+v; want d at 4", wl)
	}
	if err := s.CheckPositions(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestCancelUnknownPosition(t *testing.T) {
	s := testSession(2, "a")
	if _, err := s.CancelAt(9); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("got %v, want ErrRegistrationNotFound", err)
	}
}

func TestAddRegistrationAssignsNextPosition(t *testing.T) {
	s := testSession(2, "a")
	reg, active, err := s.AddRegistration(Registration{ID: "reg-b", Name: "b"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if reg.Position != 2 || !active {
		t.Fatalf("got position %d active=%v; want 2/true", reg.Position, active)
	}
	reg, active, err = s.AddRegistration(Registration{ID: "reg-c", Name: "c"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if reg.Position != 3 || active {
		t.Fatalf("got position %d active=%v; want 3/false (waitlist)", reg.Position, active)
	}
}

func TestCheckPositionsDetectsCorruption(t *testing.T) {
	var capErr *CapacityInvariantViolation

	dup := testSession(4, "a", "b")
	dup.Registrations[1].Position = 1
	if err := dup.CheckPositions(); !errors.As(err, &capErr) {
		t.Fatalf("duplicate position: got %v", err)
	}

	gap := testSession(4, "a", "b")
	gap.Registrations[1].Position = 4 // {1,4} leaves a gap at 2
	if err := gap.CheckPositions(); !errors.As(err, &capErr) {
		t.Fatalf("gapped roster: got %v", err)
	}

	// corrupted state halts cancellation instead of renumbering
	if _, err := gap.CancelAt(1); !errors.As(err, &capErr) {
		t.Fatalf("cancel on corrupted roster: got %v", err)
	}
}
