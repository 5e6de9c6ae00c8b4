package domain

import (
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusLocked    Status = "LOCKED"
	StatusClosed    Status = "CLOSED"
)

// Session is the aggregate root for one play date: lifecycle status plus the
// ordered player list. Positions 1..MaxPlayers are the active roster,
// anything above is the waiting list.
type Session struct {
	ID            string `gorm:"primaryKey"`
	Status        Status `gorm:"index"`
	DayLabel      string // e.g. "Wednesday"
	StartTime     string // "20:00"
	EndTime       string // "22:00"
	Date          time.Time `gorm:"index"`
	MaxPlayers    int
	PaymentAmount int64 // baht per player
	CreatedAt     time.Time
	PublishedAt   *time.Time
	ClosedAt      *time.Time

	Registrations []Registration `gorm:"foreignKey:SessionID"`
}

type Registration struct {
	ID           string `gorm:"primaryKey"`
	SessionID    string `gorm:"index"`
	Name         string
	Position     int  // unique within the session
	Paid         bool // a session charge has been applied for this entry
	ClickedPay   bool
	IsGuest      bool
	UserID       string `gorm:"index"` // wallet owner; the acting user for guests
	RegisteredBy string
	RegisteredAt time.Time
}

var transitions = map[Status][]Status{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusLocked, StatusClosed},
	StatusLocked:    {StatusClosed},
	StatusClosed:    {},
}

func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves the session forward. Transitions are monotonic; anything
// else fails with StateTransitionError and leaves the session untouched.
func (s *Session) Transition(to Status, now time.Time) error {
	if !CanTransition(s.Status, to) {
		return &StateTransitionError{From: s.Status, To: to}
	}
	s.Status = to
	switch to {
	case StatusPublished:
		t := now
		s.PublishedAt = &t
	case StatusClosed:
		t := now
		s.ClosedAt = &t
	}
	return nil
}

// sorted returns registrations ordered by position.
func (s *Session) sorted() []Registration {
	out := make([]Registration, len(s.Registrations))
	copy(out, s.Registrations)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Active returns the active roster (position <= MaxPlayers) in order.
func (s *Session) Active() []Registration {
	var out []Registration
	for _, r := range s.sorted() {
		if r.Position <= s.MaxPlayers {
			out = append(out, r)
		}
	}
	return out
}

// Waitlist returns waiting entries (position > MaxPlayers) in order.
func (s *Session) Waitlist() []Registration {
	var out []Registration
	for _, r := range s.sorted() {
		if r.Position > s.MaxPlayers {
			out = append(out, r)
		}
	}
	return out
}

// Occupancy renders "active/max" for notification payloads.
func (s *Session) Occupancy() string {
	return fmt.Sprintf("%d/%d", len(s.Active()), s.MaxPlayers)
}

// NextPosition is the monotonic assignment counter: max existing + 1,
// starting at 1.
func (s *Session) NextPosition() int {
	max := 0
	for _, r := range s.Registrations {
		if r.Position > max {
			max = r.Position
		}
	}
	return max + 1
}

// CheckPositions verifies the roster invariant: positions unique, actives
// gapless at {1..k}. A violation means corrupted state and must abort the
// enclosing operation.
func (s *Session) CheckPositions() error {
	seen := map[int]bool{}
	for _, r := range s.Registrations {
		if r.Position < 1 {
			return &CapacityInvariantViolation{SessionID: s.ID, Detail: fmt.Sprintf("position %d < 1", r.Position)}
		}
		if seen[r.Position] {
			return &CapacityInvariantViolation{SessionID: s.ID, Detail: fmt.Sprintf("duplicate position %d", r.Position)}
		}
		seen[r.Position] = true
	}
	active := 0
	for p := range seen {
		if p <= s.MaxPlayers {
			active++
		}
	}
	for p := 1; p <= active; p++ {
		if !seen[p] {
			return &CapacityInvariantViolation{SessionID: s.ID, Detail: fmt.Sprintf("gap at active position %d", p)}
		}
	}
	return nil
}

// AddRegistration appends a new entry at the next position and reports
// whether it landed on the active roster.
func (s *Session) AddRegistration(r Registration) (Registration, bool, error) {
	if err := s.CheckPositions(); err != nil {
		return Registration{}, false, err
	}
	r.Position = s.NextPosition()
	s.Registrations = append(s.Registrations, r)
	return r, r.Position <= s.MaxPlayers, nil
}

// CancelOutcome describes what a cancellation did, so the caller can apply
// wallet side effects and pick the notification event.
type CancelOutcome struct {
	Removed    Registration
	WasActive  bool
	Promoted   *Registration // earliest waitlisted entry moved into the freed slot
	SlotOpened bool          // active slot freed with nobody to promote
}

// CancelAt removes the registration at position and keeps the roster
// invariant: an active cancellation promotes the earliest waitlisted entry
// into the freed slot number (only the promoted entry moves); with an empty
// waitlist the actives above the freed slot shift down one so active
// positions stay gapless. Waitlist cancellations remove the entry only.
func (s *Session) CancelAt(position int) (CancelOutcome, error) {
	if err := s.CheckPositions(); err != nil {
		return CancelOutcome{}, err
	}
	idx := -1
	for i, r := range s.Registrations {
		if r.Position == position {
			idx = i
			break
		}
	}
	if idx < 0 {
		return CancelOutcome{}, ErrRegistrationNotFound
	}

	out := CancelOutcome{Removed: s.Registrations[idx], WasActive: position <= s.MaxPlayers}
	s.Registrations = append(s.Registrations[:idx], s.Registrations[idx+1:]...)

	if !out.WasActive {
		return out, nil
	}

	wl := s.Waitlist()
	if len(wl) > 0 {
		// Promote by smallest waitlist position; nothing else reorders.
		cand := wl[0]
		for i := range s.Registrations {
			if s.Registrations[i].ID == cand.ID {
				s.Registrations[i].Position = position
				out.Promoted = &s.Registrations[i]
				break
			}
		}
		return out, nil
	}

	// No one to promote: close the gap so actives remain {1..k}.
	for i := range s.Registrations {
		if p := s.Registrations[i].Position; p > position && p <= s.MaxPlayers {
			s.Registrations[i].Position = p - 1
		}
	}
	out.SlotOpened = true
	return out, nil
}
