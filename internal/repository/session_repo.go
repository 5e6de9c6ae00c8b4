package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

// SessionRepo persists sessions and their rosters. Every multi-step
// operation (publish-time bulk charge, register-with-charge, cancel with
// refund/promotion) runs inside one gorm transaction with the session row
// locked FOR UPDATE NOWAIT, so concurrent writers on the same session either
// serialize or fail fast with ErrContention.
type SessionRepo struct {
	db     *gorm.DB
	wallet *WalletRepo
}

func NewSessionRepo(db *gorm.DB, wallet *WalletRepo) *SessionRepo {
	return &SessionRepo{db: db, wallet: wallet}
}

func (r *SessionRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Session{}, &domain.Registration{})
}

func lockSession(tx *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translateLock(err)
	}
	if err := tx.Where("session_id = ?", id).Order("position ASC").
		Find(&s.Registrations).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Status = domain.StatusDraft
	s.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).
		Preload("Registrations", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) List(ctx context.Context, status domain.Status, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	qb := r.db.WithContext(ctx).Model(&domain.Session{}).Order("date DESC").Limit(limit)
	if status != "" {
		qb = qb.Where("status = ?", status)
	}
	var out []domain.Session
	err := qb.Find(&out).Error
	return out, err
}

// ClosedBetween returns sessions closed within [from, to) with rosters, for
// settlement aggregation. Closed sessions are archived, never deleted.
func (r *SessionRepo) ClosedBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	var out []domain.Session
	err := r.db.WithContext(ctx).
		Preload("Registrations").
		Where("status = ? AND closed_at >= ? AND closed_at < ?", domain.StatusClosed, from, to).
		Order("closed_at ASC").
		Find(&out).Error
	return out, err
}

// Publish transitions draft -> published and charges every active-roster
// registrant in the same transaction. One failed charge rolls back all of
// them and the status stays draft.
func (r *SessionRepo) Publish(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	var out *domain.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, id)
		if err != nil {
			return err
		}
		if err := s.Transition(domain.StatusPublished, now); err != nil {
			return err
		}
		if err := s.CheckPositions(); err != nil {
			return err
		}
		for i := range s.Registrations {
			reg := &s.Registrations[i]
			if reg.Position > s.MaxPlayers || reg.Paid {
				continue
			}
			_, err := r.wallet.ApplyInTx(tx, applyInput{
				UserID:           reg.UserID,
				Amount:           -s.PaymentAmount,
				Type:             domain.TxnSessionCharge,
				RelatedSessionID: s.ID,
			}, now)
			if err != nil {
				return err
			}
			reg.Paid = true
			if err := tx.Model(&domain.Registration{}).Where("id = ?", reg.ID).
				Update("paid", true).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&domain.Session{}).Where("id = ?", s.ID).
			Updates(map[string]any{"status": s.Status, "published_at": s.PublishedAt}).Error; err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transition applies lock/close; no wallet side effects.
func (r *SessionRepo) Transition(ctx context.Context, id string, to domain.Status, now time.Time) (*domain.Session, error) {
	var out *domain.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, id)
		if err != nil {
			return err
		}
		if err := s.Transition(to, now); err != nil {
			return err
		}
		if err := tx.Model(&domain.Session{}).Where("id = ?", s.ID).
			Updates(map[string]any{"status": s.Status, "closed_at": s.ClosedAt}).Error; err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register appends the registrant at the next position. Landing on the
// active roster of an already-published session charges immediately, in the
// same transaction.
func (r *SessionRepo) Register(ctx context.Context, id string, reg domain.Registration, allowDraft bool, now time.Time) (*domain.Session, *domain.Registration, error) {
	var (
		outS *domain.Session
		outR *domain.Registration
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, id)
		if err != nil {
			return err
		}
		switch s.Status {
		case domain.StatusPublished:
		case domain.StatusDraft:
			if !allowDraft {
				return domain.ErrRegistrationClosed
			}
		default:
			return domain.ErrRegistrationClosed
		}
		reg.ID = uuid.NewString()
		reg.SessionID = s.ID
		reg.RegisteredAt = now
		created, active, err := s.AddRegistration(reg)
		if err != nil {
			return err
		}
		if active && s.Status == domain.StatusPublished {
			_, err := r.wallet.ApplyInTx(tx, applyInput{
				UserID:           created.UserID,
				Amount:           -s.PaymentAmount,
				Type:             domain.TxnSessionCharge,
				RelatedSessionID: s.ID,
			}, now)
			if err != nil {
				return err
			}
			created.Paid = true
			for i := range s.Registrations {
				if s.Registrations[i].ID == created.ID {
					s.Registrations[i].Paid = true
				}
			}
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		outS, outR = s, &created
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outS, outR, nil
}

// Cancel removes the registration at position and commits refund, promotion
// reseating and promotion charge as one unit, or none of them. The returned
// outcome lets the service pick the right notification event after commit.
func (r *SessionRepo) Cancel(ctx context.Context, id string, position int, now time.Time) (*domain.Session, domain.CancelOutcome, error) {
	var (
		outS *domain.Session
		outO domain.CancelOutcome
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := lockSession(tx, id)
		if err != nil {
			return err
		}
		if s.Status != domain.StatusPublished {
			return domain.ErrRegistrationClosed
		}
		oldPos := make(map[string]int, len(s.Registrations))
		for _, reg := range s.Registrations {
			oldPos[reg.ID] = reg.Position
		}
		outcome, err := s.CancelAt(position)
		if err != nil {
			return err
		}
		if outcome.Removed.Paid {
			_, err := r.wallet.ApplyInTx(tx, applyInput{
				UserID:           outcome.Removed.UserID,
				Amount:           s.PaymentAmount,
				Type:             domain.TxnCancellationRefund,
				RelatedSessionID: s.ID,
			}, now)
			if err != nil {
				return err
			}
		}
		if outcome.Promoted != nil {
			_, err := r.wallet.ApplyInTx(tx, applyInput{
				UserID:           outcome.Promoted.UserID,
				Amount:           -s.PaymentAmount,
				Type:             domain.TxnSessionCharge,
				RelatedSessionID: s.ID,
			}, now)
			if err != nil {
				return err
			}
			outcome.Promoted.Paid = true
		}
		if err := tx.Delete(&domain.Registration{}, "id = ?", outcome.Removed.ID).Error; err != nil {
			return err
		}
		for i := range s.Registrations {
			reg := s.Registrations[i]
			if oldPos[reg.ID] != reg.Position || (outcome.Promoted != nil && reg.ID == outcome.Promoted.ID) {
				if err := tx.Model(&domain.Registration{}).Where("id = ?", reg.ID).
					Updates(map[string]any{"position": reg.Position, "paid": reg.Paid}).Error; err != nil {
					return err
				}
			}
		}
		outS, outO = s, outcome
		return nil
	})
	if err != nil {
		return nil, domain.CancelOutcome{}, err
	}
	return outS, outO, nil
}
