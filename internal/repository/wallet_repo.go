package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

// WalletRepo is the only writer of balances. Every mutation appends a
// transaction row and updates the cached balance in the same DB transaction,
// under a row lock on the account, so BalanceAfter values form a gap-free
// chain per user.
type WalletRepo struct {
	db    *gorm.DB
	floor int64
}

func NewWalletRepo(db *gorm.DB, floor int64) *WalletRepo {
	return &WalletRepo{db: db, floor: floor}
}

func (r *WalletRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.WalletAccount{}, &domain.WalletTransaction{}, &domain.EventConsumed{})
}

// translateLock maps postgres lock_not_available (NOWAIT) onto the retryable
// contention error.
func translateLock(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return fmt.Errorf("%w: %v", domain.ErrContention, err)
	}
	return err
}

func lockAccount(tx *gorm.DB, userID string) (*domain.WalletAccount, error) {
	acct := domain.WalletAccount{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
		return nil, err
	}
	var out domain.WalletAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		First(&out, "user_id = ?", userID).Error
	if err != nil {
		return nil, translateLock(err)
	}
	return &out, nil
}

type applyInput struct {
	UserID           string
	Amount           int64
	Type             domain.TxnType
	RelatedSessionID string
	RefID            string
	Note             string
}

// ApplyInTx appends one ledger entry inside an existing gorm transaction.
// SessionRepo composes it into its own multi-step transactions (publish-time
// bulk charge, cancel/refund/promote).
func (r *WalletRepo) ApplyInTx(tx *gorm.DB, in applyInput, now time.Time) (*domain.WalletTransaction, error) {
	acct, err := lockAccount(tx, in.UserID)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextBalance(in.UserID, acct.Balance, in.Amount, r.floor)
	if err != nil {
		return nil, err
	}
	txn := domain.WalletTransaction{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		Amount:           in.Amount,
		Type:             in.Type,
		RelatedSessionID: in.RelatedSessionID,
		RefID:            in.RefID,
		Note:             in.Note,
		BalanceAfter:     next,
		CreatedAt:        now,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}
	acct.Balance = next
	acct.UpdatedAt = now
	if err := tx.Save(acct).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *WalletRepo) Apply(ctx context.Context, userID string, amount int64, typ domain.TxnType, relatedSessionID string) (*domain.WalletTransaction, error) {
	var out *domain.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := r.ApplyInTx(tx, applyInput{
			UserID:           userID,
			Amount:           amount,
			Type:             typ,
			RelatedSessionID: relatedSessionID,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transfer writes the debit and the credit in one transaction sharing a
// RefID. Accounts are locked in userID order so two opposing transfers
// cannot deadlock.
func (r *WalletRepo) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, note string) (out, in *domain.WalletTransaction, err error) {
	if amount <= 0 {
		return nil, nil, errors.New("transfer amount must be positive")
	}
	if fromUserID == toUserID {
		return nil, nil, errors.New("transfer to self")
	}
	refID := uuid.NewString()
	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		if _, err := lockAccount(tx, first); err != nil {
			return err
		}
		if _, err := lockAccount(tx, second); err != nil {
			return err
		}
		var err error
		out, err = r.ApplyInTx(tx, applyInput{
			UserID: fromUserID, Amount: -amount, Type: domain.TxnPeerTransferOut,
			RefID: refID, Note: note,
		}, now)
		if err != nil {
			return err
		}
		in, err = r.ApplyInTx(tx, applyInput{
			UserID: toUserID, Amount: amount, Type: domain.TxnPeerTransferIn,
			RefID: refID, Note: note,
		}, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// TopUpOnce credits a confirmed payment exactly once per provider event id.
// A replayed webhook returns applied=false with no new ledger entry.
func (r *WalletRepo) TopUpOnce(ctx context.Context, eventID, userID string, amount int64) (txn *domain.WalletTransaction, applied bool, err error) {
	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", eventID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}
		t, err := r.ApplyInTx(tx, applyInput{
			UserID: userID, Amount: amount, Type: domain.TxnTopUp, RefID: eventID,
		}, now)
		if err != nil {
			return err
		}
		rec := domain.EventConsumed{ID: eventID, EventKey: string(domain.TxnTopUp), ProcessedAt: now}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		txn = t
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return txn, applied, nil
}

func (r *WalletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var acct domain.WalletAccount
	err := r.db.WithContext(ctx).First(&acct, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (r *WalletRepo) Transactions(ctx context.Context, userID string, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&out).Error
	return out, err
}

// SumChargesBetween totals sessionCharge magnitude in [from, to); the
// settlement engine reads income from it.
func (r *WalletRepo) SumChargesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Model(&domain.WalletTransaction{}).
		Select("SUM(-amount)").
		Where("type = ? AND created_at >= ? AND created_at < ?", domain.TxnSessionCharge, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
