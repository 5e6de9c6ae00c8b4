package service

import (
	"context"
	"errors"
	"time"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
	"github.com/lapstuen/badminton-signup-sub001/internal/events"
)

// WalletLedger is the ledger contract; *repository.WalletRepo implements it.
type WalletLedger interface {
	Apply(ctx context.Context, userID string, amount int64, typ domain.TxnType, relatedSessionID string) (*domain.WalletTransaction, error)
	TopUpOnce(ctx context.Context, eventID, userID string, amount int64) (*domain.WalletTransaction, bool, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, note string) (*domain.WalletTransaction, *domain.WalletTransaction, error)
	Balance(ctx context.Context, userID string) (int64, error)
	Transactions(ctx context.Context, userID string, limit int) ([]domain.WalletTransaction, error)
	SumChargesBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type WalletSvc struct {
	ledger WalletLedger
	pub    events.Publisher
}

func NewWalletSvc(ledger WalletLedger, pub events.Publisher) *WalletSvc {
	return &WalletSvc{ledger: ledger, pub: pub}
}

// ConfirmTopUp credits a confirmed payment onto the user's wallet, at most
// once per provider event id. Webhook retries come back applied=false.
func (s *WalletSvc) ConfirmTopUp(ctx context.Context, eventID, userID string, amount int64) (*domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, errors.New("topup amount must be positive")
	}
	txn, applied, err := s.ledger.TopUpOnce(ctx, eventID, userID, amount)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, nil
	}
	_ = s.pub.PublishJSON(ctx, events.RKWalletTopUp, events.WalletTopUp{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: txn.BalanceAfter,
	})
	return txn, nil
}

// Adjust is the admin escape hatch; amount may be negative but still honors
// the configured floor.
func (s *WalletSvc) Adjust(ctx context.Context, userID string, amount int64) (*domain.WalletTransaction, error) {
	if amount == 0 {
		return nil, errors.New("adjustment amount must not be zero")
	}
	return s.ledger.Apply(ctx, userID, amount, domain.TxnAdjustment, "")
}

func (s *WalletSvc) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, note string) (*domain.WalletTransaction, *domain.WalletTransaction, error) {
	return s.ledger.Transfer(ctx, fromUserID, toUserID, amount, note)
}

type WalletStatement struct {
	UserID       string
	Balance      int64
	Transactions []domain.WalletTransaction
}

func (s *WalletSvc) Statement(ctx context.Context, userID string, limit int) (*WalletStatement, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.ledger.Transactions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &WalletStatement{UserID: userID, Balance: balance, Transactions: txns}, nil
}
