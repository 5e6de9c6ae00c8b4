package domain

import "time"

type TxnType string

const (
	TxnTopUp              TxnType = "topUp"
	TxnSessionCharge      TxnType = "sessionCharge"
	TxnCancellationRefund TxnType = "cancellationRefund"
	TxnPeerTransferOut    TxnType = "peerTransferOut"
	TxnPeerTransferIn     TxnType = "peerTransferIn"
	TxnAdjustment         TxnType = "adjustment"
)

// WalletAccount caches the running balance. The transaction log is the
// source of truth; Balance is a derived projection kept in step by the
// ledger and never written anywhere else.
type WalletAccount struct {
	UserID    string `gorm:"primaryKey"`
	Balance   int64  // baht, signed
	UpdatedAt time.Time
}

// WalletTransaction is append-only. BalanceAfter snapshots the balance the
// ledger computed at commit time, so the chain of BalanceAfter values is an
// audit trail that must be gap-free per user.
type WalletTransaction struct {
	ID               string  `gorm:"primaryKey"`
	UserID           string  `gorm:"index"`
	Amount           int64   // signed baht
	Type             TxnType `gorm:"index"`
	RelatedSessionID string  `gorm:"index"`
	RefID            string  `gorm:"index"` // pairs the two legs of a transfer
	Note             string
	BalanceAfter     int64
	CreatedAt        time.Time `gorm:"index"`
}

// EventConsumed dedupes externally-delivered payment events (webhook
// retries must not double-credit a top-up).
type EventConsumed struct {
	ID          string `gorm:"primaryKey"` // provider event id
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}

// NextBalance applies amount against balance under the overdraft floor.
func NextBalance(userID string, balance, amount, floor int64) (int64, error) {
	next := balance + amount
	if amount < 0 && next < floor {
		return 0, &InsufficientBalanceError{UserID: userID, Balance: balance, Amount: amount, Floor: floor}
	}
	return next, nil
}
