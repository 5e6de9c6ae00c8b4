package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Routing keys published by the core. The notify worker binds session.* and
// wallet.* and owns all formatting/delivery.
const (
	RKSessionPublished      = "session.published"
	RKSlotAvailable         = "session.slot_available"
	RKSlotAutoFilled        = "session.slot_autofilled"
	RKRegistrationCancelled = "session.registration_cancelled"
	RKWalletTopUp           = "wallet.topup"
)

// Publisher is what the services need; *mq.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type SessionPublished struct {
	SessionID string `json:"session_id"`
	Day       string `json:"day"`
	Time      string `json:"time"` // "20:00-22:00"
	Date      string `json:"date"` // "2026-09-02"
	Price     int64  `json:"price"`
	Occupancy string `json:"occupancy"` // "12/16"
}

// SlotAvailable fires only when an active slot frees with nobody waiting;
// it is the one event that invites new signups.
type SlotAvailable struct {
	SessionID   string `json:"session_id"`
	CancelledBy string `json:"cancelled_by"`
	Occupancy   string `json:"occupancy"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	Date        string `json:"date"`
}

// SlotAutoFilled fires when a waitlisted player takes a vacated slot. The
// vacancy never became externally visible, so no SlotAvailable accompanies it.
type SlotAutoFilled struct {
	SessionID    string `json:"session_id"`
	PromotedName string `json:"promoted_name"`
	Occupancy    string `json:"occupancy"`
}

type RegistrationCancelled struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Occupancy string `json:"occupancy"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	Date      string `json:"date"`
}

type WalletTopUp struct {
	UserID       string `json:"user_id"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
