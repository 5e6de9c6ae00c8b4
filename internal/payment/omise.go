package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"github.com/lapstuen/badminton-signup-sub001/internal/service"
)

func NewClient(pub, sec string) (*omise.Client, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return c, nil
}

// TopUpSvc turns confirmed Omise charges into wallet topUp entries. The
// charge carries user_id in metadata; the webhook path is the source of
// truth for the final status.
type TopUpSvc struct {
	omc    *omise.Client
	wallet *service.WalletSvc
}

func NewTopUpSvc(omc *omise.Client, wallet *service.WalletSvc) *TopUpSvc {
	return &TopUpSvc{omc: omc, wallet: wallet}
}

type CreateTopUpInput struct {
	UserID    string
	Amount    int64 // satang for THB per Omise convention; baht x100
	CardToken string
	PromptPay bool
}

// CreateCharge starts a top-up. Card tokens settle synchronously when the
// gateway says so; promptpay always waits for the webhook.
func (s *TopUpSvc) CreateCharge(ctx context.Context, in CreateTopUpInput) (*omise.Charge, error) {
	if in.Amount <= 0 || in.UserID == "" {
		return nil, errors.New("invalid params")
	}
	req := &operations.CreateCharge{
		Amount:   in.Amount,
		Currency: "thb",
		Metadata: map[string]any{"user_id": in.UserID},
	}
	switch {
	case in.CardToken != "":
		req.Card = in.CardToken
	case in.PromptPay:
		src := &omise.Source{}
		if err := s.omc.Do(src, &operations.CreateSource{
			Type: "promptpay", Amount: in.Amount, Currency: "thb",
		}); err != nil {
			return nil, err
		}
		req.Source = src.ID
	default:
		return nil, errors.New("either card_token or promptpay is required")
	}

	ch := &omise.Charge{}
	if err := s.omc.Do(ch, req); err != nil {
		return nil, err
	}
	if err := s.creditCharge(ctx, ch); err != nil {
		log.Printf("[payment] credit topup charge=%s err=%v", ch.ID, err)
	}
	return ch, nil
}

// creditCharge credits the wallet for a successful charge. The charge id is
// the idempotency key, so the synchronous card path and the charge.complete
// webhook dedupe against each other: whichever runs second is a no-op.
func (s *TopUpSvc) creditCharge(ctx context.Context, ch *omise.Charge) error {
	userID, _ := ch.Metadata["user_id"].(string)
	if ch.Status != "successful" || userID == "" {
		return nil
	}
	_, err := s.wallet.ConfirmTopUp(ctx, ch.ID, userID, bahtFromSatang(ch.Amount))
	return err
}

func bahtFromSatang(amount int64) int64 {
	return amount / 100
}

type incomingEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// WebhookHandler verifies the event against Omise (never trusts the posted
// body) and credits the wallet on charge.complete/successful.
func (s *TopUpSvc) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var inc incomingEvent
	if err := json.NewDecoder(r.Body).Decode(&inc); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ev := &omise.Event{}
	if err := s.omc.Do(ev, &operations.RetrieveEvent{EventID: inc.ID}); err != nil {
		log.Printf("[payment] retrieve event error: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if ev.Key == "charge.complete" {
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			log.Printf("[payment] marshal ev.Data error: %v", err)
			w.WriteHeader(http.StatusOK)
			return
		}
		var ch omise.Charge
		if err := json.Unmarshal(raw, &ch); err != nil {
			log.Printf("[payment] unmarshal charge error: %v", err)
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.creditCharge(r.Context(), &ch); err != nil {
			log.Printf("[payment] credit topup charge=%s err=%v", ch.ID, err)
			http.Error(w, "retry", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}
