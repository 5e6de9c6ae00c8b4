package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lapstuen/badminton-signup-sub001/internal/payment"
	"github.com/lapstuen/badminton-signup-sub001/internal/service"
	"github.com/lapstuen/badminton-signup-sub001/pkg/obs"
)

type WalletHandler struct {
	svc   *service.WalletSvc
	topup *payment.TopUpSvc
}

func NewWalletHandler(svc *service.WalletSvc, topup *payment.TopUpSvc) *WalletHandler {
	return &WalletHandler{svc: svc, topup: topup}
}

// GET /v1/wallets/me?limit=50
func (h *WalletHandler) Me(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	st, err := h.svc.Statement(c, actingUser(c), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// POST /v1/wallets/transfer ("give X baht" to a friend)
func (h *WalletHandler) Transfer(c *gin.Context) {
	var in struct {
		ToUserID string `json:"to_user_id" binding:"required"`
		Amount   int64  `json:"amount" binding:"required"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, into, err := h.svc.Transfer(c, actingUser(c), in.ToUserID, in.Amount, in.Note)
	if err != nil {
		respondErr(c, err)
		return
	}
	obs.LedgerEntriesTotal.WithLabelValues(string(out.Type)).Inc()
	obs.LedgerEntriesTotal.WithLabelValues(string(into.Type)).Inc()
	c.JSON(http.StatusOK, gin.H{"debit": out, "credit": into})
}

// POST /v1/wallets/topup
func (h *WalletHandler) TopUp(c *gin.Context) {
	var in struct {
		Amount    int64  `json:"amount" binding:"required"` // satang
		CardToken string `json:"card_token"`
		PromptPay bool   `json:"promptpay"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ch, err := h.topup.CreateCharge(c, payment.CreateTopUpInput{
		UserID:    actingUser(c),
		Amount:    in.Amount,
		CardToken: in.CardToken,
		PromptPay: in.PromptPay,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"charge_id": ch.ID, "status": ch.Status})
}

// POST /v1/wallets/adjust (ADMIN)
func (h *WalletHandler) Adjust(c *gin.Context) {
	var in struct {
		UserID string `json:"user_id" binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txn, err := h.svc.Adjust(c, in.UserID, in.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	obs.LedgerEntriesTotal.WithLabelValues(string(txn.Type)).Inc()
	c.JSON(http.StatusOK, txn)
}
