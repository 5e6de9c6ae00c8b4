package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
	"github.com/lapstuen/badminton-signup-sub001/internal/service"
	"github.com/lapstuen/badminton-signup-sub001/pkg/obs"
)

type SessionHandler struct {
	svc *service.SessionSvc
}

func NewSessionHandler(svc *service.SessionSvc) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// POST /v1/sessions (ADMIN)
func (h *SessionHandler) Create(c *gin.Context) {
	var in struct {
		DayLabel      string `json:"day_label" binding:"required"`
		StartTime     string `json:"start_time" binding:"required"` // "20:00"
		EndTime       string `json:"end_time" binding:"required"`
		Date          string `json:"date" binding:"required"` // "2026-09-02"
		MaxPlayers    int    `json:"max_players" binding:"required"`
		PaymentAmount int64  `json:"payment_amount"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	sess, err := h.svc.Create(c, service.CreateSessionInput{
		DayLabel:      in.DayLabel,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Date:          date,
		MaxPlayers:    in.MaxPlayers,
		PaymentAmount: in.PaymentAmount,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GET /v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.svc.Get(c, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GET /v1/sessions?status=PUBLISHED&limit=20
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.svc.List(c, domain.Status(c.Query("status")), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// POST /v1/sessions/:id/publish (ADMIN)
func (h *SessionHandler) Publish(c *gin.Context) {
	sess, err := h.svc.Publish(c, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /v1/sessions/:id/lock (ADMIN)
func (h *SessionHandler) Lock(c *gin.Context) {
	sess, err := h.svc.Lock(c, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /v1/sessions/:id/close (ADMIN)
func (h *SessionHandler) Close(c *gin.Context) {
	sess, err := h.svc.Close(c, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /v1/sessions/:id/registrations
func (h *SessionHandler) Register(c *gin.Context) {
	var in struct {
		Name    string `json:"name" binding:"required"`
		IsGuest bool   `json:"is_guest"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, active, err := h.svc.Register(c, c.Param("id"), in.Name, in.IsGuest, actingUser(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	placement := "waitlist"
	if active {
		placement = "active"
	}
	obs.RegistrationsTotal.WithLabelValues(placement).Inc()
	c.JSON(http.StatusCreated, gin.H{"registration": reg, "placement": placement})
}

// DELETE /v1/sessions/:id/registrations/:pos
func (h *SessionHandler) Cancel(c *gin.Context) {
	pos, err := strconv.Atoi(c.Param("pos"))
	if err != nil || pos < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position must be a positive integer"})
		return
	}
	outcome, err := h.svc.Cancel(c, c.Param("id"), pos)
	if err != nil {
		respondErr(c, err)
		return
	}
	label := "waitlist"
	switch {
	case outcome.Promoted != nil:
		label = "promoted"
	case outcome.SlotOpened:
		label = "slot_opened"
	}
	obs.CancellationsTotal.WithLabelValues(label).Inc()
	c.JSON(http.StatusOK, gin.H{
		"cancelled": outcome.Removed.Name,
		"promoted":  outcome.Promoted,
	})
}
