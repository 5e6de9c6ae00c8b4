package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
	"github.com/lapstuen/badminton-signup-sub001/internal/report"
	"github.com/lapstuen/badminton-signup-sub001/internal/service"
	"github.com/lapstuen/badminton-signup-sub001/pkg/obs"
)

type SettlementHandler struct {
	svc *service.SettlementSvc
}

func NewSettlementHandler(svc *service.SettlementSvc) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

// POST /v1/settlement/run (ADMIN)
func (h *SettlementHandler) Run(c *gin.Context) {
	var in struct {
		StartDate         string `json:"start_date" binding:"required"` // week start, YYYY-MM-DD
		CourtCost         int64  `json:"court_cost"`
		ShuttlecockCost   int64  `json:"shuttlecock_cost"`
		PlayersPerWeek    int64  `json:"players_per_week"`
		WeeksToDistribute int64  `json:"weeks_to_distribute"`
		WalletPoolBalance int64  `json:"wallet_pool_balance"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	rep, err := h.svc.Run(c, start, domain.SettlementInputs{
		CourtCost:         in.CourtCost,
		ShuttlecockCost:   in.ShuttlecockCost,
		PlayersPerWeek:    in.PlayersPerWeek,
		WeeksToDistribute: in.WeeksToDistribute,
		WalletPoolBalance: in.WalletPoolBalance,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	obs.SettlementRunsTotal.Inc()
	c.JSON(http.StatusCreated, rep)
}

// GET /v1/reports?limit=20 (ADMIN)
func (h *SettlementHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.svc.Reports(c, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

// GET /v1/reports/:week/export?format=xlsx|pdf (ADMIN)
func (h *SettlementHandler) Export(c *gin.Context) {
	rep, err := h.svc.Report(c, c.Param("week"))
	if err != nil {
		respondErr(c, err)
		return
	}
	switch c.DefaultQuery("format", "xlsx") {
	case "pdf":
		b, err := report.BuildPDF(rep)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+rep.WeekID+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", b)
	case "xlsx":
		b, err := report.BuildXLSX(rep)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+rep.WeekID+`.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or pdf"})
	}
}
