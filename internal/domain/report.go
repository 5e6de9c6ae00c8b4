package domain

import (
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"
)

// SettlementInputs are operator-supplied; none of them is derived by the
// engine itself.
type SettlementInputs struct {
	CourtCost         int64 `json:"court_cost"`
	ShuttlecockCost   int64 `json:"shuttlecock_cost"`
	PlayersPerWeek    int64 `json:"players_per_week"`
	WeeksToDistribute int64 `json:"weeks_to_distribute"`
	WalletPoolBalance int64 `json:"wallet_pool_balance"`
}

// PriceCalculation stores every intermediate of the recommendation so an
// independent check can recompute the same integers. Rounding happens at
// each step, not once at the end; that is the contract.
type PriceCalculation struct {
	WeeklyCost          int64 `json:"weekly_cost"`
	PlayersPerWeek      int64 `json:"players_per_week"`
	BasePrice           int64 `json:"base_price"`
	WalletPoolBalance   int64 `json:"wallet_pool_balance"`
	WeeksToDistribute   int64 `json:"weeks_to_distribute"`
	BalanceToDistribute int64 `json:"balance_to_distribute"`
	PriceAdjustment     int64 `json:"price_adjustment"`
	RecommendedPrice    int64 `json:"recommended_price"`
}

// WeeklyBalanceReport is written once per settlement run. Re-running a week
// appends a new Version; earlier versions stay as the audit trail.
type WeeklyBalanceReport struct {
	ID              string `gorm:"primaryKey"`
	WeekID          string `gorm:"index"` // e.g. "2026-W35"
	Version         int
	StartDate       time.Time
	EndDate         time.Time
	SessionCount    int
	TotalPlayers    int
	TotalIncome     int64
	CourtCost       int64
	ShuttlecockCost int64
	TotalExpenses   int64
	GrossProfit     int64
	PriceCalc       datatypes.JSON
	CreatedAt       time.Time
}

func roundDiv(a, b int64) int64 {
	return int64(math.Round(float64(a) / float64(b)))
}

// CalculatePrice runs the pricing chain with per-step rounding.
func CalculatePrice(in SettlementInputs) (PriceCalculation, error) {
	if in.PlayersPerWeek <= 0 {
		return PriceCalculation{}, &SettlementInputMissingError{Field: "players_per_week"}
	}
	if in.WeeksToDistribute <= 0 {
		return PriceCalculation{}, &SettlementInputMissingError{Field: "weeks_to_distribute"}
	}
	weeklyCost := in.CourtCost + in.ShuttlecockCost
	basePrice := roundDiv(weeklyCost, in.PlayersPerWeek)
	balanceToDistribute := roundDiv(in.WalletPoolBalance, in.WeeksToDistribute)
	priceAdjustment := roundDiv(balanceToDistribute, in.PlayersPerWeek)
	return PriceCalculation{
		WeeklyCost:          weeklyCost,
		PlayersPerWeek:      in.PlayersPerWeek,
		BasePrice:           basePrice,
		WalletPoolBalance:   in.WalletPoolBalance,
		WeeksToDistribute:   in.WeeksToDistribute,
		BalanceToDistribute: balanceToDistribute,
		PriceAdjustment:     priceAdjustment,
		RecommendedPrice:    basePrice - priceAdjustment,
	}, nil
}

// WeekID renders the ISO week key for a date, e.g. "2026-W35".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
