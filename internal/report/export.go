package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

func calc(rep *domain.WeeklyBalanceReport) (domain.PriceCalculation, error) {
	var c domain.PriceCalculation
	if err := json.Unmarshal(rep.PriceCalc, &c); err != nil {
		return domain.PriceCalculation{}, fmt.Errorf("decode price calculation: %w", err)
	}
	return c, nil
}

// BuildXLSX renders a weekly balance report workbook: a summary sheet plus
// the stored price-calculation intermediates for independent verification.
func BuildXLSX(rep *domain.WeeklyBalanceReport) ([]byte, error) {
	c, err := calc(rep)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	summarySheet := "summary"
	priceSheet := "price"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(priceSheet)

	rows := [][2]any{
		{"Weekly Balance Report", ""},
		{"", ""},
		{"Week", rep.WeekID},
		{"Version", rep.Version},
		{"Period", rep.StartDate.Format("2006-01-02") + " to " + rep.EndDate.Format("2006-01-02")},
		{"Sessions", rep.SessionCount},
		{"Players", rep.TotalPlayers},
		{"Income (THB)", rep.TotalIncome},
		{"Court cost", rep.CourtCost},
		{"Shuttlecock cost", rep.ShuttlecockCost},
		{"Total expenses", rep.TotalExpenses},
		{"Gross profit", rep.GrossProfit},
	}
	for i, row := range rows {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	priceRows := [][2]any{
		{"Weekly cost", c.WeeklyCost},
		{"Players per week", c.PlayersPerWeek},
		{"Base price", c.BasePrice},
		{"Wallet pool balance", c.WalletPoolBalance},
		{"Weeks to distribute", c.WeeksToDistribute},
		{"Balance to distribute", c.BalanceToDistribute},
		{"Price adjustment", c.PriceAdjustment},
		{"Recommended price", c.RecommendedPrice},
	}
	for i, row := range priceRows {
		_ = f.SetCellValue(priceSheet, fmt.Sprintf("A%d", i+1), row[0])
		_ = f.SetCellValue(priceSheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a minimal PDF of the same report.
func BuildPDF(rep *domain.WeeklyBalanceReport) ([]byte, error) {
	c, err := calc(rep)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Weekly Balance Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	line := func(format string, args ...any) {
		pdf.Cell(0, 6, fmt.Sprintf(format, args...))
		pdf.Ln(5)
	}
	line("Week: %s (v%d)", rep.WeekID, rep.Version)
	line("Period: %s to %s", rep.StartDate.Format("2006-01-02"), rep.EndDate.Format("2006-01-02"))
	line("Sessions: %d, players: %d", rep.SessionCount, rep.TotalPlayers)
	line("Income: %d THB", rep.TotalIncome)
	line("Expenses: %d THB (court %d + shuttlecock %d)", rep.TotalExpenses, rep.CourtCost, rep.ShuttlecockCost)
	line("Gross profit: %d THB", rep.GrossProfit)
	line("Generated: %s", rep.CreatedAt.Format(time.RFC3339))

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Price calculation", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	row := func(name string, v int64) {
		pdf.CellFormat(90, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%d", v), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	row("Weekly cost", c.WeeklyCost)
	row("Base price", c.BasePrice)
	row("Balance to distribute", c.BalanceToDistribute)
	row("Price adjustment", c.PriceAdjustment)
	row("Recommended price", c.RecommendedPrice)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
