package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
	"github.com/lapstuen/badminton-signup-sub001/internal/repository"
	"github.com/lapstuen/badminton-signup-sub001/internal/service"
	"github.com/lapstuen/badminton-signup-sub001/pkg/config"
	"github.com/lapstuen/badminton-signup-sub001/pkg/db"
)

// settle runs one weekly settlement from the command line, so it can be
// cron-scheduled next to the API service.
func main() {
	startFlag := flag.String("start", "", "week start date YYYY-MM-DD (default: start of last ISO week)")
	poolFlag := flag.Int64("pool", 0, "current wallet pool balance (baht)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	start := lastWeekStart(time.Now().UTC())
	if *startFlag != "" {
		start, err = time.Parse("2006-01-02", *startFlag)
		if err != nil {
			log.Fatalf("bad -start: %v", err)
		}
	}

	gdb := db.Open(cfg.PGSessionsDSN)
	walletRepo := repository.NewWalletRepo(gdb, cfg.WalletFloor)
	sessionRepo := repository.NewSessionRepo(gdb, walletRepo)
	reportRepo := repository.NewReportRepo(gdb)
	if err := reportRepo.Migrate(); err != nil {
		log.Fatal(err)
	}

	svc := service.NewSettlementSvc(sessionRepo, walletRepo, reportRepo)
	rep, err := svc.Run(context.Background(), start, domain.SettlementInputs{
		CourtCost:         cfg.CourtCost,
		ShuttlecockCost:   cfg.ShuttlecockCost,
		PlayersPerWeek:    cfg.PlayersPerWeek,
		WeeksToDistribute: cfg.WeeksToDistribute,
		WalletPoolBalance: *poolFlag,
	})
	if err != nil {
		log.Fatalf("settlement failed: %v", err)
	}

	out, _ := json.MarshalIndent(rep, "", "  ")
	log.Printf("[settle] wrote report %s v%d\n%s", rep.WeekID, rep.Version, out)
}

// lastWeekStart returns the Monday of the previous ISO week.
func lastWeekStart(now time.Time) time.Time {
	day := now.Truncate(24 * time.Hour)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := day.AddDate(0, 0, -(weekday - 1))
	return monday.AddDate(0, 0, -7)
}
