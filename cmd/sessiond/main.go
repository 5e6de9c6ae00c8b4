package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/lapstuen/badminton-signup-sub001/internal/handlers"
	"github.com/lapstuen/badminton-signup-sub001/internal/middlewares"
	"github.com/lapstuen/badminton-signup-sub001/internal/payment"
	"github.com/lapstuen/badminton-signup-sub001/internal/repository"
	"github.com/lapstuen/badminton-signup-sub001/internal/service"
	"github.com/lapstuen/badminton-signup-sub001/pkg/config"
	"github.com/lapstuen/badminton-signup-sub001/pkg/db"
	"github.com/lapstuen/badminton-signup-sub001/pkg/mq"
	"github.com/lapstuen/badminton-signup-sub001/pkg/obs"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()
	cfg := must(config.Load())

	shutdown := obs.InitTracer("sessiond")
	defer func() { _ = shutdown(context.Background()) }()

	gdb := db.Open(cfg.PGSessionsDSN)
	walletRepo := repository.NewWalletRepo(gdb, cfg.WalletFloor)
	sessionRepo := repository.NewSessionRepo(gdb, walletRepo)
	reportRepo := repository.NewReportRepo(gdb)
	must(0, walletRepo.Migrate())
	must(0, sessionRepo.Migrate())
	must(0, reportRepo.Migrate())

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.SessionExchange))
	defer pub.Close()

	sessionSvc := service.NewSessionSvc(sessionRepo, pub, cfg.AllowDraftSignup)
	walletSvc := service.NewWalletSvc(walletRepo, pub)
	settlementSvc := service.NewSettlementSvc(sessionRepo, walletRepo, reportRepo)

	var topupSvc *payment.TopUpSvc
	if cfg.OmiseSecretKey != "" {
		omc := must(payment.NewClient(cfg.OmisePublicKey, cfg.OmiseSecretKey))
		topupSvc = payment.NewTopUpSvc(omc, walletSvc)
	}

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(obs.InitMetrics()))

	sh := handlers.NewSessionHandler(sessionSvc)
	wh := handlers.NewWalletHandler(walletSvc, topupSvc)
	th := handlers.NewSettlementHandler(settlementSvc)

	v1 := r.Group("/v1")
	{
		secured := v1.Group("")
		secured.Use(middlewares.JWTAuth())
		{
			secured.GET("/sessions", sh.List)
			secured.GET("/sessions/:id", sh.Get)
			secured.POST("/sessions/:id/registrations", sh.Register)
			secured.DELETE("/sessions/:id/registrations/:pos", sh.Cancel)

			secured.GET("/wallets/me", wh.Me)
			secured.POST("/wallets/transfer", wh.Transfer)
			if topupSvc != nil {
				secured.POST("/wallets/topup", wh.TopUp)
			}

			admin := secured.Group("")
			admin.Use(middlewares.RequireRole("ADMIN"))
			{
				admin.POST("/sessions", sh.Create)
				admin.POST("/sessions/:id/publish", sh.Publish)
				admin.POST("/sessions/:id/lock", sh.Lock)
				admin.POST("/sessions/:id/close", sh.Close)

				admin.POST("/wallets/adjust", wh.Adjust)

				admin.POST("/settlement/run", th.Run)
				admin.GET("/reports", th.List)
				admin.GET("/reports/:week/export", th.Export)
			}
		}

		if topupSvc != nil {
			v1.POST("/webhooks/omise", gin.WrapF(topupSvc.WebhookHandler))
		}
	}

	log.Println("[sessiond] listening on", cfg.HTTPAddr)
	log.Fatal(r.Run(cfg.HTTPAddr))
}
