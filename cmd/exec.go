package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"github.com/Micheal-18/tick.backend/config"
	"github.com/Micheal-18/tick.backend/handlers"
	"github.com/Micheal-18/tick.backend/internal/services/paystack"
	_ "github.com/Micheal-18/tick.backend/migrations"
	"github.com/Micheal-18/tick.backend/security"
	"github.com/Micheal-18/tick.backend/services"
	"github.com/Micheal-18/tick.backend/store"
	"github.com/Micheal-18/tick.backend/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub (optional, realtime organizer notifications)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize gateway client
	gateway := paystack.NewClient(&paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.GatewayTimeout,
	})

	// Initialize services
	st := store.NewPBStore(app)
	logger := app.Logger()
	notifyService := services.NewNotifyService(app, pn, cfg.SenderName, cfg.SenderAddress, cfg.NotifyQueue, logger)
	ticketCodec := utils.NewTicketCodec(cfg.TicketSecret)
	ledgerService := services.NewLedgerService(st, cfg.FeePercent, ticketCodec, notifyService, logger)
	withdrawalService := services.NewWithdrawalService(st, gateway, ledgerService, logger)

	// Initialize handlers
	refLocker := utils.NewRefLocker(redisClient, cfg.WebhookLockTTL)
	rateLimiter := security.NewRateLimiter(redisClient)
	webhookHandler := handlers.NewWebhookHandler(cfg.PaystackSecretKey, ledgerService, refLocker, logger)
	paymentHandler := handlers.NewPaymentHandler(st, gateway, logger)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService, rateLimiter, cfg.WithdrawalLimit, cfg.WithdrawalWindow, logger)
	walletHandler := handlers.NewWalletHandler(st, ledgerService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background workers
	go notifyService.Start(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Payment endpoints
		e.Router.POST("/api/v1/payments/initialize", paymentHandler.InitializePayment)

		// Webhook ingress
		e.Router.POST("/api/v1/webhook/paystack", webhookHandler.HandlePaystack)

		// Wallet endpoints
		e.Router.GET("/api/v1/wallets/{ownerId}", walletHandler.GetWallet)
		e.Router.GET("/api/v1/wallets/{ownerId}/reconcile", walletHandler.ReconcileWallet)

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets/{reference}", walletHandler.GetTicket)

		// Withdrawal endpoints
		e.Router.POST("/api/v1/withdrawals", withdrawalHandler.RequestWithdrawal)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/settlements/sync", withdrawalHandler.SyncSettlements)

		// Prometheus metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", func(e *core.RequestEvent) error {
				promhttp.Handler().ServeHTTP(e.Response, e.Request)
				return nil
			})
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
