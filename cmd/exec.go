package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"waitline/config"
	"waitline/handlers"
	"waitline/monitoring"
	"waitline/services"
	"waitline/utils"

	_ "waitline/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Initialize services
	historyService := services.NewHistoryService(app)
	notifyService := services.NewNotifyService(pn)
	tableService := services.NewTableService(app, redisClient, historyService, cfg.QueueLockTTL)
	queueService := services.NewQueueService(app, redisClient, tableService, historyService, notifyService, cfg)
	sweeper := services.NewNoShowSweeper(queueService, cfg.NotifyConfirmWindow, cfg.NoShowSweepInterval)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(app, queueService)
	tableHandler := handlers.NewTableHandler(app, tableService, queueService)
	reservationHandler := handlers.NewReservationHandler(app, queueService, historyService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.RootCmd.AddCommand(seedCmd(app))

	// Background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Run(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		monitoring.NewMonitor(app)

		if cfg.EnableMetrics {
			go serveMetrics(cfg.MetricsPort)
		}

		// Queue endpoints
		e.Router.POST("/api/v1/queue/join", queueHandler.Join)
		e.Router.GET("/api/v1/queue/active", queueHandler.GetActiveQueue)
		e.Router.GET("/api/v1/queue/validate-token", queueHandler.ValidateToken)
		e.Router.GET("/api/v1/queue/metrics", reservationHandler.QueueMetrics)
		e.Router.GET("/api/v1/queue/{entryId}", queueHandler.GetEntry)
		e.Router.POST("/api/v1/queue/{entryId}/cancel", queueHandler.Cancel)
		e.Router.POST("/api/v1/queue/{entryId}/notify", queueHandler.Notify)
		e.Router.POST("/api/v1/queue/{entryId}/seat", queueHandler.Seat)
		e.Router.GET("/api/v1/customers/{customerId}/queue", queueHandler.GetCustomerQueue)

		// Table endpoints
		e.Router.GET("/api/v1/tables", tableHandler.List)
		e.Router.POST("/api/v1/tables", tableHandler.Create)
		e.Router.GET("/api/v1/tables/candidate", tableHandler.Candidate)
		e.Router.GET("/api/v1/tables/utilization", tableHandler.Utilization)
		e.Router.POST("/api/v1/tables/{tableId}/status", tableHandler.ChangeStatus)
		e.Router.DELETE("/api/v1/tables/{tableId}", tableHandler.Delete)

		// Reservation endpoints
		e.Router.POST("/api/v1/reservations/{reservationId}/complete", reservationHandler.Complete)

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
		return err
	}
	return nil
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
