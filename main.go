// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariebrainware/telemed-review/config"
	"github.com/ariebrainware/telemed-review/drafting"
	"github.com/ariebrainware/telemed-review/endpoint"
	"github.com/ariebrainware/telemed-review/events"
	"github.com/ariebrainware/telemed-review/middleware"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/ariebrainware/telemed-review/workflow"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()
	util.InitLogger(cfg.LogLevel)

	db, err := config.ConnectMySQL()
	if err != nil {
		util.Log.WithError(err).Fatal("error connecting to MySQL")
	}
	if err := db.AutoMigrate(
		&model.Account{},
		&model.Session{},
		&model.ClinicalSession{},
		&model.SOAPReport{},
		&model.ReviewAuditLog{},
	); err != nil {
		util.Log.WithError(err).Fatal("auto migration failed")
	}
	util.SetAuditLoggerDB(db)

	if _, err := config.ConnectRedis(); err != nil {
		util.Log.WithError(err).Warn("redis unavailable, continuing without session cache and rate limits")
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaReviewTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			util.Log.WithError(err).Warn("closing event publisher")
		}
	}()

	drafter := drafting.NewClient(drafting.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		HTTPTimeout: cfg.DraftTimeout,
	})
	store := model.NewReportStore(db)
	reviews := workflow.NewService(store, drafter, publisher, workflow.Options{DraftTimeout: cfg.DraftTimeout})
	dashboards := workflow.NewDashboards(store, cfg.DashboardCacheTTL)

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})
	endpoint.RegisterRoutes(router, endpoint.NewReviewHandler(reviews, dashboards), endpoint.RouteOptions{
		DB:                db,
		DecisionRateLimit: middleware.RateLimitConfig{Limit: 30, Window: time.Minute},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Log.WithError(err).Fatal("error starting server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Leave room for an in-flight redraft to finish and commit.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DraftTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Log.WithError(err).Error("server shutdown")
	}
}
