package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yeremiapane/restaurant-pos-sync/assets"
	"github.com/yeremiapane/restaurant-pos-sync/config"
	"github.com/yeremiapane/restaurant-pos-sync/events"
	"github.com/yeremiapane/restaurant-pos-sync/outbox"
	"github.com/yeremiapane/restaurant-pos-sync/remote"
	"github.com/yeremiapane/restaurant-pos-sync/router"
	"github.com/yeremiapane/restaurant-pos-sync/services"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
	utils.InitLogger()

	cfg := config.Load()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open local store: %v", err)
	}
	utils.InfoLogger.Printf("Local store open at %s (schema v%d)", cfg.StorePath, st.Version())

	var courier assets.Courier = assets.NopCourier{}
	if cfg.AMQPURL != "" {
		amqpCourier, err := assets.DialCourier(cfg.AMQPURL, cfg.AssetQueue)
		if err != nil {
			// The caching agent is optional; run degraded without it.
			utils.ErrorLogger.Printf("Asset courier unavailable: %v", err)
		} else {
			defer amqpCourier.Close()
			courier = amqpCourier
		}
	}

	api := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey)
	hub := events.NewHub()
	probe := services.NewFlagProbe(true)

	retention := services.NewRetentionManager(st,
		services.StaticProfile{Constrained: cfg.DeviceConstrained, Metered: cfg.ConnectionMetered},
		services.RetentionConfig{
			FreshTTL:       cfg.EssentialTTL,
			ConstrainedTTL: cfg.ConstrainedTTL,
			RetentionDays:  cfg.RetentionDays,
			MaxOrders:      cfg.MaxCachedOrders,
		})
	cache := services.NewEssentialDataCache(st, api, retention, courier, cfg.AssetHostPrefix)
	ob := outbox.New(st, cfg.RetryCooldown)
	intake := services.NewIntakeService(st, ob, retention)
	engine := services.NewSyncEngine(st, ob, api, cache, hub, probe)

	monitor := services.NewNetworkMonitor(engine, probe, cfg.SyncInterval, cfg.SettleDelay)
	monitor.Start()
	defer monitor.Stop()

	// Warm the reference cache on the way up; failure is fine, the floor
	// keeps running on whatever the last refresh left behind.
	if result, err := cache.Refresh(context.Background(), false); err != nil {
		utils.ErrorLogger.Printf("Initial reference refresh failed: %v", err)
	} else {
		utils.InfoLogger.Printf("Initial reference refresh: %s (%d records)", result.Outcome, result.Items)
	}

	if _, err := retention.EvictAgedOrders(); err != nil {
		utils.ErrorLogger.Printf("Startup eviction failed: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.SetupRouter(st, engine, cache, retention, intake)

	go func() {
		if err := r.Run(cfg.ListenAddr); err != nil {
			utils.ErrorLogger.Fatalf("HTTP server stopped: %v", err)
		}
	}()
	utils.InfoLogger.Printf("POS sync agent listening on %s", cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down")
}
