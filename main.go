package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cafein/cafein-backend/config"
	"github.com/cafein/cafein-backend/database"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.TokenTTL)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")

	if cfg.DBDriver == config.DriverPostgres {
		if err := database.ExecuteTriggers(db, cfg.PGNotifyChannel); err != nil {
			if cfg.ChangeSource == config.ChangeSourcePGNotify {
				utils.ErrorLogger.Fatalf("Error setting up triggers: %v", err)
			}
			utils.ErrorLogger.Errorf("Error setting up triggers: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, db, utils.InfoLogger)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to build services: %v", err)
	}
	if err := a.auth.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Errorf("Error seeding admin: %v", err)
	}
	if err := a.start(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start background services: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Server shutdown: %v", err)
	}
	a.stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
