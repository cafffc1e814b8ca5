package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pharmalink/m/internal/api"
	"pharmalink/m/internal/config"
	"pharmalink/m/internal/database"
	"pharmalink/m/internal/logging"
	"pharmalink/m/internal/migrations"
	"pharmalink/m/internal/seed"
	"pharmalink/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.String("dsn", cfg.DatabaseDSN), zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if cfg.CatalogCSV != "" && cfg.CatalogCompanyID > 0 {
		seed.LoadMedicines(context.Background(), store.NewMedicineStore(db), cfg.CatalogCompanyID, cfg.CatalogCSV, logger)
	}

	handler := api.New(db, api.Options{
		Secret:      cfg.Secret,
		TokenTTL:    cfg.TokenTTL,
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	logger.Info("PharmaLink server starting", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
