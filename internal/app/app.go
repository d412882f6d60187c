package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/fiscalextract/internal/config"
	"github.com/markdave123-py/fiscalextract/internal/core"
	db "github.com/markdave123-py/fiscalextract/internal/core/database"
	"github.com/markdave123-py/fiscalextract/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/fiscalextract/internal/core/object-client"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     *ingestion_engine.ExtractionIngestor
	Server       *Server

	workers int
	logger  *zap.Logger
}

// NewApp connects the optional backends and builds the server. Without DATABASE_URL
// extractions are answered but never stored; without BUCKET_NAME PDFs are not archived.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{workers: cfg.IngestWorkers, logger: logger}

	if cfg.DatabaseURL != "" {
		dbClient, err := db.NewDatabaseClient(appCtx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.DBClient = dbClient
	} else {
		logger.Warn("DATABASE_URL not set, extractions will not be stored")
	}

	if cfg.BucketName != "" {
		objClient, err := objectclient.NewS3Client(appCtx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		a.ObjectClient = objClient
	} else {
		logger.Warn("BUCKET_NAME not set, uploads will not be archived")
	}

	extractor := ingestion_engine.NewDocconvExtractor(cfg.UseReadability)

	// keep the interface nil, not a typed nil, when persistence is off
	var ing ingestion_engine.Ingestor
	if a.DBClient != nil {
		a.Ingestor = ingestion_engine.NewExtractionIngestor(a.DBClient, a.ObjectClient, ingestion_engine.IngestConfig{}, logger)
		ing = a.Ingestor
	}

	a.Server = NewServer(cfg, a.DBClient, extractor, ing, logger)
	return a, nil
}

// StartWorkers launches the ingestion pool; it stops when ctx is cancelled.
func (a *App) StartWorkers(ctx context.Context) {
	if a.Ingestor == nil {
		return
	}
	a.Ingestor.Start(ctx, a.workers)
	a.logger.Info("ingestion workers started", zap.Int("workers", a.workers))
}

// Close releases the database.
func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
