// Package app wires configuration, storage, services and handlers into a
// running application.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/blob"
	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/handlers"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/queue"
	"github.com/ternarybob/probo/internal/services/extraction"
	"github.com/ternarybob/probo/internal/services/forensic"
	"github.com/ternarybob/probo/internal/services/intake"
	"github.com/ternarybob/probo/internal/services/maintenance"
	"github.com/ternarybob/probo/internal/services/parser"
	"github.com/ternarybob/probo/internal/services/pipeline"
	"github.com/ternarybob/probo/internal/services/progress"
	"github.com/ternarybob/probo/internal/services/registry"
	"github.com/ternarybob/probo/internal/services/report"
	"github.com/ternarybob/probo/internal/services/scoring"
	badgerstore "github.com/ternarybob/probo/internal/storage/badger"
)

type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage layer
	DB         *badgerstore.BadgerDB
	JobStorage interfaces.JobStorage
	BlobStore  interfaces.BlobStore
	Queue      interfaces.Queue
	Worker     *queue.Worker

	// Core services
	ProgressBus interfaces.ProgressBus
	Extraction  *extraction.Service
	Parser      *parser.Service
	Forensic    *forensic.Service
	Scoring     *scoring.Service
	Dispatcher  *pipeline.Dispatcher
	Intake      *intake.Service
	Report      *report.Service
	Sweeper     *maintenance.Sweeper

	// Registry clients
	Companies interfaces.CompanyRegistry
	Tax       interfaces.TaxRegistry

	// HTTP handlers
	DocumentHandler *handlers.DocumentHandler
	ReviewHandler   *handlers.ReviewHandler
	ProgressSSE     *handlers.ProgressSSEHandler
	ProgressWS      *handlers.ProgressWSHandler
	APIHandler      *handlers.APIHandler
}

func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	if err := app.startBackground(); err != nil {
		return nil, fmt.Errorf("failed to start background workers: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("queue_backend", cfg.Queue.Backend).
		Str("ocr_provider", cfg.OCR.Provider).
		Msg("Application initialization complete")
	return app, nil
}

func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.JobStorage = badgerstore.NewJobStorage(db, a.Logger)

	if a.Config.Blob.Enabled {
		switch a.Config.Blob.Backend {
		case "s3":
			store, err := blob.NewS3Store(context.Background(), a.Config.Blob, a.Logger)
			if err != nil {
				return fmt.Errorf("failed to create S3 blob store: %w", err)
			}
			a.BlobStore = store
		default:
			store, err := blob.NewFSStore(a.Config.Blob.Dir, a.Logger)
			if err != nil {
				return fmt.Errorf("failed to create filesystem blob store: %w", err)
			}
			a.BlobStore = store
		}
	}

	switch a.Config.Queue.Backend {
	case "sqs":
		q, err := queue.NewSQSQueue(context.Background(), a.Config.Queue, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create SQS queue: %w", err)
		}
		a.Queue = q
	default:
		q, err := queue.NewBadgerQueue(
			db.Store().Badger(),
			a.Config.Queue.Name,
			time.Duration(a.Config.Queue.PollWaitSeconds)*time.Second,
			time.Duration(a.Config.Queue.VisibilitySeconds)*time.Second,
			a.Config.Queue.MaxReceive,
		)
		if err != nil {
			return fmt.Errorf("failed to create badger queue: %w", err)
		}
		a.Queue = q
	}
	return nil
}

func (a *App) initServices() error {
	a.ProgressBus = progress.NewBus(a.Logger)
	a.Scoring = scoring.NewService(a.Logger)

	if dir := a.Config.Forensic.ScratchDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create scratch dir: %w", err)
		}
	}
	a.Forensic = forensic.NewService(a.Config.Forensic.ScratchDir, a.Logger)
	a.Report = report.NewService(a.Logger)

	provider, err := a.ocrProvider()
	if err != nil {
		return err
	}
	a.Extraction = extraction.NewService(provider, a.Config.OCR.PageConcurrency, a.Config.Forensic.ScratchDir, a.Logger)

	extractor, err := a.fieldExtractor()
	if err != nil {
		return err
	}
	a.Parser = parser.NewService(extractor, a.Logger)

	if key := a.Config.Registry.CompaniesHouse.APIKey; key != "" {
		opts := []registry.ClientOption{registry.WithLogger(a.Logger)}
		if a.Config.Registry.CompaniesHouse.BaseURL != "" {
			opts = append(opts, registry.WithBaseURL(a.Config.Registry.CompaniesHouse.BaseURL))
		}
		if rps := a.Config.Registry.CompaniesHouse.RateLimit; rps > 0 {
			opts = append(opts, registry.WithRateLimit(rps))
		}
		a.Companies = registry.NewCompaniesHouseClient(key, opts...)
	} else {
		a.Logger.Warn().Msg("No company registry API key configured, registry lookups disabled")
	}

	if a.Config.Registry.HMRC.BaseURL != "" {
		a.Tax = registry.NewHMRCClient(a.Config.Registry.HMRC, a.Logger)
	}

	a.Dispatcher = pipeline.NewDispatcher(
		a.JobStorage,
		a.BlobStore,
		a.Extraction,
		a.Parser,
		a.Forensic,
		a.Companies,
		a.Tax,
		a.Scoring,
		a.ProgressBus,
		a.Logger,
	)

	a.Intake = intake.NewService(a.Config.Intake, a.JobStorage, a.BlobStore, a.Queue, a.Dispatcher, a.Logger)
	a.Sweeper = maintenance.NewSweeper(a.Config.Maintenance, a.JobStorage, a.ProgressBus, a.Logger, a.Config.Forensic.ScratchDir)
	return nil
}

func (a *App) ocrProvider() (interfaces.OCRProvider, error) {
	switch a.Config.OCR.Provider {
	case "textract":
		provider, err := extraction.NewTextractProvider(context.Background(), a.Config.OCR, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Textract provider: %w", err)
		}
		return provider, nil
	default:
		a.Logger.Warn().Str("provider", a.Config.OCR.Provider).Msg("Using stub OCR provider")
		return extraction.NewStubProvider(), nil
	}
}

func (a *App) fieldExtractor() (interfaces.FieldExtractor, error) {
	if !a.Config.LLM.Enabled || a.Config.LLM.APIKey == "" {
		a.Logger.Info().Msg("LLM field extraction disabled, using regex fallback only")
		return nil, nil
	}
	switch a.Config.LLM.Provider {
	case "gemini":
		extractor, err := parser.NewGeminiExtractor(context.Background(), a.Config.LLM, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini extractor: %w", err)
		}
		return extractor, nil
	default:
		extractor, err := parser.NewClaudeExtractor(a.Config.LLM, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude extractor: %w", err)
		}
		return extractor, nil
	}
}

func (a *App) initHandlers() {
	a.DocumentHandler = handlers.NewDocumentHandler(a.Intake, a.JobStorage, a.Report, a.Dispatcher, a.Logger)
	a.ReviewHandler = handlers.NewReviewHandler(a.JobStorage, a.Logger)
	a.ProgressSSE = handlers.NewProgressSSEHandler(a.ProgressBus, a.Logger)
	a.ProgressWS = handlers.NewProgressWSHandler(a.ProgressBus, a.Logger)
	a.APIHandler = handlers.NewAPIHandler(a.Config, a.JobStorage, a.Queue, a.Logger)
}

func (a *App) startBackground() error {
	if a.Config.Intake.UseQueue {
		workers := a.Config.Queue.Workers
		if workers <= 0 {
			workers = 1
		}
		a.Worker = queue.NewWorker(a.Queue, a.handleQueueMessage, workers, a.Logger)
		a.Worker.Start(context.Background())
		a.Logger.Info().Int("workers", workers).Msg("Queue workers started")
	}

	return a.Sweeper.Start()
}

func (a *App) handleQueueMessage(ctx context.Context, msg *models.JobQueueMessage) error {
	if msg.Action != "" && msg.Action != models.QueueActionProcess {
		a.Logger.Warn().Str("action", msg.Action).Msg("Unknown queue action, dropping message")
		return nil
	}
	return a.Dispatcher.Process(ctx, msg.JobID)
}

// Close stops background workers and releases storage resources.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.ProgressBus != nil {
		a.ProgressBus.Close()
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Queue close failed")
		}
	}
	// JobStorage shares the database connection, so only the DB is closed.
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Database close failed")
			return err
		}
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
