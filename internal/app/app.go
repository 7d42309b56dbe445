package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"yolodetector/internal/config"
	"yolodetector/internal/detect"
	"yolodetector/internal/logger"
	"yolodetector/internal/repository/sqlite"
	"yolodetector/internal/routes"
	"yolodetector/internal/services/ai"
	"yolodetector/internal/services/pipeline"
	"yolodetector/internal/services/storage"
	"yolodetector/internal/services/websocket"
	"yolodetector/internal/source"
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	detectorService *ai.DetectorService
	journalService  *storage.JournalService
	hubService      *websocket.HubService
	db              *sqlite.DB
	server          *http.Server
}

// NewApp loads the labels and the network and opens the optional journal and
// preview server.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	labels, err := detect.LoadLabels(cfg.ClassesFile)
	if err != nil {
		log.Warning("Class names unavailable, captions show confidence only: %v", err)
		labels = detect.Labels{}
	}

	detector, err := ai.NewDetectorService(cfg, labels, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load detection network: %w", err)
	}

	a := &App{
		config:          cfg,
		logger:          log,
		detectorService: detector,
	}

	if cfg.JournalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0755); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		db, err := sqlite.New(cfg.JournalPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.journalService = storage.NewJournalService(
			sqlite.NewRunRepository(db),
			sqlite.NewDetectionRepository(db),
			labels,
			log,
			cfg.JournalFlush,
		)
	}

	if cfg.PreviewPort > 0 {
		a.hubService = websocket.NewHubService(log)
		deps := routes.Dependencies{
			Hub:    a.hubService,
			Logger: log,
			Token:  cfg.PreviewToken,
		}
		if a.db != nil {
			deps.Runs = sqlite.NewRunRepository(a.db)
			deps.Detections = sqlite.NewDetectionRepository(a.db)
		}
		a.server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.PreviewPort),
			Handler:           routes.SetupRoutes(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// Run processes in and returns once the stream is done or ctx is cancelled.
func (a *App) Run(ctx context.Context, in source.Input) error {
	var opts []pipeline.Option
	if a.journalService != nil {
		opts = append(opts, pipeline.WithRecorder(a.journalService))
		a.logger.Info("Journal: %s", a.config.JournalPath)
	}

	if a.server != nil {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		go a.hubService.Run(ctx)
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Preview server stopped: %v", err)
			}
		}()
		defer a.shutdownServer()

		opts = append(opts, pipeline.WithPreview(a.hubService))
		a.logger.Info("Preview: http://localhost:%d/api/view", a.config.PreviewPort)
	}

	a.logger.Info("Processing %s %s -> %s", in.Kind, in.Path, in.OutputPath)

	p := pipeline.NewPipeline(a.config, a.detectorService, a.logger, os.Stdout, opts...)
	result, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	a.logger.Info("Processed %d frames", result.Frames)
	return nil
}

func (a *App) shutdownServer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warning("Preview server shutdown: %v", err)
	}
}

// Close releases the network and the journal database.
func (a *App) Close() error {
	var errs []error
	if a.detectorService != nil {
		errs = append(errs, a.detectorService.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
