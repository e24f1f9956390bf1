package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MrSnakeDoc/mindmark/internal/config"
	"github.com/MrSnakeDoc/mindmark/internal/extract"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver"
	"github.com/MrSnakeDoc/mindmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
	"github.com/MrSnakeDoc/mindmark/internal/queue"
	"github.com/MrSnakeDoc/mindmark/internal/scheduler"
	"github.com/MrSnakeDoc/mindmark/internal/sources/importer"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/summarize"
	"github.com/MrSnakeDoc/mindmark/internal/telemetry"
	"github.com/MrSnakeDoc/mindmark/internal/utils"
	"github.com/MrSnakeDoc/mindmark/internal/version"
)

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	store      *store.Store
	backend    Backend
	manager    *model.Manager
	processor  *queue.Processor
	kicker     *scheduler.QueueKicker
	reconciler *scheduler.Reconciler
	importer   *importer.Importer
	analytics  *telemetry.MeasurementProtocol
	server     *httpserver.Server

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	st, backend, err := OpenStore(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	manager := NewModelManager(cfg, loggerClient)
	summarizer := summarize.New(manager, summarize.Options{
		MaxContentChars:   cfg.MaxContentChars,
		MaxImageDimension: cfg.MaxImageDimension,
	}, loggerClient.With(logger.String("component", "summarize")))

	// Telemetry: prometheus always, Measurement Protocol when configured.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sinks := telemetry.Multi{telemetry.NewPrometheus(reg)}

	var analytics *telemetry.MeasurementProtocol
	if cfg.AnalyticsEnabled() {
		clientID, err := st.AnalyticsClientID(context.Background())
		if err != nil {
			utils.CloseLogged(backend, "store", loggerClient)
			return nil, fmt.Errorf("failed to load analytics client id: %w", err)
		}
		analytics, err = telemetry.NewMeasurementProtocol(telemetry.MeasurementConfig{
			Endpoint:      cfg.AnalyticsEndpoint,
			MeasurementID: cfg.AnalyticsMeasurementID,
			APISecret:     cfg.AnalyticsAPISecret,
			ClientID:      clientID,
			FlushTimeout:  cfg.ShutdownTimeout,
		}, &http.Client{Timeout: 10 * time.Second}, loggerClient.With(logger.String("component", "analytics")))
		if err != nil {
			utils.CloseLogged(backend, "store", loggerClient)
			return nil, fmt.Errorf("failed to start analytics: %w", err)
		}
		sinks = append(sinks, analytics)
		loggerClient.Info("analytics enabled", logger.String("measurement_id", cfg.AnalyticsMeasurementID))
	}

	processor := queue.NewProcessor(st, summarizer, queue.Options{
		ReprocessDelay: cfg.ReprocessDelay,
		Sink:           sinks,
	}, loggerClient.With(logger.String("component", "queue")))

	// Create manual kick trigger channel
	kickTrigger := make(chan struct{}, 1)
	kicker := scheduler.NewQueueKicker(processor, loggerClient, cfg.KickInterval, kickTrigger)
	reconciler := scheduler.NewReconciler(st, processor, loggerClient, cfg.ReconcileInterval)

	extractor := extract.New(nil, cfg.UserAgent)

	var imp *importer.Importer
	if cfg.ImportFile != "" {
		loggerClient.Info("import file configured", logger.String("file", cfg.ImportFile))
		imp = importer.New(importer.NewLoader(cfg.ImportFile), st, processor, extractor,
			loggerClient.With(logger.String("component", "importer")))
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		Store:          st,
		Queue:          processor,
		Model:          manager,
		Extractor:      extractor,
		Metrics:        telemetry.Handler(reg),
		BaseCtx:        baseCtx,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		CreateBurst:    cfg.CreateBurst,
		CreatePerMin:   cfg.CreatePerMin,
		KickTrigger:    kickTrigger,
		RequestTimeout: cfg.RequestTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     loggerClient,
		store:      st,
		backend:    backend,
		manager:    manager,
		processor:  processor,
		kicker:     kicker,
		reconciler: reconciler,
		importer:   imp,
		analytics:  analytics,
		server:     httpserver.New(cfg.ListenPort, d),
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting MindMark %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(a.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("model status",
		logger.String("text", string(a.manager.Availability(ctx))),
		logger.String("image", string(a.manager.ImageAvailability(ctx))))

	a.logger.Info("access control",
		logger.Int("allowed_cidrs", len(a.cfg.AllowedCIDRS)),
		logger.Int("allowed_hosts", len(a.cfg.AllowedHosts)),
		logger.Bool("trust_proxy", a.cfg.TrustProxy))

	// Resume whatever a previous run left in the queue
	a.processor.Start(ctx)

	if a.importer != nil {
		if _, err := a.importer.Run(ctx); err != nil {
			a.logger.Error("import failed", logger.Error(err))
		}
	}

	a.reconciler.Start(ctx)
	a.logger.Info("reconciler started",
		logger.Duration("interval", a.cfg.ReconcileInterval))

	a.kicker.Start(ctx)
	a.logger.Info("queue kicker started",
		logger.Duration("interval", a.cfg.KickInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	a.kicker.Stop()
	a.reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}

	// Cancels in-flight summarization and model downloads
	a.cancelBase()
	if err := a.processor.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop queue processor: %w", err))
	}

	if a.analytics != nil {
		utils.CloseLogged(a.analytics, "analytics", a.logger)
	}
	utils.CloseLogged(a.backend, "store", a.logger)

	if len(errs) == 0 {
		a.logger.Info("✅ MindMark stopped cleanly")
	}
	return errors.Join(errs...)
}
