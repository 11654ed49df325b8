package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"plexd/internal/automation"
	"plexd/internal/browser"
	"plexd/internal/challenge"
	"plexd/internal/config"
	"plexd/internal/controller"
	"plexd/internal/diag"
	"plexd/internal/handler"
	"plexd/internal/notify"
	"plexd/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Debug.Enabled)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	sessions := session.NewStore(cfg.Paths.SessionsFile, logger.Named("sessions"))
	coords := challenge.NewCoordStore(cfg.Paths.CoordsFile, logger.Named("coords"))

	hub := diag.NewHub()
	var sink diag.Sink = diag.NopSink{}
	if cfg.Debug.Enabled {
		sink = diag.NewFileSink(cfg.Debug.Dir, logger.Named("capture"))
	}

	mgr := browser.NewManager(browser.Config{
		TargetURL:   cfg.Browser.TargetURL,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		Bin:         cfg.Browser.Bin,
		NavTimeout:  cfg.Timeouts.Submit,
		LoadWait:    cfg.Timeouts.LoadWait,
	}, logger.Named("browser"))
	defer mgr.Close()

	gate := challenge.NewMitigator(challenge.Config{
		Headless: cfg.Browser.Headless,
	}, coords, hub, logger.Named("challenge"))

	machine := automation.NewMachine(automation.Timeouts{
		InputDiscovery: cfg.Timeouts.InputDiscovery,
		Submit:         cfg.Timeouts.Submit,
		Response:       cfg.Timeouts.Response,
		PollInterval:   cfg.Timeouts.PollInterval,
	}, sink, hub, logger.Named("machine"))
	extractor := automation.NewExtractor(hub, logger.Named("extract"))

	ctrl := controller.New(controller.Config{
		TargetURL:        cfg.Browser.TargetURL,
		ChallengeTimeout: cfg.Timeouts.Challenge,
	}, mgr, gate, machine, extractor, sessions, logger.Named("controller"))

	// Warm the browser in the background so /health answers right away;
	// systemd stays in activating until the page is actually usable.
	sd := notify.New()
	go func() {
		sd.Status("starting browser")
		ctrl.Warmup(ctx)
		ready := ctrl.Readiness(ctx)
		sd.Ready(ready.Message)
		logger.Info("startup readiness", zap.String("status", ready.Status), zap.String("message", ready.Message))
	}()
	defer sd.Stopping()

	router := handler.NewRouter(ctrl, sessions, hub, logger.Named("http"))
	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
