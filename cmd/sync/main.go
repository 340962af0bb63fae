package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/config"
	cronrunner "github.com/GiacomoIaco/discount-fence-hub-sub011/internal/cron"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/db"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/handler"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/logger"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
	gormrepository "github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository/gorm"
	syncengine "github.com/GiacomoIaco/discount-fence-hub-sub011/internal/sync"
)

func main() {
	daemon := flag.Bool("daemon", false, "run the cron schedule and HTTP API instead of a single sync pass")
	flag.Parse()

	cfgPath := os.Getenv("FH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("FH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	tokens := &syncengine.TokenManager{
		Repo: store,
		OAuth: &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.OAuth.TokenURL},
		},
		AccountID:       cfg.App.AccountID,
		Logger:          log,
		ExpiryBuffer:    cfg.OAuth.ExpiryBuffer,
		RefreshTokenTTL: cfg.OAuth.RefreshTokenTTL,
	}

	apiHTTP := &http.Client{Timeout: cfg.Jobber.Timeout}
	apiClient := jobber.NewClient(apiHTTP, cfg.Jobber.BaseURL, cfg.Jobber.APIVersion, tokens)

	pager := &syncengine.Pager{
		Logger:               log,
		MaxPages:             cfg.Sync.MaxPages,
		MaxConsecutiveErrors: cfg.Sync.MaxConsecutiveErrors,
		MinThrottleWait:      cfg.Sync.MinThrottleWait,
		SafetyMargin:         cfg.Sync.ThrottleSafetyMargin,
		MinPageDelay:         cfg.Sync.MinPageDelay,
		MaxPageDelay:         cfg.Sync.MaxPageDelay,
	}

	orchestrator := &syncengine.Orchestrator{
		Repo:      store,
		Client:    apiClient,
		Tokens:    tokens,
		Pager:     pager,
		Reporter:  &syncengine.Reporter{Repo: store, Logger: log},
		Logger:    log,
		AccountID: cfg.App.AccountID,
		PageSize:  cfg.Sync.PageSize,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*daemon {
		runOnce(ctx, log, orchestrator)
		return
	}
	runDaemon(ctx, cfg, log, dbConn, store, orchestrator)
}

// runOnce executes a single pass. A failed run (auth rejection or exhausted
// retry budget) exits non-zero so a scheduler can alert; partial runs still
// exit zero since progress was made and the status row records the faults.
func runOnce(ctx context.Context, log *zap.Logger, orchestrator *syncengine.Orchestrator) {
	result, err := orchestrator.Run(ctx)
	if err != nil || result.Status == models.RunStatusFailed {
		log.Error("sync run failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func runDaemon(
	ctx context.Context,
	cfg config.Config,
	log *zap.Logger,
	dbConn *db.DB,
	store *gormrepository.Store,
	orchestrator *syncengine.Orchestrator,
) {
	gate := &syncengine.Gate{}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), handler.RequestLogMiddleware(log))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{
		Orchestrator: orchestrator,
		Gate:         gate,
		Repo:         store,
		Logger:       log,
		AccountID:    cfg.App.AccountID,
	}
	syncHandler.Register(engine)

	cronRunner := cronrunner.New(log, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.Sync, func(ctx context.Context) {
			if !gate.TryAcquire() {
				log.Warn("skipping scheduled sync, previous run still in progress")
				return
			}
			defer gate.Release()
			if _, err := orchestrator.Run(ctx); err != nil {
				log.Warn("scheduled sync failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Warn("cron register sync failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
