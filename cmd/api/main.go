package main

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/config"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/httpapi"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/migrate"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/pg"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/migrations"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		// the logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := obs.NewLogger(cfg.LogMode)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	restore := obs.SetLogger(logger)
	defer restore()
	defer func() { _ = logger.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version)

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.AutoMigrate {
		if err := migrateUp(ctx, store, cfg.MigrationsDir, logger); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokenService(auth.WithSecret(cfg.AuthSecret), auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}
	services := app.New(store, tokens, cfg.BackupDir)

	api := httpapi.New(services,
		httpapi.WithVersion(version),
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// exports and backup downloads stream past the request timeout
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	health := httpapi.NewGRPCServer(httpapi.ReadyProbe{DB: store})
	gs := grpc.NewServer()
	health.Register(gs)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	go health.Run(ctx, 5*time.Second)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	health.Shutdown()
	gs.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func migrateUp(ctx context.Context, store *pg.Store, dir string, logger *zap.Logger) error {
	var fsys fs.FS = migrations.FS
	if dir != "" {
		fsys = os.DirFS(filepath.Clean(dir))
	}
	mgr := migrate.NewManager(store.DB(), fsys, migrations.MigrationsDir, migrations.SeedsDir)
	applied, err := mgr.Up(ctx)
	if err != nil {
		return err
	}
	seeded, err := mgr.Seed(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", zap.Strings("migrations", applied), zap.Strings("seeds", seeded))
	return nil
}
