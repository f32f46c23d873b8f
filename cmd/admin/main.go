package main

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/config"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/pg"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	logger, err := obs.NewLogger(cfg.LogMode)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer obs.SetLogger(logger)()

	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(auth.WithSecret(cfg.AuthSecret), auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}
	services := app.New(store, tokens, cfg.BackupDir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cli := &commandLine{users: services.Users, out: os.Stdout}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logger.Error("admin command failed", zap.Error(err))
		os.Exit(1)
	}
}
