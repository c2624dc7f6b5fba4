package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/bootstrap"
	"github.com/campmanager/backend/internal/config"
	"github.com/campmanager/backend/internal/credentials"
	"github.com/campmanager/backend/internal/logger"
	"github.com/campmanager/backend/internal/middleware"
	"github.com/campmanager/backend/internal/services"
	"github.com/campmanager/backend/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		envFile      string
		syncExisting bool
		timeout      time.Duration
	)
	flag.StringVar(&envFile, "env-file", "", "path to a .env file")
	flag.BoolVar(&syncExisting, "sync-existing", false, "upsert the admin profile when the account already exists")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadBootstrap(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log, err := logger.New(logger.Options{
		Development: cfg.Env != config.EnvProduction,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cred, err := credentials.Resolve(cfg.Firebase.Sources())
	if err != nil {
		log.Error("firebase credentials", zap.Error(err))
		return 1
	}
	log.Info("firebase credentials resolved", zap.String("source", cred.Source), zap.String("project", cred.ProjectID))

	authClient, err := middleware.NewFirebaseAuthClient(ctx, middleware.FirebaseAuthConfig{
		ProjectID:  cfg.Firebase.ProjectID,
		Credential: cred,
	})
	if err != nil {
		log.Error("firebase auth client", zap.Error(err))
		return 1
	}

	manager := storage.NewManager(cfg.Mongo.Database, storage.Dialer(cfg.Mongo), log)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := manager.Close(closeCtx); err != nil {
			log.Warn("mongo close", zap.Error(err))
		}
	}()
	if _, err := manager.Connect(ctx); err != nil {
		log.Error("mongo connect", zap.Error(err))
		return 1
	}

	profiles := services.NewMongoProfileService(manager, log)
	if err := profiles.EnsureIndexes(ctx); err != nil {
		log.Error("mongo indexes", zap.Error(err))
		return 1
	}

	res, err := bootstrap.NewAdminBootstrapper(authClient, profiles, bootstrap.Options{
		SyncExisting: syncExisting,
		Logger:       log,
	}).Run(ctx, cfg.Admin)
	if err != nil {
		log.Error("admin setup failed", zap.Error(err))
		return 1
	}

	if res.Skipped {
		log.Info("admin setup finished, existing account left untouched", zap.String("email", cfg.Admin.Email))
		return 0
	}
	log.Info("admin setup finished",
		zap.String("email", cfg.Admin.Email),
		zap.String("uid", res.UID),
		zap.Bool("account_created", res.AccountCreated),
		zap.Bool("profile_inserted", res.ProfileInserted),
	)
	return 0
}
