package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/config"
	"github.com/campmanager/backend/internal/credentials"
	"github.com/campmanager/backend/internal/logger"
	"github.com/campmanager/backend/internal/middleware"
	"github.com/campmanager/backend/internal/server"
	"github.com/campmanager/backend/internal/services"
	"github.com/campmanager/backend/internal/storage"
)

func main() {
	var envFile string
	flag.StringVar(&envFile, "env-file", "", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Development: !cfg.IsProduction(),
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Info("starting camp-manager api", zap.String("env", cfg.Env))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase Auth (server-side verification of ID tokens)
	cred, err := credentials.Resolve(cfg.Firebase.Sources())
	if err != nil {
		log.Fatal("firebase credentials", zap.Error(err))
	}
	authClient, err := middleware.NewFirebaseAuthClient(rootCtx, middleware.FirebaseAuthConfig{
		ProjectID:  cfg.Firebase.ProjectID,
		Credential: cred,
	})
	if err != nil {
		log.Fatal("firebase auth client", zap.Error(err))
	}
	log.Info("firebase auth ready", zap.String("source", cred.Source), zap.String("project", cred.ProjectID))

	// MongoDB is connected before listening so a bad URI fails fast.
	manager := storage.NewManager(cfg.Mongo.Database, storage.Dialer(cfg.Mongo), log)
	if _, err := manager.Connect(rootCtx); err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	profiles := services.NewMongoProfileService(manager, log)
	if err := profiles.EnsureIndexes(rootCtx); err != nil {
		log.Fatal("mongo indexes", zap.Error(err))
	}

	router := server.NewRouter(server.Deps{
		Profiles:       profiles,
		Verifier:       middleware.NewTokenVerifier(authClient),
		Logger:         log,
		CORSOrigin:     cfg.HTTP.CORSOrigin,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Production:     cfg.IsProduction(),
	})

	addr := cfg.HTTP.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("http listen", zap.String("addr", addr), zap.Error(err))
	}
	log.Info("http listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-rootCtx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			log.Error("http serve", zap.Error(err))
			exitCode = 1
		}
	}

	if !shutdown(srv, manager, cfg.HTTP.ShutdownTimeout, log) {
		exitCode = 1
	}
	log.Info("server stopped")
	log.Sync()
	os.Exit(exitCode)
}

// shutdown drains HTTP first, then closes MongoDB. It reports false when the
// deadline was hit or a step failed.
func shutdown(srv *http.Server, manager *storage.Manager, timeout time.Duration, log *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok := true
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown incomplete", zap.Error(err))
		ok = false
	}
	if err := manager.Close(ctx); err != nil {
		log.Error("mongo close", zap.Error(err))
		ok = false
	}
	return ok
}
