package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nijaru/vidsight/analysis"
	"github.com/nijaru/vidsight/config"
	"github.com/nijaru/vidsight/db"
	"github.com/nijaru/vidsight/gemini"
	"github.com/nijaru/vidsight/handlers"
	"github.com/nijaru/vidsight/jobs"
	"github.com/nijaru/vidsight/logger"
	"github.com/nijaru/vidsight/metrics"
	"github.com/nijaru/vidsight/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	closer, err := logger.Setup(logger.Config{
		Dir:    cfg.LogDir,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	defer closer.Close()

	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database")
		}
	}()

	if n, err := store.FailInterrupted(context.Background()); err != nil {
		logrus.WithError(err).Warn("Failed to mark interrupted jobs")
	} else if n > 0 {
		logrus.WithField("count", n).Warn("Marked interrupted jobs as failed")
	}

	// The remote stays nil without a key, which disables analysis.
	var remote analysis.Remote
	if cfg.APIKeyConfigured() {
		client, err := gemini.NewClient(context.Background(), gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create Gemini client")
		}
		remote = client
	} else {
		logrus.Warn(analysis.ConfigurationWarning)
	}

	workflow := analysis.NewWorkflow(remote, analysis.Options{
		Model:          cfg.Gemini.Model,
		TempDir:        cfg.TempDir,
		PollInterval:   cfg.Analysis.PollInterval,
		PollTimeout:    cfg.Analysis.PollTimeout,
		DeleteUploaded: cfg.Gemini.DeleteUploaded,
	})

	var archive jobs.Archiver
	if cfg.ArchiveEnabled() {
		a, err := storage.NewArchive(context.Background(), storage.ArchiveConfig{
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create archive client")
		}
		archive = a
		logrus.WithField("bucket", cfg.Archive.Bucket).Info("Archiving results")
	}

	m := metrics.New()
	runner := jobs.NewRunner(workflow, store, archive, m, jobs.Config{
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Analysis.Timeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.New(cfg, runner, store, m).Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.ServerPort,
			"model": cfg.Gemini.Model,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
	if err := runner.Wait(ctx); err != nil {
		logrus.WithError(err).Warn("Analyses still running at shutdown")
	}
	logrus.Info("Server stopped")
}
