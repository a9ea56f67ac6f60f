package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/mode"
	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/config"
	"github.com/khaledhikmat/vs-yolo/service/data"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
	"github.com/khaledhikmat/vs-yolo/service/metrics"
	"github.com/khaledhikmat/vs-yolo/service/publisher"
	"github.com/khaledhikmat/vs-yolo/service/storage"
	"github.com/khaledhikmat/vs-yolo/service/tracing"
	"github.com/khaledhikmat/vs-yolo/vision"
)

const (
	// WARNING: this is added to the mode processor shutdown time
	waitOnShutdown = 3 * time.Second
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfgSvc, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logParams := cfgSvc.GetLogParameters()
	lgr.Init(lgr.Options{
		Level:      logParams.Level,
		File:       logParams.File,
		MaxSizeMB:  logParams.MaxSizeMB,
		MaxBackups: logParams.MaxBackups,
		MaxAgeDays: logParams.MaxAgeDays,
	})
	defer lgr.Close()

	lgr.Logger.Info("start process...")

	modeType := cfgSvc.GetSourceParameters().Mode
	modeProc, ok := mode.Processors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode. Expected 0 (video file) or 1 (camera)", slog.String("mode", modeType))
		return 0
	}

	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			lgr.Logger.Info(
				"received kill signal",
				slog.Any("signal", sig),
			)
			canxFn()
		case <-canxCtx.Done():
		}
	}()

	if port := cfgSvc.GetMetricsPort(); port > 0 {
		srv := metrics.StartMetricsServer(port)
		defer srv.Shutdown(context.Background())
	}

	if endpoint := cfgSvc.GetTracingEndpoint(); endpoint != "" {
		tp, err := tracing.InitTracer(rootCtx, endpoint)
		if err != nil {
			lgr.Logger.Warn("tracing disabled", slog.Any("error", err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	svcs := newServices(rootCtx, cfgSvc)
	defer svcs.DataSvc.Close()
	defer svcs.PublisherSvc.Close()

	// Buffered so the processor never blocks if we stop waiting for it
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	select {
	case err = <-modeProcResult:
	case <-canxCtx.Done():
		// The processor still flushes its results after a quit
		period := time.Duration(cfgSvc.GetModeMaxShutdownTime())*time.Second + waitOnShutdown
		lgr.Logger.Info(
			"waiting for the mode processor to exit",
			slog.Duration("period", period),
		)

		timer := time.NewTimer(period)
		defer timer.Stop()

		select {
		case err = <-modeProcResult:
		case <-timer.C:
			lgr.Logger.Error(
				"shutdown waiting period expired. Exiting now",
				slog.Duration("period", period),
			)
			return 1
		}
	}

	return exitCode(err)
}

// exitCode maps the mode processor result to the process exit status.
// A source that cannot be opened is not a failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, mode.ErrSourceNotOpened) {
		lgr.Logger.Info("could not open video source. Nothing to do")
		return 0
	}

	lgr.Logger.Error(
		"mode processor exited",
		slog.Any("error", lgr.WithStack(xerrors.Errorf("run failed: %w", err))),
	)
	return 1
}

// newServices picks the configured sink implementations. A sink that cannot
// be reached is replaced by its local fallback.
func newServices(ctx context.Context, cfgSvc config.IService) pipeline.ServicesFactory {
	// Data service
	var dataSvc data.IService = data.NewFilesDB(cfgSvc)
	if dbFile := cfgSvc.GetDatabaseFile(); dbFile != "" {
		sqliteSvc, err := data.NewSQLite(dbFile)
		if err != nil {
			lgr.Logger.Warn("sqlite unavailable, using files db", slog.String("db", dbFile), slog.Any("error", err))
		} else {
			dataSvc = sqliteSvc
		}
	}

	// storage service
	storageSvc := storage.NewFake(cfgSvc)
	if storageParams := cfgSvc.GetStorageParameters(); storageParams.Endpoint != "" {
		minioSvc, err := storage.NewMinio(ctx, storageParams)
		if err != nil {
			lgr.Logger.Warn("object storage unavailable, keeping results local", slog.String("endpoint", storageParams.Endpoint), slog.Any("error", err))
		} else {
			storageSvc = minioSvc
		}
	}

	// publisher service
	publisherSvc := publisher.NewFake(cfgSvc)
	if pubParams := cfgSvc.GetPublisherParameters(); pubParams.URL != "" {
		rabbitSvc, err := publisher.NewRabbitMQ(pubParams)
		if err != nil {
			lgr.Logger.Warn("message broker unavailable, run events are only logged", slog.Any("error", err))
		} else {
			publisherSvc = rabbitSvc
		}
	}

	return pipeline.ServicesFactory{
		CfgSvc:          cfgSvc,
		DataSvc:         dataSvc,
		StorageSvc:      storageSvc,
		PublisherSvc:    publisherSvc,
		OpenSource:      vision.OpenCapture,
		LoadDetector:    vision.LoadYolo5,
		NewPreprocessor: vision.NewPreprocessor,
	}
}
