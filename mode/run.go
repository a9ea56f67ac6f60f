package mode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/inference"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

func cameraName(index int) string {
	return fmt.Sprintf("camera:%d", index)
}

// run is shared by the file and camera processors. target is handed to
// OpenSource as is; name identifies the source in results and logs.
func run(canxCtx context.Context, svcs pipeline.ServicesFactory, kind model.SourceKind, target interface{}, name string) error {
	srcParams := svcs.CfgSvc.GetSourceParameters()
	detParams := svcs.CfgSvc.GetDetectorParameters()

	if srcParams.Recursive {
		lgr.Logger.Info("recursive flag has no effect and is ignored")
	}

	modelPath, err := canonicalize(detParams.ModelPath)
	if err != nil {
		return err
	}
	detParams.ModelPath = modelPath

	src, err := svcs.OpenSource(target)
	if err != nil {
		return xerrors.Errorf("open %s: %w", name, err)
	}
	defer src.Close()

	if !src.IsOpened() {
		lgr.Logger.Warn("could not open video source. Aborting", slog.String("source", name))
		return ErrSourceNotOpened
	}

	fps, err := src.FPS()
	if err != nil {
		return xerrors.Errorf("query fps of %s: %w", name, err)
	}

	stride := srcParams.Stride
	if stride <= 0 {
		stride = inference.StrideFromFPS(fps)
	}

	det, err := svcs.LoadDetector(detParams)
	if err != nil {
		return xerrors.Errorf("load model %s: %w", detParams.ModelPath, err)
	}
	defer det.Close()

	lgr.Logger.Info("inferencing on video",
		slog.String("source", name),
		slog.String("kind", string(kind)),
		slog.Float64("fps", fps),
		slog.Int("stride", stride),
		slog.Duration("maxDuration", srcParams.MaxDuration),
	)

	results, stats, err := pipeline.Framer(canxCtx, pipeline.FramerParameters{
		Source:              name,
		ConfidenceThreshold: detParams.ConfidenceThreshold,
		IoUThreshold:        detParams.IoUThreshold,
		MaxDuration:         srcParams.MaxDuration,
	}, src, inference.NewStrided(stride), svcs.NewPreprocessor(detParams.InputWidth, detParams.InputHeight), det)
	if err != nil {
		procError(svcs.DataSvc, model.GenError(string(kind), err, map[string]interface{}{"source": name}, "error processing %s", name))
		return err
	}

	outputFile := svcs.CfgSvc.GetOutputFile()
	if err := results.WriteJSON(outputFile); err != nil {
		return xerrors.Errorf("failed to write results: %w", err)
	}

	stats.RunID = uuid.NewString()
	stats.Kind = string(kind)
	stats.SourceFPS = fps

	lgr.Logger.Info("results written",
		slog.String("output", outputFile),
		slog.String("runId", stats.RunID),
		slog.Int("results", results.Len()),
	)

	finalize(svcs, stats, results, outputFile)
	return nil
}

// finalize hands the finished run to the optional sinks. Their failures are
// recorded but never fail the run. It does not use the run context, which
// may already be cancelled, and is bounded by the shutdown period instead.
func finalize(svcs pipeline.ServicesFactory, stats model.RunStats, results *model.ResultSequence, outputFile string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second)
	defer cancel()

	procRunStats(svcs.DataSvc, stats)
	procDetections(svcs.DataSvc, stats.RunID, results)

	location, err := svcs.StorageSvc.StoreFile(ctx, outputFile)
	if err != nil {
		procError(svcs.DataSvc, model.GenError("storage_sink", err, map[string]interface{}{"runId": stats.RunID}, "error storing %s", outputFile))
	}

	err = svcs.PublisherSvc.Publish(ctx, map[string]interface{}{
		"runId":      stats.RunID,
		"source":     stats.Source,
		"kind":       stats.Kind,
		"stride":     stats.Stride,
		"frames":     stats.Frames,
		"sampled":    stats.SampledFrames,
		"detections": stats.Detections,
		"stopReason": stats.StopReason,
		"output":     location,
	})
	if err != nil {
		procError(svcs.DataSvc, model.GenError("publisher_sink", err, map[string]interface{}{"runId": stats.RunID}, "error publishing run event"))
	}
}
