package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/service/inference"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
	"github.com/khaledhikmat/vs-yolo/service/metrics"
)

const (
	StopExhausted = "exhausted"
	StopBudget    = "budget"
	StopCancelled = "cancelled"
)

var ErrSourceClosed = errors.New("video source is not opened")

type FramerParameters struct {
	// Source names the video in every result record.
	Source              string
	ConfidenceThreshold float32
	IoUThreshold        float32
	// MaxDuration bounds the wall-clock time of the loop. Zero means no bound.
	MaxDuration time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Framer reads src until it is exhausted, the time budget runs out or the
// context is cancelled, and runs the detector on the frames the sampler does
// not skip. All three stop conditions are normal completions. Any error
// aborts the loop and the results gathered so far are dropped.
func Framer(canxCtx context.Context, params FramerParameters, src VideoSource, sampler inference.IService, prep Preprocessor, det Detector) (*model.ResultSequence, model.RunStats, error) {
	now := params.Now
	if now == nil {
		now = time.Now
	}

	stats := model.RunStats{
		Source: params.Source,
		Stride: sampler.Stride(),
	}

	if !src.IsOpened() {
		return nil, stats, ErrSourceClosed
	}

	tracer := otel.Tracer("pipeline")
	results := &model.ResultSequence{}
	startTime := now()
	frames := 0
	var totalProcTime time.Duration

	finish := func(reason string) (*model.ResultSequence, model.RunStats, error) {
		stats.StopReason = reason
		stats.Frames = frames
		stats.SampledFrames = results.Len()
		stats.SkippedFrames = frames - results.Len()
		stats.Detections = results.DetectionCount()
		stats.Uptime = now().Sub(startTime).Seconds()
		if results.Len() > 0 {
			stats.AvgProcTime = totalProcTime.Seconds() / float64(results.Len())
		}
		metrics.RunsTotal.WithLabelValues(reason).Inc()

		lgr.Logger.Info("framer stopped",
			slog.String("reason", reason),
			slog.Int("frames", stats.Frames),
			slog.Int("sampled", stats.SampledFrames),
			slog.Int("detections", stats.Detections),
		)
		return results, stats, nil
	}

	for {
		select {
		case <-canxCtx.Done():
			return finish(StopCancelled)
		default:
		}

		if params.MaxDuration > 0 && now().Sub(startTime) >= params.MaxDuration {
			return finish(StopBudget)
		}

		frame, err := src.Read()
		if errors.Is(err, io.EOF) {
			return finish(StopExhausted)
		}
		if err != nil {
			return nil, stats, xerrors.Errorf("read frame %d: %w", frames, err)
		}

		index := frames
		frames++
		metrics.FramesReadTotal.Inc()

		// Determine if we should skip the frame
		if sampler.CanSkipFrame(index) {
			frame.Close() // Crucial to close the image to avoid memory leaks
			continue
		}

		begin := time.Now()
		res, err := processFrame(canxCtx, tracer, params, index, frame, prep, det)
		frame.Close()
		if err != nil {
			return nil, stats, err
		}
		elapsed := time.Since(begin)
		totalProcTime += elapsed

		metrics.FramesSampledTotal.Inc()
		metrics.DetectionsTotal.Add(float64(len(res.Detections)))
		metrics.InferenceDuration.Observe(elapsed.Seconds())

		lgr.Logger.Debug("frame processed",
			slog.Int("frame", index),
			slog.Int("detections", len(res.Detections)),
			slog.Duration("elapsed", elapsed),
		)

		results.Append(res)
	}
}

func processFrame(ctx context.Context, tracer trace.Tracer, params FramerParameters, index int, frame Frame, prep Preprocessor, det Detector) (model.ImageDetections, error) {
	_, span := tracer.Start(ctx, "framer.process_frame", trace.WithAttributes(
		attribute.String("source", params.Source),
		attribute.Int("frame", index),
	))
	defer span.End()

	fail := func(err error) (model.ImageDetections, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.ImageDetections{}, err
	}

	prepared, err := prep.Prepare(frame)
	if err != nil {
		return fail(xerrors.Errorf("prepare frame %d: %w", index, err))
	}
	defer prepared.Close()

	res, err := det.Detect(prepared, params.ConfidenceThreshold, params.IoUThreshold)
	if err != nil {
		return fail(xerrors.Errorf("detect on frame %d: %w", index, err))
	}

	res.Frame = index
	if res.File == "" {
		res.File = params.Source
	}

	span.SetAttributes(attribute.Int("detections", len(res.Detections)))
	return res, nil
}
