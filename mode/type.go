package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/data"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory) error

// Processors maps the --mode values to their processors.
var Processors = map[string]Processor{
	"0": File,
	"1": Camera,
}

func procRunStats(datasvc data.IService, stats model.RunStats) {
	err := datasvc.NewRunStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store run stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procDetections(datasvc data.IService, runID string, results *model.ResultSequence) {
	err := datasvc.NewDetections(runID, results.Items())
	if err != nil {
		lgr.Logger.Error(
			"failed to store detections",
			slog.String("runId", runID),
			slog.Any("error", err),
		)
		procError(datasvc, model.GenError("data_sink", err, map[string]interface{}{"runId": runID}, "error storing detections"))
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
