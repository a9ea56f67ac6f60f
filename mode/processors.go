package mode

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/pipeline"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

var (
	// ErrSourceNotOpened means the video file or camera could not be opened.
	// The run ends without output but this is not a failure.
	ErrSourceNotOpened = errors.New("could not open video source")
	ErrNoSourcePath    = errors.New("a video path is required in file mode")
)

// File runs the detector over a video file.
func File(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	params := svcs.CfgSvc.GetSourceParameters()
	if params.Path == "" {
		return ErrNoSourcePath
	}

	videoPath, err := canonicalize(params.Path)
	if err != nil {
		return err
	}

	return run(canxCtx, svcs, model.SourceFile, videoPath, videoPath)
}

// Camera runs the detector over a local camera until the time budget runs
// out or the process is asked to quit.
func Camera(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	index := svcs.CfgSvc.GetSourceParameters().CameraIndex
	return run(canxCtx, svcs, model.SourceCamera, index, cameraName(index))
}

// canonicalize resolves path to an absolute path with symlinks evaluated.
// The path must exist.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", xerrors.Errorf("resolve path %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", xerrors.Errorf("resolve path %s: %w", path, err)
	}

	lgr.Logger.Debug("path resolved", slog.String("path", path), slog.String("resolved", resolved))
	return resolved, nil
}
