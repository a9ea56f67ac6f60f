package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/akamensky/argparse"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

// Load builds the run settings from, in increasing priority: defaults, the
// given .env files (".env" when none are given), the process environment,
// and the command line. args includes the program name, as os.Args does.
// A missing .env file is not an error.
func Load(args []string, envFiles ...string) (IService, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Errorf("load env file %s: %w", f, err)
		}
	}

	s := Settings{}
	if err := env.Parse(&s); err != nil {
		return nil, xerrors.Errorf("parse environment: %w", err)
	}

	if err := parseArgs(args, &s); err != nil {
		return nil, err
	}

	if s.ModelPath == "" {
		return nil, xerrors.New("a model path is required")
	}

	return NewStatic(s), nil
}

func parseArgs(args []string, s *Settings) error {
	parser := argparse.NewParser("vs-yolo", "Run a YOLO model over sampled frames of a video file or camera and write the detections to JSON")
	modelPath := parser.StringPositional(&argparse.Options{Help: "Path to the YOLO ONNX model"})
	sourcePath := parser.StringPositional(&argparse.Options{Help: "Path to the video file (file mode)"})
	mode := parser.String("m", "mode", &argparse.Options{Help: "Source mode: 0 = video file, 1 = camera", Default: s.Mode})
	cameraIndex := parser.Int("", "camera", &argparse.Options{Help: "Camera index used in camera mode", Default: s.CameraIndex})
	recursive := parser.Flag("", "recursive", &argparse.Options{Help: "Accepted for compatibility; has no effect", Default: s.Recursive})
	inputWidth := parser.Int("", "input-width", &argparse.Options{Help: "Model input width", Default: s.InputWidth})
	inputHeight := parser.Int("", "input-height", &argparse.Options{Help: "Model input height", Default: s.InputHeight})
	conf := parser.Float("", "conf", &argparse.Options{Help: "Detection confidence threshold", Default: float64(s.ConfidenceThreshold)})
	iou := parser.Float("", "iou", &argparse.Options{Help: "Non-max suppression IoU threshold", Default: float64(s.IoUThreshold)})
	maxDuration := parser.Float("", "max-duration", &argparse.Options{Help: "Stop after this many seconds (0 = no limit)", Default: s.MaxDuration.Seconds()})
	stride := parser.Int("", "stride", &argparse.Options{Help: "Process every Nth frame (0 = derive from the source frame rate)", Default: s.Stride})
	output := parser.String("o", "output", &argparse.Options{Help: "Output JSON file", Default: s.OutputFile})
	labels := parser.String("l", "labels", &argparse.Options{Help: "Class names file, one name per line", Default: s.LabelsPath})
	database := parser.String("", "db", &argparse.Options{Help: "SQLite database file for run results", Default: s.DatabaseFile})
	metricsPort := parser.Int("", "metrics-port", &argparse.Options{Help: "Serve Prometheus metrics on this port (0 = disabled)", Default: s.MetricsPort})

	if err := parser.Parse(args); err != nil {
		return xerrors.New(parser.Usage(err))
	}

	if *modelPath != "" {
		s.ModelPath = *modelPath
	}
	if *sourcePath != "" {
		s.SourcePath = *sourcePath
	}
	s.Mode = *mode
	s.CameraIndex = *cameraIndex
	s.Recursive = *recursive
	s.InputWidth = *inputWidth
	s.InputHeight = *inputHeight
	s.ConfidenceThreshold = float32(*conf)
	s.IoUThreshold = float32(*iou)
	s.MaxDuration = time.Duration(*maxDuration * float64(time.Second))
	s.Stride = *stride
	s.OutputFile = *output
	s.LabelsPath = *labels
	s.DatabaseFile = *database
	s.MetricsPort = *metricsPort

	if s.InputWidth <= 0 || s.InputHeight <= 0 {
		return xerrors.Errorf("invalid model input size %dx%d", s.InputWidth, s.InputHeight)
	}
	if s.Stride < 0 {
		return xerrors.Errorf("invalid stride %d", s.Stride)
	}
	if s.MaxDuration < 0 {
		return xerrors.Errorf("invalid max duration %v", s.MaxDuration)
	}

	return nil
}
