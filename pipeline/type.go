package pipeline

import (
	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/service/config"
	"github.com/khaledhikmat/vs-yolo/service/data"
	"github.com/khaledhikmat/vs-yolo/service/publisher"
	"github.com/khaledhikmat/vs-yolo/service/storage"
)

// Frame is one decoded image. Whoever receives a Frame must Close it.
type Frame interface {
	Close() error
}

type VideoSource interface {
	IsOpened() bool
	FPS() (float64, error)
	// Read blocks until the next frame is available. It returns io.EOF once
	// the source has no more frames.
	Read() (Frame, error)
	Close() error
}

// Preprocessor resizes and color-converts a captured frame into the layout
// the detector expects. The returned frame is a new frame owned by the caller.
type Preprocessor interface {
	Prepare(frame Frame) (Frame, error)
}

type Detector interface {
	Detect(frame Frame, confThreshold, iouThreshold float32) (model.ImageDetections, error)
	Close() error
}

// ServicesFactory carries the services and frame adapters the mode
// processors run with.
type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	StorageSvc   storage.IService
	PublisherSvc publisher.IService

	OpenSource      func(target interface{}) (VideoSource, error)
	LoadDetector    func(params config.DetectorParameters) (Detector, error)
	NewPreprocessor func(width, height int) Preprocessor
}
