package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

// SourceKind selects where frames come from.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceCamera SourceKind = "camera"
)

type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Detection struct {
	ClassIndex  int         `json:"class_index"`
	Label       string      `json:"label,omitempty"`
	Confidence  float32     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// ImageDetections is the detector output for one processed frame.
type ImageDetections struct {
	File        string      `json:"file"`
	Frame       int         `json:"frame"`
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
	Detections  []Detection `json:"detections"`
}

// RunStats summarises one pass of the sampling loop.
type RunStats struct {
	RunID         string  `json:"runId"`
	Source        string  `json:"source"`
	Kind          string  `json:"kind"`
	SourceFPS     float64 `json:"sourceFps"`
	Stride        int     `json:"stride"`
	Frames        int     `json:"frames"`
	SampledFrames int     `json:"sampledFrames"`
	SkippedFrames int     `json:"skippedFrames"`
	Detections    int     `json:"detections"`
	StopReason    string  `json:"stopReason"`
	Uptime        float64 `json:"uptime"`
	AvgProcTime   float64 `json:"avgProcTime"`
	Timestamp     int64   `json:"timestamp"`
}

// FrameSummary is the per-frame digest kept by the files database.
type FrameSummary struct {
	RunID      string `json:"runId"`
	Frame      int    `json:"frame"`
	Detections int    `json:"detections"`
	Timestamp  int64  `json:"timestamp"`
}
