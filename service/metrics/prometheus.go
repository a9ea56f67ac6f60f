package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_frames_read_total",
		Help: "Total number of frames read from the video source",
	})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_frames_sampled_total",
		Help: "Total number of frames sent to the detector",
	})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vs_detections_total",
		Help: "Total number of objects detected across all sampled frames",
	})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vs_inference_duration_seconds",
		Help:    "Duration of preprocessing plus detection for one sampled frame",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vs_runs_total",
		Help: "Total number of sampling runs, by stop reason",
	}, []string{"reason"})
)
