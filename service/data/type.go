package data

import "github.com/khaledhikmat/vs-yolo/model"

type IService interface {
	NewError(err interface{}) error
	NewRunStats(stats model.RunStats) error
	NewDetections(runID string, results []model.ImageDetections) error
	Close() error
}
