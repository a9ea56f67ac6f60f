package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khaledhikmat/vs-yolo/model"
	"github.com/khaledhikmat/vs-yolo/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
}

// NewFilesDB keeps run records as JSON arrays, one file per entity kind, in
// the configured input folder.
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	errorData := errorRecord(err)
	return newEntities([]errorEntity{errorData}, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewRunStats(stats model.RunStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntities([]model.RunStats{stats}, "run-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewDetections(runID string, results []model.ImageDetections) error {
	if len(results) == 0 {
		return nil
	}

	now := time.Now().Unix()
	summaries := make([]model.FrameSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, model.FrameSummary{
			RunID:      runID,
			Frame:      r.Frame,
			Detections: len(r.Detections),
			Timestamp:  now,
		})
	}
	return newEntities(summaries, "frame-summaries", svc.CfgSvc)
}

func (svc *filesDBService) Close() error {
	return nil
}

type errorEntity struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func errorRecord(err interface{}) errorEntity {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", e)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	return errorEntity{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
}

func entityPath(filename string, cfgsvc config.IService) string {
	return filepath.Join(cfgsvc.GetInputFolder(), fmt.Sprintf("%s.json", filename))
}

func newEntities[T any](entities []T, filename string, cfgsvc config.IService) error {
	existing, err := retrieveEntites[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	existing = append(existing, entities...)

	// Marshal the entity data to JSON
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetInputFolder(), 0755); err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	return os.WriteFile(entityPath(filename, cfgsvc), data, 0644)
}

func retrieveEntites[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(entityPath(filename, cfgsvc))
	if err != nil {
		// WARNIG: File not found, return empty slice
		return entities, nil
	}

	// Unmarshal the JSON data into the slice of entities
	err = json.Unmarshal(data, &entities)
	if err != nil {
		return nil, err
	}

	return entities, nil
}
