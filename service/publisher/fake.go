package publisher

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-yolo/service/config"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

type logService struct {
	CfgSvc config.IService
}

// NewFake logs events instead of sending them anywhere.
func NewFake(cfgsvc config.IService) IService {
	return &logService{
		CfgSvc: cfgsvc,
	}
}

func (svc *logService) Publish(_ context.Context, payload map[string]interface{}) error {
	lgr.Logger.Debug("run event", slog.Any("payload", payload))
	return nil
}

func (svc *logService) Close() error {
	return nil
}
