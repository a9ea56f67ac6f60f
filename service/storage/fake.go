package storage

import (
	"context"
	"path/filepath"

	"github.com/khaledhikmat/vs-yolo/service/config"
)

type localService struct {
	CfgSvc config.IService
}

// NewFake leaves files where they are and reports their absolute path.
func NewFake(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(_ context.Context, fileName string) (string, error) {
	return filepath.Abs(fileName)
}
