package storage

import "context"

type IService interface {
	// StoreFile uploads the file and returns where it can be retrieved from.
	StoreFile(ctx context.Context, fileName string) (string, error)
}
