package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/service/config"
	"github.com/khaledhikmat/vs-yolo/service/lgr"
)

type minioService struct {
	client *miniogo.Client
	bucket string
	now    func() time.Time
}

// NewMinio connects to an S3-compatible endpoint and makes sure the bucket
// exists.
func NewMinio(ctx context.Context, params config.StorageParameters) (IService, error) {
	client, err := miniogo.New(params.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(params.AccessKey, params.SecretKey, ""),
		Secure: params.UseSSL,
	})
	if err != nil {
		return nil, xerrors.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, params.Bucket)
	if err != nil {
		return nil, xerrors.Errorf("check bucket %s: %w", params.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, params.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, xerrors.Errorf("create bucket %s: %w", params.Bucket, err)
		}
		lgr.Logger.Info("created storage bucket", slog.String("bucket", params.Bucket))
	}

	return &minioService{
		client: client,
		bucket: params.Bucket,
		now:    time.Now,
	}, nil
}

func (svc *minioService) StoreFile(ctx context.Context, fileName string) (string, error) {
	key := objectKey(fileName, svc.now())

	info, err := svc.client.FPutObject(ctx, svc.bucket, key, fileName, miniogo.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", xerrors.Errorf("upload %s: %w", fileName, err)
	}

	lgr.Logger.Debug("stored file",
		slog.String("bucket", info.Bucket),
		slog.String("key", info.Key),
		slog.Int64("size", info.Size),
	)
	return fmt.Sprintf("s3://%s/%s", info.Bucket, info.Key), nil
}

// objectKey groups uploads by day so repeated runs never overwrite each other.
func objectKey(fileName string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s-%s", at.Format("2006/01/02"), at.Format("150405.000"), filepath.Base(fileName))
}
