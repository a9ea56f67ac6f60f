package publisher

import "context"

type IService interface {
	Publish(ctx context.Context, payload map[string]interface{}) error
	Close() error
}
