package rabbitmq

import "context"

type PublisherInterface interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

var _ PublisherInterface = (*Publisher)(nil)
