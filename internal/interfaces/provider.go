package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

type TokenProvider interface {
	GetAccessToken(ctx context.Context) (*models.AccessToken, error)
}

type CollectionProvider interface {
	RequestToPay(ctx context.Context, accessToken string, req models.RequestToPay) error
	GetRequestToPayStatus(ctx context.Context, accessToken, referenceID string) (*models.CallbackPayload, error)
}

type EventPublisher interface {
	PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error
}

type TaskQueue interface {
	EnqueueEmail(ctx context.Context, task models.EmailTask) error
}
