package repository

import (
	"context"
	"time"

	"go-medical-appointment/internal/domain/entity"
)

// PaymentOrderRepository keeps the reference to orders created with the payment
// provider. Find returns (nil, nil) for unknown or expired orders.
type PaymentOrderRepository interface {
	Save(ctx context.Context, order *entity.PaymentOrder, ttl time.Duration) error
	Find(ctx context.Context, orderID string) (*entity.PaymentOrder, error)
}
