package gateway

import (
	"context"

	"go-medical-appointment/internal/domain/entity"
)

// PaymentGateway creates provider-side payment orders. Amount is in the
// currency's minor unit.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error)
	// FetchOrder reads an order back from the provider, rebuilding its
	// binding from the notes it was created with. Nil when the provider has
	// no such order.
	FetchOrder(ctx context.Context, orderID string) (*entity.PaymentOrder, error)
}
