package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const paymentOrderKeyPrefix = "payment:order:"

type paymentOrderRepository struct {
	redisClient *redis.Client
}

func NewPaymentOrderRepository(redisClient *redis.Client) domainRepo.PaymentOrderRepository {
	return &paymentOrderRepository{redisClient: redisClient}
}

func (r *paymentOrderRepository) Save(ctx context.Context, order *entity.PaymentOrder, ttl time.Duration) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return r.redisClient.Set(ctx, paymentOrderKeyPrefix+order.OrderID, payload, ttl).Err()
}

func (r *paymentOrderRepository) Find(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	payload, err := r.redisClient.Get(ctx, paymentOrderKeyPrefix+orderID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var order entity.PaymentOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
