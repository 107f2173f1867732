package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-medical-appointment/config"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/gateway"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sirupsen/logrus"
)

var ErrMissingOrderID = errors.New("razorpay response has no order id")

const defaultRequestTimeout = 10 * time.Second

type razorpayGateway struct {
	client *razorpay.Client
	log    *logrus.Logger
}

// NewRazorpayGateway caps every SDK request at the order timeout so a call
// abandoned by its caller still ends on its own.
func NewRazorpayGateway(cfg config.PaymentConfig, log *logrus.Logger) gateway.PaymentGateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	client.Request.SetTimeout(requestTimeoutSeconds(cfg.OrderTimeout))
	return &razorpayGateway{
		client: client,
		log:    log,
	}
}

func requestTimeoutSeconds(d time.Duration) int16 {
	if d <= 0 {
		d = defaultRequestTimeout
	}
	secs := (d + time.Second - 1) / time.Second
	if secs > 300 {
		secs = 300
	}
	return int16(secs)
}

type sdkResult struct {
	body map[string]interface{}
	err  error
}

// call runs an SDK request in its own goroutine. The SDK takes no context, so
// ctx only bounds how long we wait; the client timeout bounds the goroutine.
func (g *razorpayGateway) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	done := make(chan sdkResult, 1)
	go func() {
		body, err := fn()
		done <- sdkResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		g.log.Warnf("Razorpay %s abandoned: %v", op, ctx.Err())
		return nil, fmt.Errorf("razorpay %s: %w", op, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("razorpay %s: %w", op, res.err)
		}
		return res.body, nil
	}
}

// CreateOrder calls the Orders API.
func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := g.call(ctx, "create order "+receipt, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return "", err
	}
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", ErrMissingOrderID
	}
	return id, nil
}

// FetchOrder reads the order and its notes back from the Orders API.
func (g *razorpayGateway) FetchOrder(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	body, err := g.call(ctx, "fetch order "+orderID, func() (map[string]interface{}, error) {
		return g.client.Order.Fetch(orderID, nil, nil)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return orderFromBody(orderID, body), nil
}

// orderFromBody returns nil when the order lacks the notes we attach, since it
// cannot be bound to an appointment.
func orderFromBody(orderID string, body map[string]interface{}) *entity.PaymentOrder {
	if id, _ := body["id"].(string); id != orderID {
		return nil
	}
	notes, _ := body["notes"].(map[string]interface{})
	appointmentID, err := uuid.Parse(noteString(notes, "appointmentId"))
	if err != nil {
		return nil
	}
	patientID, err := uuid.Parse(noteString(notes, "patientId"))
	if err != nil {
		return nil
	}

	order := &entity.PaymentOrder{
		OrderID:       orderID,
		AppointmentID: appointmentID,
		PatientID:     patientID,
	}
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	order.Currency, _ = body["currency"].(string)
	if created, ok := body["created_at"].(float64); ok {
		order.CreatedAt = time.Unix(int64(created), 0).UTC()
	}
	return order
}

func noteString(notes map[string]interface{}, key string) string {
	s, _ := notes[key].(string)
	return s
}

// the SDK surfaces provider errors as plain text
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}
