package dto

import (
	"github.com/google/uuid"
)

// Request DTOs

type CreatePaymentOrderRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
}

type VerifyPaymentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	OrderID       string    `json:"razorpay_order_id" validate:"required"`
	PaymentID     string    `json:"razorpay_payment_id" validate:"required"`
	Signature     string    `json:"razorpay_signature" validate:"required"`
}

// Response DTOs

type PaymentOrderResponse struct {
	OrderID       string    `json:"order_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	KeyID         string    `json:"key_id"`
}
