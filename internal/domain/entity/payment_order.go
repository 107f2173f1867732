package entity

import (
	"time"

	"github.com/google/uuid"
)

// PaymentOrder is the local reference to a provider-side payment intent. The
// provider owns the order; only the id, the requested amount and the
// correlation to one appointment are kept.
type PaymentOrder struct {
	OrderID       string    `json:"order_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

func (o *PaymentOrder) OwnerIDs() []uuid.UUID {
	return []uuid.UUID{o.PatientID}
}
