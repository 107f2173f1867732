package converter

import (
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
)

// PaymentOrderToResponse converts a PaymentOrder to PaymentOrderResponse DTO.
// keyID is the public provider key the client needs to open checkout.
func PaymentOrderToResponse(order *entity.PaymentOrder, keyID string) *dto.PaymentOrderResponse {
	if order == nil {
		return nil
	}

	return &dto.PaymentOrderResponse{
		OrderID:       order.OrderID,
		AppointmentID: order.AppointmentID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		KeyID:         keyID,
	}
}
