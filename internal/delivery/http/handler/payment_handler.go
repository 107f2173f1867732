package handler

import (
	"encoding/json"
	"net/http"

	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/usecase"
	"go-medical-appointment/pkg/response"
	"go-medical-appointment/pkg/validator"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	order, err := h.paymentUsecase.CreateOrder(r.Context(), &req)
	if err != nil {
		respondError(w, err, "Failed to create payment order")
		return
	}

	response.Success(w, http.StatusCreated, "Payment order created successfully", order)
}

// VerifyPayment receives the client callback after checkout.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.paymentUsecase.VerifyPayment(r.Context(), &req)
	if err != nil {
		respondError(w, err, "Failed to verify payment")
		return
	}

	response.Success(w, http.StatusOK, "Payment verified successfully", appointment)
}

func (h *PaymentHandler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.paymentUsecase.GetPaymentHistory(r.Context())
	if err != nil {
		respondError(w, err, "Failed to get payment history")
		return
	}

	response.Success(w, http.StatusOK, "Payment history retrieved successfully", history)
}
