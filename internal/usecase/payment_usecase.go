package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-medical-appointment/config"
	"go-medical-appointment/internal/converter"
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/gateway"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrPaymentVerificationFailed  = errors.New("payment verification failed")
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
	ErrAppointmentAlreadyPaid     = errors.New("appointment is already paid")
	ErrInvalidPaymentAmount       = errors.New("appointment has no payable amount")
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

type PaymentUsecase interface {
	CreateOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.AppointmentResponse, error)
	GetPaymentHistory(ctx context.Context) ([]dto.AppointmentResponse, error)
}

type paymentUsecase struct {
	log             *logrus.Logger
	cfg             config.PaymentConfig
	appointmentRepo repository.AppointmentRepository
	orderRepo       repository.PaymentOrderRepository
	paymentGateway  gateway.PaymentGateway
	signer          *service.PaymentSigner
	auditService    service.AuditService
	now             func() time.Time
}

func NewPaymentUsecase(
	log *logrus.Logger,
	cfg config.PaymentConfig,
	appointmentRepo repository.AppointmentRepository,
	orderRepo repository.PaymentOrderRepository,
	paymentGateway gateway.PaymentGateway,
	signer *service.PaymentSigner,
	auditService service.AuditService,
) PaymentUsecase {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 10 * time.Second
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 24 * time.Hour
	}
	return &paymentUsecase{
		log:             log,
		cfg:             cfg,
		appointmentRepo: appointmentRepo,
		orderRepo:       orderRepo,
		paymentGateway:  paymentGateway,
		signer:          signer,
		auditService:    auditService,
		now:             time.Now,
	}
}

// CreateOrder opens a provider order for the appointment's fee. The
// appointment itself is not touched; only the order reference is kept so the
// verification step can bind the order to this appointment.
func (u *paymentUsecase) CreateOrder(ctx context.Context, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error) {
	patient, appointment, err := u.loadOwnAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.IsPaid() {
		return nil, ErrAppointmentAlreadyPaid
	}
	if appointment.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	amount := appointment.ConsultationFee.Mul(minorUnitsPerMajor).Round(0).IntPart()
	if amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	callCtx, cancel := context.WithTimeout(ctx, u.cfg.OrderTimeout)
	defer cancel()

	orderID, err := u.paymentGateway.CreateOrder(callCtx, amount, u.cfg.Currency, receiptFor(appointment.ID), map[string]string{
		"appointmentId": appointment.ID.String(),
		"patientId":     appointment.PatientID.String(),
		"doctorId":      appointment.DoctorID.String(),
	})
	if err != nil {
		u.log.Warnf("Failed to create payment order for appointment %s: %+v", appointment.ID, err)
		return nil, ErrPaymentProviderUnavailable
	}

	order := &entity.PaymentOrder{
		OrderID:       orderID,
		AppointmentID: appointment.ID,
		PatientID:     patient.Identity().ID,
		Amount:        amount,
		Currency:      u.cfg.Currency,
		CreatedAt:     u.now(),
	}
	if err := u.orderRepo.Save(ctx, order, u.cfg.OrderTTL); err != nil {
		u.log.Warnf("Failed to store payment order %s: %+v", orderID, err)
		return nil, err
	}

	u.auditService.Log(ctx, patient, entity.AuditActionPaymentOrderCreate, entity.JSON{
		"appointment_id": appointment.ID,
		"order_id":       orderID,
		"amount":         amount,
		"currency":       u.cfg.Currency,
	})
	u.log.Infof("Payment order %s created for appointment %s", orderID, appointment.ID)

	return converter.PaymentOrderToResponse(order, u.cfg.KeyID), nil
}

// VerifyPayment checks the callback signature before anything else and only
// then marks the appointment paid and confirmed. Repeating a successful
// verification returns the appointment unchanged.
func (u *paymentUsecase) VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.AppointmentResponse, error) {
	patient, err := authorize(ctx, nil, policy.RequireRole(entity.RolePatient))
	if err != nil {
		return nil, err
	}

	if !u.signer.Verify(req.OrderID, req.PaymentID, req.Signature) {
		return nil, u.rejectPayment(ctx, patient, req, "signature mismatch")
	}

	order, err := u.findOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, u.rejectPayment(ctx, patient, req, "unknown order")
	}
	if order.AppointmentID != req.AppointmentID || order.PatientID != patient.Identity().ID {
		return nil, u.rejectPayment(ctx, patient, req, "order bound to another appointment")
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, order.AppointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", order.AppointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if appointment.IsPaid() {
		return converter.AppointmentToResponse(appointment), nil
	}

	to, err := paidStatus(appointment.Status)
	if err != nil {
		return nil, err
	}

	marked, err := u.appointmentRepo.MarkPaid(ctx, appointment.ID, appointment.Status, to, entity.PaymentMethodRazorpay, req.PaymentID)
	if err != nil {
		u.log.Warnf("Failed to mark appointment %s paid: %+v", appointment.ID, err)
		return nil, err
	}

	current, err := u.appointmentRepo.FindByID(ctx, appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrAppointmentNotFound
	}
	if !marked {
		// a concurrent verification may have won the swap
		if current.IsPaid() {
			return converter.AppointmentToResponse(current), nil
		}
		return nil, ErrInvalidTransition
	}

	u.auditService.Log(ctx, patient, entity.AuditActionPaymentConfirm, entity.JSON{
		"appointment_id": appointment.ID,
		"order_id":       req.OrderID,
		"payment_id":     req.PaymentID,
		"from":           appointment.Status,
		"to":             to,
	})
	u.log.Infof("Payment %s verified for appointment %s", req.PaymentID, appointment.ID)

	return converter.AppointmentToResponse(current), nil
}

// findOrder reads the order registry and falls back to the provider when the
// entry has expired or was lost, so a genuine but late callback still binds.
func (u *paymentUsecase) findOrder(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	order, err := u.orderRepo.Find(ctx, orderID)
	if err != nil {
		u.log.Warnf("Failed to find payment order %s: %+v", orderID, err)
		return nil, err
	}
	if order != nil {
		return order, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, u.cfg.OrderTimeout)
	defer cancel()

	order, err = u.paymentGateway.FetchOrder(callCtx, orderID)
	if err != nil {
		u.log.Warnf("Failed to fetch payment order %s from provider: %+v", orderID, err)
		return nil, ErrPaymentProviderUnavailable
	}
	if order == nil {
		return nil, nil
	}
	u.log.Infof("Payment order %s recovered from provider", orderID)

	if err := u.orderRepo.Save(ctx, order, u.cfg.OrderTTL); err != nil {
		u.log.Warnf("Failed to re-store payment order %s: %+v", orderID, err)
	}
	return order, nil
}

func (u *paymentUsecase) GetPaymentHistory(ctx context.Context) ([]dto.AppointmentResponse, error) {
	patient, err := authorize(ctx, nil, policy.RequireRole(entity.RolePatient))
	if err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindPaidByPatient(ctx, patient.Identity().ID)
	if err != nil {
		u.log.Warnf("Failed to find payment history for %s: %+v", patient.Identity().ID, err)
		return nil, err
	}
	return converter.AppointmentsToResponses(appointments), nil
}

func (u *paymentUsecase) loadOwnAppointment(ctx context.Context, id uuid.UUID) (entity.Principal, *entity.Appointment, error) {
	patient, err := authorize(ctx, nil, policy.RequireRole(entity.RolePatient))
	if err != nil {
		return nil, nil, err
	}

	appointment, ok := middleware.GetAppointmentFromContext(ctx, id)
	if !ok {
		appointment, err = u.appointmentRepo.FindByID(ctx, id)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", id, err)
			return nil, nil, err
		}
	}
	if appointment == nil {
		return nil, nil, policy.Forbidden(policy.ReasonNotOwner)
	}
	if err := policy.RequireOwnership()(patient, appointment); err != nil {
		return nil, nil, err
	}
	return patient, appointment, nil
}

func (u *paymentUsecase) rejectPayment(ctx context.Context, patient entity.Principal, req *dto.VerifyPaymentRequest, reason string) error {
	u.log.Warnf("Payment verification failed for appointment %s, order %s: %s", req.AppointmentID, req.OrderID, reason)
	u.auditService.Log(ctx, patient, entity.AuditActionPaymentVerifyFailed, entity.JSON{
		"appointment_id": req.AppointmentID,
		"order_id":       req.OrderID,
		"payment_id":     req.PaymentID,
		"reason":         reason,
	})
	return ErrPaymentVerificationFailed
}

// paidStatus is the status an unpaid appointment holds once paid. A doctor may
// already have confirmed it, in which case only the payment is recorded.
func paidStatus(current entity.AppointmentStatus) (entity.AppointmentStatus, error) {
	if current == entity.AppointmentStatusConfirmed {
		return current, nil
	}
	to, err := entity.NextStatus(current, entity.TriggerPayment, entity.ActorPaymentProtocol)
	if err != nil {
		return current, ErrInvalidTransition
	}
	return to, nil
}

func receiptFor(appointmentID uuid.UUID) string {
	// provider receipts are capped at 40 characters
	return "appt_" + strings.ReplaceAll(appointmentID.String(), "-", "")
}
