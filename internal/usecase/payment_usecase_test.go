package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) verifyRequest(appointment *entity.Appointment, orderID, paymentID string) *dto.VerifyPaymentRequest {
	return &dto.VerifyPaymentRequest{
		AppointmentID: appointment.ID,
		OrderID:       orderID,
		PaymentID:     paymentID,
		Signature:     f.signer.Sign(orderID, paymentID),
	}
}

func TestPayment_OrderThenVerify(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)
	assert.Equal(t, "order_TEST123", order.OrderID)
	assert.Equal(t, int64(15000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test_key", order.KeyID)

	calls := f.gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(15000), calls[0].Amount)
	assert.Equal(t, appt.ID.String(), calls[0].Notes["appointmentId"])
	assert.Equal(t, patient.ID.String(), calls[0].Notes["patientId"])
	assert.Equal(t, doctor.ID.String(), calls[0].Notes["doctorId"])
	assert.LessOrEqual(t, len(calls[0].Receipt), 40)

	// opening an order leaves the appointment alone
	stored := f.stored(appt.ID)
	assert.Equal(t, entity.AppointmentStatusScheduled, stored.Status)
	assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)

	req := f.verifyRequest(appt, order.OrderID, "pay_ABC")
	resp, err := f.payment.VerifyPayment(as(patient), req)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
	assert.Equal(t, string(entity.PaymentMethodRazorpay), resp.PaymentMethod)
	assert.Equal(t, "pay_ABC", resp.PaymentID)

	// the same callback again changes nothing
	again, err := f.payment.VerifyPayment(as(patient), req)
	require.NoError(t, err)
	assert.Equal(t, resp.Status, again.Status)
	assert.Equal(t, "pay_ABC", again.PaymentID)
	assert.Equal(t, 1, countActions(f.audits.Actions(), entity.AuditActionPaymentConfirm))

	_, err = f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	assert.ErrorIs(t, err, ErrAppointmentAlreadyPaid)

	history, err := f.payment.GetPaymentHistory(as(patient))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, appt.ID, history[0].ID)
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)

	req := f.verifyRequest(appt, order.OrderID, "pay_ABC")
	req.PaymentID = "pay_OTHER"
	_, err = f.payment.VerifyPayment(as(patient), req)
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)

	req.Signature = "not-hex"
	_, err = f.payment.VerifyPayment(as(patient), req)
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)

	assert.Equal(t, 2, countActions(f.audits.Actions(), entity.AuditActionPaymentVerifyFailed))
	stored := f.stored(appt.ID)
	assert.Equal(t, entity.AppointmentStatusScheduled, stored.Status)
	assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)
}

func TestVerifyPayment_OrderMustBelongToAppointment(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	paidFor := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)
	other := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: paidFor.ID})
	require.NoError(t, err)

	// a valid signature for the order cannot be replayed against another appointment
	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(other, order.OrderID, "pay_ABC"))
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Equal(t, entity.PaymentStatusPending, f.stored(other.ID).PaymentStatus)

	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(paidFor, "order_UNKNOWN", "pay_ABC"))
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Equal(t, entity.PaymentStatusPending, f.stored(paidFor.ID).PaymentStatus)
}

func TestVerifyPayment_OtherPatientsOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.seedPatient("ana@example.com", "secret123")
	intruder := f.seedPatient("eve@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(owner, doctor, entity.AppointmentStatusScheduled)

	_, err := f.payment.CreateOrder(as(intruder), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	assertForbidden(t, err, policy.ReasonNotOwner)

	order, err := f.payment.CreateOrder(as(owner), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)

	_, err = f.payment.VerifyPayment(as(intruder), f.verifyRequest(appt, order.OrderID, "pay_ABC"))
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)

	_, err = f.payment.VerifyPayment(as(doctor), f.verifyRequest(appt, order.OrderID, "pay_ABC"))
	assertForbidden(t, err, policy.ReasonRoleMismatch)
}

func TestCreateOrder_GatewayFailures(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	f.gateway.block = true
	start := time.Now()
	_, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	assert.ErrorIs(t, err, ErrPaymentProviderUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)

	f.gateway.block = false
	f.gateway.err = errors.New("BAD_REQUEST_ERROR")
	_, err = f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	assert.ErrorIs(t, err, ErrPaymentProviderUnavailable)

	saved, err := f.orders.Find(context.Background(), "order_TEST123")
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Equal(t, 0, countActions(f.audits.Actions(), entity.AuditActionPaymentOrderCreate))
	assert.Equal(t, entity.AppointmentStatusScheduled, f.stored(appt.ID).Status)
}

func TestCreateOrder_NonPayableAppointments(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	free := f.seedDoctor("free@example.com", true, 0)

	cancelled := f.seedAppointment(patient, doctor, entity.AppointmentStatusCancelled)
	_, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: cancelled.ID})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	zero := f.seedAppointment(patient, free, entity.AppointmentStatusScheduled)
	_, err = f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: zero.ID})
	assert.ErrorIs(t, err, ErrInvalidPaymentAmount)

	assert.Empty(t, f.gateway.Calls())
}

func TestVerifyPayment_ConfirmedUnpaidStaysConfirmed(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusConfirmed)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)

	resp, err := f.payment.VerifyPayment(as(patient), f.verifyRequest(appt, order.OrderID, "pay_ABC"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
}

func TestVerifyPayment_CancelledAfterOrder(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)

	_, err = f.appointment.CancelAppointment(as(patient), appt.ID, nil)
	require.NoError(t, err)

	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(appt, order.OrderID, "pay_ABC"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored := f.stored(appt.ID)
	assert.Equal(t, entity.AppointmentStatusCancelled, stored.Status)
	assert.Equal(t, entity.PaymentStatusPending, stored.PaymentStatus)
}

func TestVerifyPayment_ConcurrentCallbacksConfirmOnce(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)
	req := f.verifyRequest(appt, order.OrderID, "pay_ABC")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.payment.VerifyPayment(as(patient), req)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	stored := f.stored(appt.ID)
	assert.Equal(t, entity.AppointmentStatusConfirmed, stored.Status)
	assert.Equal(t, entity.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, 1, countActions(f.audits.Actions(), entity.AuditActionPaymentConfirm))
}

func TestVerifyPayment_ExpiredRegistryEntryFallsBackToProvider(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)
	f.orders.Expire(order.OrderID)

	resp, err := f.payment.VerifyPayment(as(patient), f.verifyRequest(appt, order.OrderID, "pay_LATE"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	assert.Equal(t, 1, f.gateway.Fetches())

	actions := f.audits.Actions()
	assert.Zero(t, countActions(actions, entity.AuditActionPaymentVerifyFailed))
	assert.Equal(t, 1, countActions(actions, entity.AuditActionPaymentConfirm))

	// the recovered order is kept, so a retried callback stays local
	recovered, err := f.orders.Find(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.NotNil(t, recovered)
	assert.Equal(t, appt.ID, recovered.AppointmentID)

	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(appt, order.OrderID, "pay_LATE"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.Fetches())
}

func TestVerifyPayment_ProviderOrderStillBound(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	paidFor := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)
	other := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: paidFor.ID})
	require.NoError(t, err)
	f.orders.Expire(order.OrderID)

	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(other, order.OrderID, "pay_ABC"))
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Equal(t, entity.PaymentStatusPending, f.stored(other.ID).PaymentStatus)
	assert.Equal(t, 1, countActions(f.audits.Actions(), entity.AuditActionPaymentVerifyFailed))
}

func TestVerifyPayment_ProviderOutageIsNotTampering(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	appt := f.seedAppointment(patient, doctor, entity.AppointmentStatusScheduled)

	order, err := f.payment.CreateOrder(as(patient), &dto.CreatePaymentOrderRequest{AppointmentID: appt.ID})
	require.NoError(t, err)
	f.orders.Expire(order.OrderID)
	f.gateway.fetchErr = errors.New("SERVER_ERROR")

	_, err = f.payment.VerifyPayment(as(patient), f.verifyRequest(appt, order.OrderID, "pay_ABC"))
	assert.ErrorIs(t, err, ErrPaymentProviderUnavailable)
	assert.Zero(t, countActions(f.audits.Actions(), entity.AuditActionPaymentVerifyFailed))
	assert.Equal(t, entity.PaymentStatusPending, f.stored(appt.ID).PaymentStatus)

	// a bad signature never reaches the provider
	req := f.verifyRequest(appt, order.OrderID, "pay_ABC")
	req.Signature = f.signer.Sign(order.OrderID, "pay_OTHER")
	_, err = f.payment.VerifyPayment(as(patient), req)
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)
	assert.Equal(t, 1, f.gateway.Fetches())
}
