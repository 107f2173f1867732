package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-medical-appointment/config"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/repository/memory"
	"go-medical-appointment/internal/service"
	"go-medical-appointment/pkg/jwt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const paymentSecret = "test-key-secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	orderID  string
	err      error
	block    bool
	orders   map[string]entity.PaymentOrder
	fetchErr error
	fetches  int
}

type gatewayCall struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{Amount: amount, Currency: currency, Receipt: receipt, Notes: notes})
	block, orderID, err := g.block, g.orderID, g.err
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	appointmentID, _ := uuid.Parse(notes["appointmentId"])
	patientID, _ := uuid.Parse(notes["patientId"])
	if g.orders == nil {
		g.orders = make(map[string]entity.PaymentOrder)
	}
	g.orders[orderID] = entity.PaymentOrder{
		OrderID:       orderID,
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Amount:        amount,
		Currency:      currency,
	}
	return orderID, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*entity.PaymentOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	if o, ok := g.orders[orderID]; ok {
		return &o, nil
	}
	return nil, nil
}

func (g *fakeGateway) Fetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func (g *fakeGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

type fixture struct {
	t            *testing.T
	log          *logrus.Logger
	clock        *testClock
	patients     *memory.AccountStore
	doctors      *memory.DoctorStore
	admins       *memory.AccountStore
	appointments *memory.AppointmentStore
	audits       *memory.AuditLogStore
	sessions     *memory.SessionStore
	orders       *memory.PaymentOrderStore
	gateway      *fakeGateway
	jwtService   *jwt.JWTService
	resolver     service.PrincipalResolver
	throttle     service.LoginThrottle
	signer       *service.PaymentSigner

	auth        AuthUsecase
	appointment AppointmentUsecase
	payment     PaymentUsecase
	doctor      DoctorUsecase
	auditLog    AuditLogUsecase
	admin       AdminUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()

	f := &fixture{
		t:        t,
		log:      log,
		clock:    &testClock{now: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
		patients: memory.NewPatientStore(),
		doctors:  memory.NewDoctorStore(),
		admins:   memory.NewAdminStore(),
		audits:   memory.NewAuditLogStore(),
		sessions: memory.NewSessionStore(),
		orders:   memory.NewPaymentOrderStore(),
		gateway:  &fakeGateway{orderID: "order_TEST123"},
		jwtService: jwt.NewJWTService(config.JWTConfig{
			Secret:        "jwt-test-secret",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: time.Hour,
		}),
		signer: service.NewPaymentSigner(paymentSecret),
	}
	f.appointments = memory.NewAppointmentStore(f.patients)
	f.resolver = service.NewPrincipalResolver(log, f.patients, f.doctors, f.admins)
	f.throttle = service.NewLoginThrottle(config.SecurityConfig{MaxLoginAttempts: 5, LockDuration: 2 * time.Hour}, f.clock.Now, log, f.resolver)
	audit := service.NewAuditService(log, f.audits)

	f.auth = NewAuthUsecase(log, f.patients, f.doctors, f.resolver, f.throttle, f.sessions, f.jwtService, audit)
	f.appointment = NewAppointmentUsecase(log, f.appointments, f.doctors, audit, f.clock.Now)
	f.payment = NewPaymentUsecase(log, config.PaymentConfig{
		KeyID:        "rzp_test_key",
		KeySecret:    paymentSecret,
		Currency:     "INR",
		OrderTimeout: 50 * time.Millisecond,
		OrderTTL:     time.Hour,
	}, f.appointments, f.orders, f.gateway, f.signer, audit)
	f.doctor = NewDoctorUsecase(log, f.doctors, audit)
	f.auditLog = NewAuditLogUsecase(log, f.audits)
	f.admin = NewAdminUsecase(log, f.patients, f.doctors, f.sessions, audit)
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func (f *fixture) seedPatient(email, password string) *entity.Patient {
	p := &entity.Patient{Account: entity.Account{ID: uuid.New(), Email: email, Name: "Patient " + email, PasswordHash: hash(f.t, password)}}
	f.patients.Seed(p)
	return p
}

func (f *fixture) seedDoctor(email string, approved bool, fee int64) *entity.Doctor {
	d := &entity.Doctor{
		Account:         entity.Account{ID: uuid.New(), Email: email, Name: "Dr " + email, PasswordHash: hash(f.t, "doctor-pass")},
		Specialization:  "Cardiology",
		LicenseNumber:   "LIC-" + email,
		ConsultationFee: decimal.NewFromInt(fee),
	}
	d.SetApproval(approved)
	f.doctors.Seed(d)
	return d
}

func (f *fixture) seedAdmin(email string, tier entity.AdminTier, perms ...entity.Permission) *entity.Admin {
	a := &entity.Admin{
		Account:     entity.Account{ID: uuid.New(), Email: email, Name: "Admin " + email, PasswordHash: hash(f.t, "admin-pass")},
		Tier:        tier,
		Permissions: perms,
	}
	f.admins.Seed(a)
	return a
}

func (f *fixture) seedAppointment(patient *entity.Patient, doctor *entity.Doctor, status entity.AppointmentStatus) *entity.Appointment {
	a := &entity.Appointment{
		ID:              uuid.New(),
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		AppointmentDate: f.clock.Now().AddDate(0, 0, 3),
		AppointmentTime: "10:00 AM",
		AppointmentType: entity.AppointmentTypeInPerson,
		Status:          status,
		ConsultationFee: doctor.ConsultationFee,
		PaymentStatus:   entity.PaymentStatusPending,
	}
	f.appointments.Seed(a)
	return a
}

func (f *fixture) stored(id uuid.UUID) *entity.Appointment {
	f.t.Helper()
	a, err := f.appointments.FindByID(context.Background(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a)
	return a
}

// as returns a request context authenticated as p.
func as(p entity.Principal) context.Context {
	return middleware.WithPrincipal(context.Background(), p, "token-"+p.Identity().ID.String())
}

func countActions(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

func assertForbidden(t *testing.T, err error, reason policy.Reason) {
	t.Helper()
	require.Error(t, err)
	got, ok := policy.ReasonOf(err)
	require.True(t, ok, "expected forbidden error, got %v", err)
	assert.Equal(t, reason, got)
}
