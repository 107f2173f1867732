package usecase

import (
	"context"
	"errors"
	"time"

	"go-medical-appointment/internal/converter"
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrDoctorNotFound         = errors.New("doctor not found")
	ErrDoctorNotApproved      = errors.New("doctor is not approved for appointments")
	ErrInvalidTransition      = errors.New("appointment cannot move to the requested status from its current status")
	ErrAppointmentDateInPast  = errors.New("appointment date cannot be in the past")
	ErrUnsupportedStatusValue = errors.New("unsupported appointment status")
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointments(ctx context.Context, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error)
	GetDoctorPatients(ctx context.Context) ([]dto.PatientResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	auditService    service.AuditService
	now             func() time.Time
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	auditService service.AuditService,
	clock func() time.Time,
) AppointmentUsecase {
	if clock == nil {
		clock = time.Now
	}
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		auditService:    auditService,
		now:             clock,
	}
}

// CreateAppointment books the calling patient with an approved doctor. The
// doctor's current fee is copied onto the appointment and never updated.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	patient, err := authorize(ctx, nil, policy.RequireRole(entity.RolePatient))
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	today := u.now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, ErrAppointmentDateInPast
	}

	doctor, err := u.doctorRepo.FindDoctorByID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !doctor.IsApproved {
		return nil, ErrDoctorNotApproved
	}

	appointmentType := entity.AppointmentType(req.AppointmentType)
	if appointmentType == "" {
		appointmentType = entity.AppointmentTypeInPerson
	}

	appointment := &entity.Appointment{
		PatientID:       patient.Identity().ID,
		DoctorID:        doctor.ID,
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		AppointmentType: appointmentType,
		Status:          entity.AppointmentStatusScheduled,
		Symptoms:        req.Symptoms,
		PatientNotes:    req.PatientNotes,
		ConsultationFee: doctor.ConsultationFee,
		PaymentStatus:   entity.PaymentStatusPending,
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.auditService.Log(ctx, patient, entity.AuditActionAppointmentCreate, entity.JSON{
		"appointment_id":   appointment.ID,
		"doctor_id":        doctor.ID,
		"consultation_fee": appointment.ConsultationFee.String(),
	})
	u.log.Infof("Appointment %s booked by patient %s with doctor %s", appointment.ID, appointment.PatientID, doctor.ID)

	return converter.AppointmentToResponse(appointment), nil
}

// GetAppointments lists the caller's appointments. Admins need the
// view_appointments permission and see every appointment.
func (u *appointmentUsecase) GetAppointments(ctx context.Context, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error) {
	principal, err := authorize(ctx, nil, policy.RequireApproved())
	if err != nil {
		return nil, err
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	filter := entity.AppointmentFilter{
		Status: entity.AppointmentStatus(req.Status),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	id := principal.Identity().ID
	switch principal.Role() {
	case entity.RolePatient:
		filter.PatientID = &id
	case entity.RoleDoctor:
		filter.DoctorID = &id
	case entity.RoleAdmin:
		if err := policy.RequirePermission(entity.PermissionViewAppointments)(principal, nil); err != nil {
			return nil, err
		}
	}

	appointments, total, err := u.appointmentRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments for %s: %+v", id, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
		Page:         page,
		Limit:        limit,
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	_, appointment, err := u.loadOwned(ctx, id, policy.RequireApproved())
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// UpdateStatus is the doctor's side of the lifecycle: confirm, complete with
// diagnosis and prescription, or cancel.
func (u *appointmentUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	principal, appointment, err := u.loadOwned(ctx, id,
		policy.RequireRole(entity.RoleDoctor),
		policy.RequireApproved(),
	)
	if err != nil {
		return nil, err
	}

	var trigger entity.Trigger
	update := repository.AppointmentUpdate{}
	switch entity.AppointmentStatus(req.Status) {
	case entity.AppointmentStatusConfirmed:
		trigger = entity.TriggerConfirm
	case entity.AppointmentStatusCompleted:
		trigger = entity.TriggerComplete
		if req.Diagnosis != "" {
			update.Diagnosis = &req.Diagnosis
		}
		update.Prescription = converter.PrescriptionFromRequest(req.Prescription)
	case entity.AppointmentStatusCancelled:
		trigger = entity.TriggerCancel
	default:
		return nil, ErrUnsupportedStatusValue
	}
	if req.DoctorNotes != "" {
		update.DoctorNotes = &req.DoctorNotes
	}

	return u.transition(ctx, principal, appointment, trigger, update)
}

// CancelAppointment lets either owner cancel. The reason is kept in the
// caller's notes field.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, id uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	principal, appointment, err := u.loadOwned(ctx, id,
		policy.RequireRole(entity.RolePatient, entity.RoleDoctor),
		policy.RequireApproved(),
	)
	if err != nil {
		return nil, err
	}

	update := repository.AppointmentUpdate{}
	if req != nil && req.Reason != "" {
		if principal.Role() == entity.RoleDoctor {
			update.DoctorNotes = &req.Reason
		} else {
			update.PatientNotes = &req.Reason
		}
	}

	return u.transition(ctx, principal, appointment, entity.TriggerCancel, update)
}

func (u *appointmentUsecase) GetDoctorPatients(ctx context.Context) ([]dto.PatientResponse, error) {
	doctor, err := authorize(ctx, nil, policy.RequireRole(entity.RoleDoctor), policy.RequireApproved())
	if err != nil {
		return nil, err
	}

	patients, err := u.appointmentRepo.FindPatientsByDoctor(ctx, doctor.Identity().ID)
	if err != nil {
		u.log.Warnf("Failed to find patients for doctor %s: %+v", doctor.Identity().ID, err)
		return nil, err
	}
	return converter.PatientsToResponses(patients), nil
}

// loadOwned runs the principal checks, loads the appointment and applies the
// ownership check. A missing appointment looks the same as someone else's to
// everyone except admins.
func (u *appointmentUsecase) loadOwned(ctx context.Context, id uuid.UUID, checks ...policy.Check) (entity.Principal, *entity.Appointment, error) {
	principal, err := authorize(ctx, nil, checks...)
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
		if principal.Role() == entity.RoleAdmin {
			return nil, nil, ErrAppointmentNotFound
		}
		return nil, nil, policy.Forbidden(policy.ReasonNotOwner)
	}

	if err := policy.RequireOwnership()(principal, appointment); err != nil {
		return nil, nil, err
	}
	return principal, appointment, nil
}

// transition applies one lifecycle edge with a compare-and-swap on the status
// that was read. Losing a race to another writer reports ErrInvalidTransition.
func (u *appointmentUsecase) transition(ctx context.Context, principal entity.Principal, appointment *entity.Appointment, trigger entity.Trigger, update repository.AppointmentUpdate) (*dto.AppointmentResponse, error) {
	from := appointment.Status
	to, err := entity.NextStatus(from, trigger, entity.Actor(principal.Role()))
	if err != nil {
		if errors.Is(err, entity.ErrTransitionNotPermitted) {
			return nil, policy.Forbidden(policy.ReasonRoleMismatch)
		}
		return nil, ErrInvalidTransition
	}

	swapped, err := u.appointmentRepo.CompareAndSwapStatus(ctx, appointment.ID, from, to, update)
	if err != nil {
		u.log.Warnf("Failed to update appointment %s status: %+v", appointment.ID, err)
		return nil, err
	}
	if !swapped {
		u.log.Warnf("Appointment %s changed concurrently, %s -> %s rejected", appointment.ID, from, to)
		return nil, ErrInvalidTransition
	}

	updated, err := u.appointmentRepo.FindByID(ctx, appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrAppointmentNotFound
	}

	u.auditService.Log(ctx, principal, entity.AuditActionAppointmentTransition, entity.JSON{
		"appointment_id": appointment.ID,
		"trigger":        trigger,
		"from":           from,
		"to":             to,
	})
	u.log.Infof("Appointment %s moved %s -> %s by %s %s", appointment.ID, from, to, principal.Role(), principal.Identity().ID)

	return converter.AppointmentToResponse(updated), nil
}

// authorize reads the caller from ctx and applies checks against resource.
func authorize(ctx context.Context, resource policy.Resource, checks ...policy.Check) (entity.Principal, error) {
	principal, ok := middleware.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	if err := policy.Authorize(principal, resource, checks...); err != nil {
		return nil, err
	}
	return principal, nil
}
