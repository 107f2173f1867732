package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
)

type AppointmentStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment
	patients     domainRepo.AccountRepository
}

var _ domainRepo.AppointmentRepository = (*AppointmentStore)(nil)

// NewAppointmentStore takes the patient store used by FindPatientsByDoctor; it may be nil.
func NewAppointmentStore(patients domainRepo.AccountRepository) *AppointmentStore {
	return &AppointmentStore{
		appointments: make(map[uuid.UUID]*entity.Appointment),
		patients:     patients,
	}
}

func (s *AppointmentStore) Create(ctx context.Context, appointment *entity.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	s.appointments[appointment.ID] = cloneAppointment(appointment)
	return nil
}

func (s *AppointmentStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.appointments[id]; ok {
		return cloneAppointment(a), nil
	}
	return nil, nil
}

func (s *AppointmentStore) FindAll(ctx context.Context, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []entity.Appointment
	for _, a := range s.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		matched = append(matched, *cloneAppointment(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		start := min(filter.Offset, len(matched))
		end := min(start+filter.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s *AppointmentStore) FindPaidByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paid []entity.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID && a.PaymentStatus == entity.PaymentStatusPaid && a.PaymentMethod == entity.PaymentMethodRazorpay {
			paid = append(paid, *cloneAppointment(a))
		}
	}
	return paid, nil
}

func (s *AppointmentStore) FindPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Patient, error) {
	s.mu.Lock()
	ids := make(map[uuid.UUID]struct{})
	for _, a := range s.appointments {
		if a.DoctorID == doctorID {
			ids[a.PatientID] = struct{}{}
		}
	}
	s.mu.Unlock()

	var patients []entity.Patient
	if s.patients == nil {
		return patients, nil
	}
	for id := range ids {
		p, err := s.patients.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if patient, ok := p.(*entity.Patient); ok {
			patients = append(patients, *patient)
		}
	}
	return patients, nil
}

func (s *AppointmentStore) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, update domainRepo.AppointmentUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	if update.Diagnosis != nil {
		a.Diagnosis = *update.Diagnosis
	}
	if update.Prescription != nil {
		p := *update.Prescription
		a.Prescription = &p
	}
	if update.PatientNotes != nil {
		a.PatientNotes = *update.PatientNotes
	}
	if update.DoctorNotes != nil {
		a.DoctorNotes = *update.DoctorNotes
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

func (s *AppointmentStore) MarkPaid(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, method entity.PaymentMethod, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.Status != from || a.PaymentStatus == entity.PaymentStatusPaid {
		return false, nil
	}
	a.Status = to
	a.PaymentStatus = entity.PaymentStatusPaid
	a.PaymentMethod = method
	a.PaymentID = transactionID
	a.UpdatedAt = time.Now()
	return true, nil
}

// Seed stores appointment as is.
func (s *AppointmentStore) Seed(appointment *entity.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	s.appointments[appointment.ID] = cloneAppointment(appointment)
}

func cloneAppointment(a *entity.Appointment) *entity.Appointment {
	c := *a
	if a.Prescription != nil {
		p := *a.Prescription
		p.Medications = append([]entity.Medication(nil), a.Prescription.Medications...)
		c.Prescription = &p
	}
	c.Patient = nil
	c.Doctor = nil
	return &c
}
