package converter

import (
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              appointment.ID,
		PatientID:       appointment.PatientID,
		DoctorID:        appointment.DoctorID,
		AppointmentDate: appointment.AppointmentDate.Format(dateLayout),
		AppointmentTime: appointment.AppointmentTime,
		AppointmentType: string(appointment.AppointmentType),
		Status:          string(appointment.Status),
		Symptoms:        appointment.Symptoms,
		Diagnosis:       appointment.Diagnosis,
		Prescription:    PrescriptionToResponse(appointment.Prescription),
		ConsultationFee: appointment.ConsultationFee,
		PaymentStatus:   string(appointment.PaymentStatus),
		PaymentMethod:   string(appointment.PaymentMethod),
		PaymentID:       appointment.PaymentID,
		PatientNotes:    appointment.PatientNotes,
		DoctorNotes:     appointment.DoctorNotes,
		Patient:         PatientToResponse(appointment.Patient),
		Doctor:          DoctorToResponse(appointment.Doctor),
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

func PrescriptionToResponse(prescription *entity.Prescription) *dto.PrescriptionResponse {
	if prescription == nil {
		return nil
	}

	medications := make([]dto.MedicationRequest, len(prescription.Medications))
	for i, m := range prescription.Medications {
		medications[i] = dto.MedicationRequest{
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Duration:  m.Duration,
		}
	}
	return &dto.PrescriptionResponse{
		Medications: medications,
		Notes:       prescription.Notes,
	}
}

// PrescriptionFromRequest converts the request DTO into the stored prescription.
func PrescriptionFromRequest(req *dto.PrescriptionRequest) *entity.Prescription {
	if req == nil {
		return nil
	}

	medications := make([]entity.Medication, len(req.Medications))
	for i, m := range req.Medications {
		medications[i] = entity.Medication{
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Duration:  m.Duration,
		}
	}
	return &entity.Prescription{
		Medications: medications,
		Notes:       req.Notes,
	}
}
