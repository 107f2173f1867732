package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition      = errors.New("invalid appointment status transition")
	ErrTransitionNotPermitted = errors.New("actor may not trigger this transition")
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether no transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCash     PaymentMethod = "cash"
)

type AppointmentType string

const (
	AppointmentTypeInPerson AppointmentType = "in-person"
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypePhone    AppointmentType = "phone"
)

// Trigger names the action that asks for a transition.
type Trigger string

const (
	TriggerConfirm  Trigger = "confirm"
	TriggerCancel   Trigger = "cancel"
	TriggerComplete Trigger = "complete"
	TriggerPayment  Trigger = "payment"
)

// Actor is who fires a trigger: a principal role or the payment protocol.
type Actor string

const (
	ActorPatient         Actor = Actor(RolePatient)
	ActorDoctor          Actor = Actor(RoleDoctor)
	ActorAdmin           Actor = Actor(RoleAdmin)
	ActorPaymentProtocol Actor = "payment"
)

type transitionKey struct {
	from    AppointmentStatus
	trigger Trigger
}

type transitionRule struct {
	to     AppointmentStatus
	actors []Actor
}

// transitions is the complete lifecycle graph. Anything absent is rejected.
var transitions = map[transitionKey]transitionRule{
	{AppointmentStatusScheduled, TriggerConfirm}:  {AppointmentStatusConfirmed, []Actor{ActorDoctor}},
	{AppointmentStatusScheduled, TriggerPayment}:  {AppointmentStatusConfirmed, []Actor{ActorPaymentProtocol}},
	{AppointmentStatusScheduled, TriggerCancel}:   {AppointmentStatusCancelled, []Actor{ActorPatient}},
	{AppointmentStatusConfirmed, TriggerComplete}: {AppointmentStatusCompleted, []Actor{ActorDoctor}},
	{AppointmentStatusConfirmed, TriggerCancel}:   {AppointmentStatusCancelled, []Actor{ActorPatient, ActorDoctor}},
}

// NextStatus resolves the status reached from current when actor fires trigger.
// A trigger with no edge out of current yields ErrInvalidTransition; an existing
// edge the actor may not use yields ErrTransitionNotPermitted.
func NextStatus(current AppointmentStatus, trigger Trigger, actor Actor) (AppointmentStatus, error) {
	rule, ok := transitions[transitionKey{current, trigger}]
	if !ok {
		return current, ErrInvalidTransition
	}
	for _, a := range rule.actors {
		if a == actor {
			return rule.to, nil
		}
	}
	return current, ErrTransitionNotPermitted
}

// Appointment represents one scheduled consultation
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	AppointmentDate time.Time         `gorm:"type:date;not null" json:"appointment_date"`
	AppointmentTime string            `gorm:"type:varchar(20);not null" json:"appointment_time"`
	AppointmentType AppointmentType   `gorm:"type:varchar(20);not null;default:'in-person'" json:"appointment_type"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	Symptoms        string            `gorm:"type:text" json:"symptoms,omitempty"`
	Diagnosis       string            `gorm:"type:text" json:"diagnosis,omitempty"`
	Prescription    *Prescription     `gorm:"type:jsonb" json:"prescription,omitempty"`
	ConsultationFee decimal.Decimal   `gorm:"type:decimal(10,2);not null;<-:create" json:"consultation_fee"`
	PaymentStatus   PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod   PaymentMethod     `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaymentID       string            `gorm:"type:varchar(100)" json:"payment_id,omitempty"`
	PatientNotes    string            `gorm:"type:text" json:"patient_notes,omitempty"`
	DoctorNotes     string            `gorm:"type:text" json:"doctor_notes,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *Doctor  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// OwnerIDs lists the principals that own the appointment.
func (a *Appointment) OwnerIDs() []uuid.UUID {
	return []uuid.UUID{a.PatientID, a.DoctorID}
}

// IsPaid checks if payment has been confirmed
func (a *Appointment) IsPaid() bool {
	return a.PaymentStatus == PaymentStatusPaid
}

// Medication is one prescribed drug line.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Prescription is stored as JSONB on the appointment.
type Prescription struct {
	Medications []Medication `json:"medications,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

func (p Prescription) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Prescription) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal prescription:", value))
	}
	return json.Unmarshal(bytes, p)
}

// AppointmentFilter is a domain-level filter for listing appointments.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
	Limit     int
	Offset    int
}
