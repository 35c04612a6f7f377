package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment stores its status as written; the status shown to clients is
// derived at read time so a lapsed appointment presents as completed without
// a background job flipping rows.
type Appointment struct {
	Base
	PatientID   uuid.UUID         `db:"patient_id" json:"patient_id"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Reason      string            `db:"reason" json:"reason"`
	Notes       string            `db:"notes" json:"notes,omitempty"`
	Status      AppointmentStatus `db:"status" json:"status"`
}

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
	Notes       string    `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
}
