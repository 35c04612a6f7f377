package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type Service struct {
	repo     repository.AppointmentRepository
	patients repository.PatientRepository
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		now:      time.Now,
	}
}

// DeriveStatus presents a lapsed scheduled appointment as completed without
// a stored state change. Pure and re-run on every read since "now" advances
// independently of writes.
func DeriveStatus(appointment *model.Appointment, now time.Time) model.AppointmentStatus {
	if appointment.Status == model.AppointmentStatusScheduled && appointment.ScheduledAt.Before(now) {
		return model.AppointmentStatusCompleted
	}
	return appointment.Status
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.Validation("reason is required", nil)
	}

	exists, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if !exists {
		return nil, apperrors.NotFound("patient", nil)
	}

	appointment := &model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   req.PatientID,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
		Notes:       req.Notes,
		Status:      model.AppointmentStatusScheduled,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Reschedule overwrites the timestamp and reason in place. The prior values
// are lost; there is no reschedule audit trail.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.Validation("reason is required", nil)
	}

	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	appointment.ScheduledAt = req.ScheduledAt
	appointment.Reason = req.Reason

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// ListHistory returns all of a patient's appointments, most recent first,
// each with its display status derived against the current clock.
func (s *Service) ListHistory(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, appointment := range appointments {
		appointment.Status = DeriveStatus(appointment, now)
	}
	return appointments, nil
}

// GetNext returns the earliest upcoming scheduled appointment.
func (s *Service) GetNext(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	return s.repo.GetNext(ctx, patientID, s.now())
}
