package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository handles patient identity rows. Registration is a
	// single transaction covering the patient insert, the lazy completion
	// upsert and the station1 flag.
	PatientRepository interface {
		CreateWithCompletion(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByAadhaar(ctx context.Context, aadhaarNo string) (*model.Patient, error)
		Exists(ctx context.Context, id uuid.UUID) (bool, error)
	}

	// CompletionRepository tracks the tri-state station flags.
	CompletionRepository interface {
		Get(ctx context.Context, patientID uuid.UUID) (*model.CompletionState, error)
		SetStation(ctx context.Context, patientID uuid.UUID, station model.Station, status model.StationStatus) error
	}

	// HistoryRepository persists the Station 2 bundle. CreateBundle writes
	// all five sub-records, the completion upsert and the station2 flag in
	// one transaction; a duplicate bundle surfaces as a Duplicate error via
	// the anchor table's unique patient index.
	HistoryRepository interface {
		CreateBundle(ctx context.Context, patientID uuid.UUID, bundle *model.MedicalHistoryBundle) error
		HasBundle(ctx context.Context, patientID uuid.UUID) (bool, error)
	}

	VisionRepository interface {
		UpsertResult(ctx context.Context, result *model.VisionTestResult) error
		ListEyes(ctx context.Context, patientID uuid.UUID) ([]model.EyeSide, error)
		ListResults(ctx context.Context, patientID uuid.UUID) ([]*model.VisionTestResult, error)
	}

	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		ListPending(ctx context.Context) ([]*model.Account, error)
		SetGrant(ctx context.Context, accountID uuid.UUID, role model.Role, status model.GrantStatus) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		GetNext(ctx context.Context, patientID uuid.UUID, after time.Time) (*model.Appointment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
