package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

// CreateWithCompletion inserts the patient, lazily creates the completion
// row and marks station1 complete as one atomic unit. A half-registered
// patient without a completion row must never be observable.
func (r *patientRepository) CreateWithCompletion(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, first_name, last_name, date_of_birth, age, gender,
			address, village, phone, aadhaar_no,
			registered_at, registered_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	if patient.RegisteredAt.IsZero() {
		patient.RegisteredAt = now
	}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			patient.ID,
			patient.FirstName,
			patient.LastName,
			patient.DateOfBirth,
			patient.Age,
			patient.Gender,
			patient.Address,
			patient.Village,
			patient.Phone,
			patient.AadhaarNo,
			patient.RegisteredAt,
			patient.RegisteredBy,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if err := upsertCompletionTx(ctx, tx, patient.ID); err != nil {
			return err
		}
		return setStationTx(ctx, tx, patient.ID, model.StationRegistration, model.StationComplete)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate("aadhaar number already registered", err)
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByAadhaar(ctx context.Context, aadhaarNo string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE aadhaar_no = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, aadhaarNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by aadhaar: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check patient existence: %w", err)
	}
	return exists, nil
}
