package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type historyRepository struct {
	BaseRepository
}

func NewHistoryRepository(base BaseRepository) repository.HistoryRepository {
	return &historyRepository{base}
}

// CreateBundle writes the five Station 2 sub-records, the lazy completion
// upsert and the station2 flag in one transaction. The ophthalmology insert
// goes first: its unique patient_id index is the duplicate-submission guard,
// so a second bundle for the same patient aborts before anything else lands.
func (r *historyRepository) CreateBundle(ctx context.Context, patientID uuid.UUID, bundle *model.MedicalHistoryBundle) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()

		ophQuery := `
			INSERT INTO ophthalmology_histories (
				id, patient_id,
				vision_loss, vision_loss_eye, vision_loss_onset, vision_loss_duration,
				redness, redness_eye, redness_onset, redness_duration,
				watering, watering_eye, watering_onset, watering_duration,
				itching, itching_eye, itching_onset, itching_duration,
				pain, pain_eye, pain_onset, pain_duration,
				created_at
			) VALUES (
				$1, $2,
				$3, $4, $5, $6,
				$7, $8, $9, $10,
				$11, $12, $13, $14,
				$15, $16, $17, $18,
				$19, $20, $21, $22,
				$23
			)
		`
		oph := bundle.Ophthalmology
		if _, err := tx.ExecContext(ctx, ophQuery,
			uuid.New(), patientID,
			oph.VisionLoss.Present, oph.VisionLoss.Eye, oph.VisionLoss.Onset, oph.VisionLoss.Duration,
			oph.Redness.Present, oph.Redness.Eye, oph.Redness.Onset, oph.Redness.Duration,
			oph.Watering.Present, oph.Watering.Eye, oph.Watering.Onset, oph.Watering.Duration,
			oph.Itching.Present, oph.Itching.Eye, oph.Itching.Onset, oph.Itching.Duration,
			oph.Pain.Present, oph.Pain.Eye, oph.Pain.Onset, oph.Pain.Duration,
			now,
		); err != nil {
			return err
		}

		sysQuery := `
			INSERT INTO systemic_histories (id, patient_id, hypertension, diabetes, heart_disease, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		sys := bundle.Systemic
		if _, err := tx.ExecContext(ctx, sysQuery,
			uuid.New(), patientID, sys.Hypertension, sys.Diabetes, sys.HeartDisease, now,
		); err != nil {
			return err
		}

		allergyQuery := `
			INSERT INTO allergy_histories (id, patient_id, to_drops, to_tablets, seasonal, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		allergy := bundle.Allergy
		if _, err := tx.ExecContext(ctx, allergyQuery,
			uuid.New(), patientID, allergy.ToDrops, allergy.ToTablets, allergy.Seasonal, now,
		); err != nil {
			return err
		}

		lensQuery := `
			INSERT INTO contact_lens_histories (id, patient_id, uses_lenses, years, frequency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		lens := bundle.ContactLens
		if _, err := tx.ExecContext(ctx, lensQuery,
			uuid.New(), patientID, lens.UsesLenses, lens.Years, lens.Frequency, now,
		); err != nil {
			return err
		}

		surgicalQuery := `
			INSERT INTO surgical_histories (id, patient_id, cataract, retinal_laser, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		surgical := bundle.Surgical
		if _, err := tx.ExecContext(ctx, surgicalQuery,
			uuid.New(), patientID, surgical.Cataract, surgical.RetinalLaser, now,
		); err != nil {
			return err
		}

		if err := upsertCompletionTx(ctx, tx, patientID); err != nil {
			return err
		}
		return setStationTx(ctx, tx, patientID, model.StationMedicalHistory, model.StationComplete)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate("medical history already submitted for patient", err)
		}
		return fmt.Errorf("failed to create medical history bundle: %w", err)
	}
	return nil
}

func (r *historyRepository) HasBundle(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ophthalmology_histories WHERE patient_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, patientID); err != nil {
		return false, fmt.Errorf("failed to check medical history: %w", err)
	}
	return exists, nil
}
