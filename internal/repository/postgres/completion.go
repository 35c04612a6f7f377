package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type completionRepository struct {
	BaseRepository
}

func NewCompletionRepository(base BaseRepository) repository.CompletionRepository {
	return &completionRepository{base}
}

func stationColumn(station model.Station) (string, error) {
	switch station {
	case model.StationRegistration:
		return "station1", nil
	case model.StationMedicalHistory:
		return "station2", nil
	case model.StationVisionTest:
		return "station3", nil
	}
	return "", fmt.Errorf("invalid station %d", station)
}

// upsertCompletionTx creates the completion row if it does not exist yet.
// Called inside every station transaction so the row appears on first touch.
func upsertCompletionTx(ctx context.Context, tx *sqlx.Tx, patientID uuid.UUID) error {
	query := `
		INSERT INTO completion_states (patient_id, station1, station2, station3, updated_at)
		VALUES ($1, 0, 0, 0, NOW())
		ON CONFLICT (patient_id) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, patientID)
	return err
}

// setStationTx advances a station flag. GREATEST keeps the flags monotonic:
// an in-progress mark never downgrades a completed station, and re-running
// the complete write is a no-op.
func setStationTx(ctx context.Context, tx *sqlx.Tx, patientID uuid.UUID, station model.Station, status model.StationStatus) error {
	column, err := stationColumn(station)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE completion_states
		SET %s = GREATEST(%s, $1), updated_at = NOW()
		WHERE patient_id = $2
	`, column, column)
	_, err = tx.ExecContext(ctx, query, status, patientID)
	return err
}

func (r *completionRepository) Get(ctx context.Context, patientID uuid.UUID) (*model.CompletionState, error) {
	query := `
		SELECT patient_id, station1, station2, station3, updated_at
		FROM completion_states
		WHERE patient_id = $1
	`
	var state model.CompletionState
	err := r.db.GetContext(ctx, &state, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("completion state", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completion state: %w", err)
	}
	return &state, nil
}

func (r *completionRepository) SetStation(ctx context.Context, patientID uuid.UUID, station model.Station, status model.StationStatus) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertCompletionTx(ctx, tx, patientID); err != nil {
			return err
		}
		return setStationTx(ctx, tx, patientID, station, status)
	})
	if err != nil {
		return fmt.Errorf("failed to set station flag: %w", err)
	}
	return nil
}
