package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
)

type visionRepository struct {
	BaseRepository
}

func NewVisionRepository(base BaseRepository) repository.VisionRepository {
	return &visionRepository{base}
}

// UpsertResult inserts or overwrites the reading for (patient, eye). A
// re-test replaces the previous values in place.
func (r *visionRepository) UpsertResult(ctx context.Context, result *model.VisionTestResult) error {
	query := `
		INSERT INTO vision_test_results (
			id, patient_id, eye, sphere, cylinder, axis,
			pupillary_distance, notes, tested_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (patient_id, eye) DO UPDATE SET
			sphere = EXCLUDED.sphere,
			cylinder = EXCLUDED.cylinder,
			axis = EXCLUDED.axis,
			pupillary_distance = EXCLUDED.pupillary_distance,
			notes = EXCLUDED.notes,
			tested_by = EXCLUDED.tested_by,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	result.CreatedAt = now
	result.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.PatientID,
		result.Eye,
		result.Sphere,
		result.Cylinder,
		result.Axis,
		result.PupillaryDistance,
		result.Notes,
		result.TestedBy,
		result.CreatedAt,
		result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vision test result: %w", err)
	}
	return nil
}

func (r *visionRepository) ListEyes(ctx context.Context, patientID uuid.UUID) ([]model.EyeSide, error) {
	query := `SELECT eye FROM vision_test_results WHERE patient_id = $1`
	var eyes []model.EyeSide
	if err := r.db.SelectContext(ctx, &eyes, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list tested eyes: %w", err)
	}
	return eyes, nil
}

func (r *visionRepository) ListResults(ctx context.Context, patientID uuid.UUID) ([]*model.VisionTestResult, error) {
	query := `
		SELECT id, patient_id, eye, sphere, cylinder, axis,
			   pupillary_distance, notes, tested_by, created_at, updated_at
		FROM vision_test_results
		WHERE patient_id = $1
		ORDER BY eye ASC
	`
	var results []*model.VisionTestResult
	if err := r.db.SelectContext(ctx, &results, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list vision test results: %w", err)
	}
	return results, nil
}
