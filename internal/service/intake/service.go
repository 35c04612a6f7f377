package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
	"github.com/netraseva/intake-api/pkg/logger"
	"github.com/netraseva/intake-api/pkg/metrics"
)

const (
	// Aadhaar to patient-id mappings are immutable once registered, so a
	// long TTL is safe. Completion flags are never cached.
	aadhaarCacheTTL     = 4 * time.Hour
	aadhaarCacheCleanup = 30 * time.Minute
)

// Service drives a patient through the three-station intake sequence and
// keeps the completion tracker consistent with what has actually been
// durably written.
type Service struct {
	patients   repository.PatientRepository
	completion repository.CompletionRepository
	histories  repository.HistoryRepository
	vision     repository.VisionRepository
	outbox     repository.OutboxRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
	idCache    *gocache.Cache
}

func NewService(
	patients repository.PatientRepository,
	completion repository.CompletionRepository,
	histories repository.HistoryRepository,
	vision repository.VisionRepository,
	outbox repository.OutboxRepository,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		patients:   patients,
		completion: completion,
		histories:  histories,
		vision:     vision,
		outbox:     outbox,
		logger:     log,
		metrics:    m,
		idCache:    gocache.New(aadhaarCacheTTL, aadhaarCacheCleanup),
	}
}

// SubmitStation1 registers a new patient. The patient row, the completion
// row and the station1 flag commit as one transaction; on any failure
// nothing is observable.
func (s *Service) SubmitStation1(ctx context.Context, req *model.RegisterPatientRequest) (*model.Patient, error) {
	if err := validateDemographics(req); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		Base:         model.Base{ID: uuid.New()},
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  req.DateOfBirth,
		Age:          req.Age,
		Gender:       req.Gender,
		Address:      req.Address,
		Village:      req.Village,
		Phone:        req.Phone,
		AadhaarNo:    req.AadhaarNo,
		RegisteredAt: time.Now(),
		RegisteredBy: req.RegisteredBy,
	}

	if err := s.patients.CreateWithCompletion(ctx, patient); err != nil {
		s.countSubmission(model.StationRegistration, "error")
		return nil, err
	}

	s.idCache.Set(patient.AadhaarNo, patient.ID, gocache.DefaultExpiration)
	s.countSubmission(model.StationRegistration, "success")
	s.countStation(model.StationRegistration)
	if s.metrics != nil {
		s.metrics.PatientsRegistered.Inc()
	}

	s.emitEvent(ctx, model.EventPatientRegistered, map[string]interface{}{
		"patient_id": patient.ID,
		"village":    patient.Village,
	})
	return patient, nil
}

// SubmitStation2 records the medical history bundle. The patient existence
// check runs first so a missing patient yields a precise error; duplicate
// submissions abort on the anchor table's unique index with zero writes.
func (s *Service) SubmitStation2(ctx context.Context, patientID uuid.UUID, bundle *model.MedicalHistoryBundle) error {
	if bundle == nil {
		return apperrors.Validation("medical history bundle is required", nil)
	}

	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if !exists {
		return apperrors.NotFound("patient", nil)
	}

	if err := s.histories.CreateBundle(ctx, patientID, bundle); err != nil {
		if apperrors.IsDuplicate(err) {
			s.countSubmission(model.StationMedicalHistory, "duplicate")
		} else {
			s.countSubmission(model.StationMedicalHistory, "error")
		}
		return err
	}

	s.countSubmission(model.StationMedicalHistory, "success")
	s.countStation(model.StationMedicalHistory)
	s.emitEvent(ctx, model.EventStationCompleted, map[string]interface{}{
		"patient_id": patientID,
		"station":    int(model.StationMedicalHistory),
	})
	return nil
}

// SubmitStation3 stores one eye's refraction reading, then separately
// re-reads the recorded eyes and marks station3 complete only when both are
// present. The two phases are deliberate: the flag write tolerates being
// re-run by a racing second-eye submission because it is idempotent.
func (s *Service) SubmitStation3(ctx context.Context, req *model.SubmitVisionTestRequest) error {
	if !req.Eye.Valid() {
		return apperrors.Validation("eye must be left or right", nil)
	}
	if strings.TrimSpace(req.TestedBy) == "" {
		return apperrors.Validation("staff identifier is required", nil)
	}

	exists, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if !exists {
		return apperrors.NotFound("patient", nil)
	}

	result := &model.VisionTestResult{
		ID:                uuid.New(),
		PatientID:         req.PatientID,
		Eye:               req.Eye,
		Sphere:            req.Sphere,
		Cylinder:          req.Cylinder,
		Axis:              req.Axis,
		PupillaryDistance: req.PupillaryDistance,
		Notes:             req.Notes,
		TestedBy:          req.TestedBy,
	}

	if err := s.vision.UpsertResult(ctx, result); err != nil {
		s.countSubmission(model.StationVisionTest, "error")
		return apperrors.Persistence(err)
	}

	// Follow-up read after the commit, not a pre-count in the same
	// transaction. A momentarily stale view is fine.
	eyes, err := s.vision.ListEyes(ctx, req.PatientID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if bothEyesRecorded(eyes) {
		if err := s.completion.SetStation(ctx, req.PatientID, model.StationVisionTest, model.StationComplete); err != nil {
			return apperrors.Persistence(err)
		}
		s.countStation(model.StationVisionTest)
		s.emitEvent(ctx, model.EventStationCompleted, map[string]interface{}{
			"patient_id": req.PatientID,
			"station":    int(model.StationVisionTest),
		})
	}

	s.countSubmission(model.StationVisionTest, "success")
	return nil
}

// MarkStationInProgress sets the 0.5 flag for UI signalling. It never moves
// a completed station backward.
func (s *Service) MarkStationInProgress(ctx context.Context, patientID uuid.UUID, station model.Station) error {
	if !station.Valid() {
		return apperrors.Validation(fmt.Sprintf("invalid station %d", station), nil)
	}

	exists, err := s.patients.Exists(ctx, patientID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if !exists {
		return apperrors.NotFound("patient", nil)
	}

	return s.completion.SetStation(ctx, patientID, station, model.StationInProgress)
}

// GetCompletionState resolves the external Aadhaar key to the internal
// patient id and returns the three flags.
func (s *Service) GetCompletionState(ctx context.Context, aadhaarNo string) (*model.CompletionState, error) {
	patientID, err := s.resolveAadhaar(ctx, aadhaarNo)
	if err != nil {
		return nil, err
	}
	return s.completion.Get(ctx, patientID)
}

// GetCompletionByPatient serves the vision-completion poll after a Station 3
// submission.
func (s *Service) GetCompletionByPatient(ctx context.Context, patientID uuid.UUID) (*model.CompletionState, error) {
	return s.completion.Get(ctx, patientID)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, id)
}

func (s *Service) GetVisionResults(ctx context.Context, patientID uuid.UUID) ([]*model.VisionTestResult, error) {
	return s.vision.ListResults(ctx, patientID)
}

func (s *Service) resolveAadhaar(ctx context.Context, aadhaarNo string) (uuid.UUID, error) {
	if cached, ok := s.idCache.Get(aadhaarNo); ok {
		if id, ok := cached.(uuid.UUID); ok {
			return id, nil
		}
	}

	patient, err := s.patients.GetByAadhaar(ctx, aadhaarNo)
	if err != nil {
		return uuid.Nil, err
	}
	s.idCache.Set(aadhaarNo, patient.ID, gocache.DefaultExpiration)
	return patient.ID, nil
}

func bothEyesRecorded(eyes []model.EyeSide) bool {
	var left, right bool
	for _, eye := range eyes {
		switch eye {
		case model.EyeLeft:
			left = true
		case model.EyeRight:
			right = true
		}
	}
	return left && right
}

func validateDemographics(req *model.RegisterPatientRequest) error {
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return apperrors.Validation("fname is required", nil)
	case strings.TrimSpace(req.LastName) == "":
		return apperrors.Validation("lname is required", nil)
	case req.DateOfBirth.IsZero():
		return apperrors.Validation("dob is required", nil)
	case strings.TrimSpace(req.Gender) == "":
		return apperrors.Validation("gender is required", nil)
	case strings.TrimSpace(req.Address) == "":
		return apperrors.Validation("address is required", nil)
	case strings.TrimSpace(req.Village) == "":
		return apperrors.Validation("village is required", nil)
	case strings.TrimSpace(req.Phone) == "":
		return apperrors.Validation("phone is required", nil)
	case strings.TrimSpace(req.AadhaarNo) == "":
		return apperrors.Validation("aadhaar number is required", nil)
	case strings.TrimSpace(req.RegisteredBy) == "":
		return apperrors.Validation("registering worker is required", nil)
	}
	return nil
}

// emitEvent writes an outbox row after the commit. Event loss is logged but
// never fails the submission the event describes.
func (s *Service) emitEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}); err != nil {
		s.logger.Error(err, "failed to create outbox event", "event_type", eventType)
	}
}

func (s *Service) countSubmission(station model.Station, outcome string) {
	if s.metrics != nil {
		s.metrics.StationSubmissions.WithLabelValues(fmt.Sprintf("%d", station), outcome).Inc()
	}
}

func (s *Service) countStation(station model.Station) {
	if s.metrics != nil {
		s.metrics.StationsCompleted.WithLabelValues(fmt.Sprintf("%d", station)).Inc()
	}
}
