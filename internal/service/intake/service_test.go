package intake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netraseva/intake-api/internal/model"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
	"github.com/netraseva/intake-api/pkg/logger"
)

// The fakes reproduce the transactional semantics of the postgres layer:
// patient creation and bundle creation also flip the matching station flag,
// and flag writes never move a station backward.

type fakeStore struct {
	patients    map[uuid.UUID]*model.Patient
	byAadhaar   map[string]uuid.UUID
	completions map[uuid.UUID]*model.CompletionState
	bundles     map[uuid.UUID]*model.MedicalHistoryBundle
	eyes        map[uuid.UUID]map[model.EyeSide]*model.VisionTestResult
	events      []*model.OutboxEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:    make(map[uuid.UUID]*model.Patient),
		byAadhaar:   make(map[string]uuid.UUID),
		completions: make(map[uuid.UUID]*model.CompletionState),
		bundles:     make(map[uuid.UUID]*model.MedicalHistoryBundle),
		eyes:        make(map[uuid.UUID]map[model.EyeSide]*model.VisionTestResult),
	}
}

func (f *fakeStore) ensureCompletion(patientID uuid.UUID) *model.CompletionState {
	if state, ok := f.completions[patientID]; ok {
		return state
	}
	state := &model.CompletionState{PatientID: patientID}
	f.completions[patientID] = state
	return state
}

func (f *fakeStore) setStation(patientID uuid.UUID, station model.Station, status model.StationStatus) {
	state := f.ensureCompletion(patientID)
	apply := func(current model.StationStatus) model.StationStatus {
		if status > current {
			return status
		}
		return current
	}
	switch station {
	case model.StationRegistration:
		state.Station1 = apply(state.Station1)
	case model.StationMedicalHistory:
		state.Station2 = apply(state.Station2)
	case model.StationVisionTest:
		state.Station3 = apply(state.Station3)
	}
	state.UpdatedAt = time.Now()
}

type fakePatientRepo struct{ store *fakeStore }

func (r *fakePatientRepo) CreateWithCompletion(_ context.Context, patient *model.Patient) error {
	if _, exists := r.store.byAadhaar[patient.AadhaarNo]; exists {
		return apperrors.Duplicate("aadhaar number already registered", nil)
	}
	r.store.patients[patient.ID] = patient
	r.store.byAadhaar[patient.AadhaarNo] = patient.ID
	r.store.setStation(patient.ID, model.StationRegistration, model.StationComplete)
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, ok := r.store.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return patient, nil
}

func (r *fakePatientRepo) GetByAadhaar(_ context.Context, aadhaarNo string) (*model.Patient, error) {
	id, ok := r.store.byAadhaar[aadhaarNo]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return r.store.patients[id], nil
}

func (r *fakePatientRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.store.patients[id]
	return ok, nil
}

type fakeCompletionRepo struct{ store *fakeStore }

func (r *fakeCompletionRepo) Get(_ context.Context, patientID uuid.UUID) (*model.CompletionState, error) {
	state, ok := r.store.completions[patientID]
	if !ok {
		return nil, apperrors.NotFound("completion state", nil)
	}
	return state, nil
}

func (r *fakeCompletionRepo) SetStation(_ context.Context, patientID uuid.UUID, station model.Station, status model.StationStatus) error {
	r.store.setStation(patientID, station, status)
	return nil
}

type fakeHistoryRepo struct{ store *fakeStore }

func (r *fakeHistoryRepo) CreateBundle(_ context.Context, patientID uuid.UUID, bundle *model.MedicalHistoryBundle) error {
	if _, exists := r.store.bundles[patientID]; exists {
		return apperrors.Duplicate("medical history already submitted for patient", nil)
	}
	r.store.bundles[patientID] = bundle
	r.store.setStation(patientID, model.StationMedicalHistory, model.StationComplete)
	return nil
}

func (r *fakeHistoryRepo) HasBundle(_ context.Context, patientID uuid.UUID) (bool, error) {
	_, ok := r.store.bundles[patientID]
	return ok, nil
}

type fakeVisionRepo struct{ store *fakeStore }

func (r *fakeVisionRepo) UpsertResult(_ context.Context, result *model.VisionTestResult) error {
	byEye, ok := r.store.eyes[result.PatientID]
	if !ok {
		byEye = make(map[model.EyeSide]*model.VisionTestResult)
		r.store.eyes[result.PatientID] = byEye
	}
	byEye[result.Eye] = result
	return nil
}

func (r *fakeVisionRepo) ListEyes(_ context.Context, patientID uuid.UUID) ([]model.EyeSide, error) {
	var eyes []model.EyeSide
	for eye := range r.store.eyes[patientID] {
		eyes = append(eyes, eye)
	}
	return eyes, nil
}

func (r *fakeVisionRepo) ListResults(_ context.Context, patientID uuid.UUID) ([]*model.VisionTestResult, error) {
	var results []*model.VisionTestResult
	for _, result := range r.store.eyes[patientID] {
		results = append(results, result)
	}
	return results, nil
}

type fakeOutboxRepo struct{ store *fakeStore }

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.store.events = append(r.store.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingWithLock(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) MoveToDeadLetter(_ context.Context, _ *model.OutboxEvent) error { return nil }

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(
		&fakePatientRepo{store},
		&fakeCompletionRepo{store},
		&fakeHistoryRepo{store},
		&fakeVisionRepo{store},
		&fakeOutboxRepo{store},
		logger.NewLogger(nil),
		nil,
	)
	return svc, store
}

func validRegistration() *model.RegisterPatientRequest {
	return &model.RegisterPatientRequest{
		FirstName:    "Asha",
		LastName:     "Devi",
		DateOfBirth:  time.Date(1968, 3, 14, 0, 0, 0, 0, time.UTC),
		Age:          58,
		Gender:       "female",
		Address:      "Ward 4, Main Road",
		Village:      "Rampur",
		Phone:        "9876543210",
		AadhaarNo:    "123412341234",
		RegisteredBy: "volunteer-17",
	}
}

func submitBundle(t *testing.T, svc *Service, patientID uuid.UUID) {
	t.Helper()
	err := svc.SubmitStation2(context.Background(), patientID, &model.MedicalHistoryBundle{
		Ophthalmology: model.OphthalmologyHistory{
			VisionLoss: model.EyeSymptom{Present: true, Eye: "left", Onset: "gradual", Duration: "6 months"},
		},
		Systemic: model.SystemicHistory{Diabetes: true},
	})
	require.NoError(t, err)
}

func submitEye(t *testing.T, svc *Service, patientID uuid.UUID, eye model.EyeSide) {
	t.Helper()
	err := svc.SubmitStation3(context.Background(), &model.SubmitVisionTestRequest{
		PatientID: patientID,
		Eye:       eye,
		Sphere:    -1.25,
		Cylinder:  -0.5,
		Axis:      90,
		TestedBy:  "practitioner-3",
	})
	require.NoError(t, err)
}

func TestSubmitStation1(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, patient.ID)

	state := store.completions[patient.ID]
	require.NotNil(t, state, "registration must create the completion row")
	assert.Equal(t, model.StationComplete, state.Station1)
	assert.Equal(t, model.StationNotStarted, state.Station2)
	assert.Equal(t, model.StationNotStarted, state.Station3)

	require.Len(t, store.events, 1)
	assert.Equal(t, model.EventPatientRegistered, store.events[0].EventType)
}

func TestSubmitStation1MissingFields(t *testing.T) {
	svc, _ := newTestService()

	req := validRegistration()
	req.FirstName = "  "
	_, err := svc.SubmitStation1(context.Background(), req)
	assert.True(t, apperrors.IsValidation(err))

	req = validRegistration()
	req.AadhaarNo = ""
	_, err = svc.SubmitStation1(context.Background(), req)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSubmitStation1DuplicateAadhaar(t *testing.T) {
	svc, store := newTestService()

	first, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.SubmitStation1(context.Background(), validRegistration())
	assert.True(t, apperrors.IsDuplicate(err))

	// The original registration is untouched.
	assert.Equal(t, model.StationComplete, store.completions[first.ID].Station1)
	assert.Len(t, store.patients, 1)
}

func TestSubmitStation2(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	submitBundle(t, svc, patient.ID)
	assert.Equal(t, model.StationComplete, store.completions[patient.ID].Station2)
}

func TestSubmitStation2UnknownPatient(t *testing.T) {
	svc, _ := newTestService()

	err := svc.SubmitStation2(context.Background(), uuid.New(), &model.MedicalHistoryBundle{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSubmitStation2Duplicate(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)
	submitBundle(t, svc, patient.ID)

	err = svc.SubmitStation2(context.Background(), patient.ID, &model.MedicalHistoryBundle{})
	assert.True(t, apperrors.IsDuplicate(err))

	// Flag unchanged, bundle not overwritten.
	assert.Equal(t, model.StationComplete, store.completions[patient.ID].Station2)
	assert.True(t, store.bundles[patient.ID].Systemic.Diabetes)
}

func TestSubmitStation3OneEye(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	submitEye(t, svc, patient.ID, model.EyeLeft)
	assert.Equal(t, model.StationNotStarted, store.completions[patient.ID].Station3,
		"one eye must not complete the station")

	// Re-testing the same eye overwrites, still incomplete.
	submitEye(t, svc, patient.ID, model.EyeLeft)
	assert.Equal(t, model.StationNotStarted, store.completions[patient.ID].Station3)
}

func TestSubmitStation3BothEyes(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	submitEye(t, svc, patient.ID, model.EyeLeft)
	submitEye(t, svc, patient.ID, model.EyeRight)
	assert.Equal(t, model.StationComplete, store.completions[patient.ID].Station3)

	// A third reading after completion keeps the flag at complete.
	submitEye(t, svc, patient.ID, model.EyeRight)
	assert.Equal(t, model.StationComplete, store.completions[patient.ID].Station3)
}

func TestSubmitStation3Validation(t *testing.T) {
	svc, _ := newTestService()

	err := svc.SubmitStation3(context.Background(), &model.SubmitVisionTestRequest{
		PatientID: uuid.New(),
		Eye:       "both",
		TestedBy:  "practitioner-3",
	})
	assert.True(t, apperrors.IsValidation(err))

	err = svc.SubmitStation3(context.Background(), &model.SubmitVisionTestRequest{
		PatientID: uuid.New(),
		Eye:       model.EyeLeft,
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMarkStationInProgress(t *testing.T) {
	svc, store := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	require.NoError(t, svc.MarkStationInProgress(context.Background(), patient.ID, model.StationMedicalHistory))
	assert.Equal(t, model.StationInProgress, store.completions[patient.ID].Station2)

	// In-progress never downgrades a completed station.
	require.NoError(t, svc.MarkStationInProgress(context.Background(), patient.ID, model.StationRegistration))
	assert.Equal(t, model.StationComplete, store.completions[patient.ID].Station1)

	err = svc.MarkStationInProgress(context.Background(), patient.ID, model.Station(9))
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetCompletionStateByAadhaar(t *testing.T) {
	svc, _ := newTestService()

	patient, err := svc.SubmitStation1(context.Background(), validRegistration())
	require.NoError(t, err)

	state, err := svc.GetCompletionState(context.Background(), patient.AadhaarNo)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, state.PatientID)
	assert.Equal(t, model.StationComplete, state.Station1)

	// Second lookup is served from the id cache.
	state, err = svc.GetCompletionState(context.Background(), patient.AadhaarNo)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, state.PatientID)

	_, err = svc.GetCompletionState(context.Background(), "000000000000")
	assert.True(t, apperrors.IsNotFound(err))
}
