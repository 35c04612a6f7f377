package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netraseva/intake-api/internal/handler"
	"github.com/netraseva/intake-api/internal/model"
	intakeService "github.com/netraseva/intake-api/internal/service/intake"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
	"github.com/netraseva/intake-api/pkg/logger"
)

type memPatientRepo struct {
	patients  map[uuid.UUID]*model.Patient
	byAadhaar map[string]uuid.UUID
	states    map[uuid.UUID]*model.CompletionState
}

func (r *memPatientRepo) CreateWithCompletion(_ context.Context, patient *model.Patient) error {
	if _, exists := r.byAadhaar[patient.AadhaarNo]; exists {
		return apperrors.Duplicate("aadhaar number already registered", nil)
	}
	r.patients[patient.ID] = patient
	r.byAadhaar[patient.AadhaarNo] = patient.ID
	r.states[patient.ID] = &model.CompletionState{
		PatientID: patient.ID,
		Station1:  model.StationComplete,
	}
	return nil
}

func (r *memPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return patient, nil
}

func (r *memPatientRepo) GetByAadhaar(_ context.Context, aadhaarNo string) (*model.Patient, error) {
	id, ok := r.byAadhaar[aadhaarNo]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return r.patients[id], nil
}

func (r *memPatientRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.patients[id]
	return ok, nil
}

type memCompletionRepo struct{ states map[uuid.UUID]*model.CompletionState }

func (r *memCompletionRepo) Get(_ context.Context, patientID uuid.UUID) (*model.CompletionState, error) {
	state, ok := r.states[patientID]
	if !ok {
		return nil, apperrors.NotFound("completion state", nil)
	}
	return state, nil
}

func (r *memCompletionRepo) SetStation(_ context.Context, patientID uuid.UUID, station model.Station, status model.StationStatus) error {
	state, ok := r.states[patientID]
	if !ok {
		state = &model.CompletionState{PatientID: patientID}
		r.states[patientID] = state
	}
	switch station {
	case model.StationRegistration:
		if status > state.Station1 {
			state.Station1 = status
		}
	case model.StationMedicalHistory:
		if status > state.Station2 {
			state.Station2 = status
		}
	case model.StationVisionTest:
		if status > state.Station3 {
			state.Station3 = status
		}
	}
	return nil
}

type memHistoryRepo struct {
	states  map[uuid.UUID]*model.CompletionState
	bundles map[uuid.UUID]bool
}

func (r *memHistoryRepo) CreateBundle(_ context.Context, patientID uuid.UUID, _ *model.MedicalHistoryBundle) error {
	if r.bundles[patientID] {
		return apperrors.Duplicate("medical history already submitted for patient", nil)
	}
	r.bundles[patientID] = true
	if state, ok := r.states[patientID]; ok {
		state.Station2 = model.StationComplete
	}
	return nil
}

func (r *memHistoryRepo) HasBundle(_ context.Context, patientID uuid.UUID) (bool, error) {
	return r.bundles[patientID], nil
}

type memVisionRepo struct {
	eyes map[uuid.UUID]map[model.EyeSide]*model.VisionTestResult
}

func (r *memVisionRepo) UpsertResult(_ context.Context, result *model.VisionTestResult) error {
	byEye, ok := r.eyes[result.PatientID]
	if !ok {
		byEye = make(map[model.EyeSide]*model.VisionTestResult)
		r.eyes[result.PatientID] = byEye
	}
	byEye[result.Eye] = result
	return nil
}

func (r *memVisionRepo) ListEyes(_ context.Context, patientID uuid.UUID) ([]model.EyeSide, error) {
	var eyes []model.EyeSide
	for eye := range r.eyes[patientID] {
		eyes = append(eyes, eye)
	}
	return eyes, nil
}

func (r *memVisionRepo) ListResults(_ context.Context, patientID uuid.UUID) ([]*model.VisionTestResult, error) {
	var results []*model.VisionTestResult
	for _, result := range r.eyes[patientID] {
		results = append(results, result)
	}
	return results, nil
}

func newTestRouter() (*gin.Engine, *memPatientRepo) {
	gin.SetMode(gin.TestMode)
	handler.RegisterValidators()

	states := make(map[uuid.UUID]*model.CompletionState)
	patients := &memPatientRepo{
		patients:  make(map[uuid.UUID]*model.Patient),
		byAadhaar: make(map[string]uuid.UUID),
		states:    states,
	}
	svc := intakeService.NewService(
		patients,
		&memCompletionRepo{states: states},
		&memHistoryRepo{states: states, bundles: make(map[uuid.UUID]bool)},
		&memVisionRepo{eyes: make(map[uuid.UUID]map[model.EyeSide]*model.VisionTestResult)},
		nil,
		logger.NewLogger(nil),
		nil,
	)

	engine := gin.New()
	group := engine.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(group)
	return engine, patients
}

func postJSON(engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func getPath(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func registrationBody(aadhaar string) map[string]interface{} {
	return map[string]interface{}{
		"fname":         "Asha",
		"lname":         "Devi",
		"dob":           time.Date(1968, 3, 14, 0, 0, 0, 0, time.UTC),
		"age":           58,
		"gender":        "female",
		"address":       "Ward 4, Main Road",
		"village":       "Rampur",
		"phone":         "9876543210",
		"aadhaar_no":    aadhaar,
		"registered_by": "volunteer-17",
	}
}

func historyBundle() map[string]interface{} {
	return map[string]interface{}{
		"ophthalmology": map[string]interface{}{
			"vision_loss": map[string]interface{}{"present": true, "eye": "left", "onset": "gradual", "duration": "6 months"},
		},
		"systemic": map[string]interface{}{"diabetes": true},
	}
}

func TestStation1Created(t *testing.T) {
	engine, _ := newTestRouter()

	w := postJSON(engine, "/api/v1/intake/station-1", registrationBody("123412341234"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			PatientID uuid.UUID `json:"patient_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEqual(t, uuid.Nil, resp.Data.PatientID)
}

func TestStation1RejectsBadAadhaar(t *testing.T) {
	engine, _ := newTestRouter()

	w := postJSON(engine, "/api/v1/intake/station-1", registrationBody("12ab"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStation2UnknownPatientIs400(t *testing.T) {
	engine, _ := newTestRouter()

	w := postJSON(engine, "/api/v1/intake/station-2", map[string]interface{}{
		"patient_id": uuid.New(),
		"bundle":     historyBundle(),
	})
	// Missing patients and duplicates share the 400 status; callers read
	// the message to tell them apart.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStation2DuplicateIs400(t *testing.T) {
	engine, _ := newTestRouter()

	w := postJSON(engine, "/api/v1/intake/station-1", registrationBody("123412341234"))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			PatientID uuid.UUID `json:"patient_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	body := map[string]interface{}{
		"patient_id": resp.Data.PatientID,
		"bundle":     historyBundle(),
	}
	w = postJSON(engine, "/api/v1/intake/station-2", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(engine, "/api/v1/intake/station-2", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompletionByAadhaarUnknownIs404(t *testing.T) {
	engine, _ := newTestRouter()

	w := getPath(engine, "/api/v1/intake/completion-by-aadhaar/000000000000")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompletionByAadhaar(t *testing.T) {
	engine, _ := newTestRouter()

	w := postJSON(engine, "/api/v1/intake/station-1", registrationBody("123412341234"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = getPath(engine, "/api/v1/intake/completion-by-aadhaar/123412341234")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Station1 float64 `json:"station1"`
			Station2 float64 `json:"station2"`
			Station3 float64 `json:"station3"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, resp.Data.Station1)
	assert.Equal(t, 0.0, resp.Data.Station2)
	assert.Equal(t, 0.0, resp.Data.Station3)
}
