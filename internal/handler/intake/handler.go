package intake

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/handler"
	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/service/intake"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type Handler struct {
	service *intake.Service
}

func NewHandler(service *intake.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/intake")
	{
		group.POST("/station-1", h.SubmitStation1)
		group.POST("/station-2", h.SubmitStation2)
		group.POST("/vision-tests", h.SubmitVisionTest)
		group.GET("/vision-completion/:patientId", h.GetVisionCompletion)
		group.GET("/vision-tests/:patientId", h.ListVisionTests)
		group.POST("/patients/:patientId/stations/:station/in-progress", h.MarkInProgress)
		group.GET("/completion-by-aadhaar/:nationalId", h.GetCompletionByAadhaar)
	}

	patients := r.Group("/patients")
	{
		patients.GET("/:id", h.GetPatient)
	}
}

func (h *Handler) SubmitStation1(c *gin.Context) {
	var req model.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patient, err := h.service.SubmitStation1(c.Request.Context(), &req)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"patient_id": patient.ID,
	}))
}

func (h *Handler) SubmitStation2(c *gin.Context) {
	var req model.SubmitMedicalHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.SubmitStation2(c.Request.Context(), req.PatientID, &req.Bundle); err != nil {
		// The client contract collapses a missing patient into 400
		// alongside duplicates; the body still carries a precise message.
		status := handler.StatusFromError(err)
		if apperrors.IsNotFound(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"message": "medical history recorded",
	}))
}

func (h *Handler) SubmitVisionTest(c *gin.Context) {
	var req model.SubmitVisionTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.SubmitStation3(c.Request.Context(), &req); err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"message": "vision test recorded",
	}))
}

// GetVisionCompletion is polled after a Station 3 submission to decide
// whether both eyes are done.
func (h *Handler) GetVisionCompletion(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	state, err := h.service.GetCompletionByPatient(c.Request.Context(), patientID)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(state))
}

func (h *Handler) ListVisionTests(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	results, err := h.service.GetVisionResults(c.Request.Context(), patientID)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(results))
}

func (h *Handler) MarkInProgress(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	stationNum, err := strconv.Atoi(c.Param("station"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid station"))
		return
	}

	if err := h.service.MarkStationInProgress(c.Request.Context(), patientID, model.Station(stationNum)); err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"message": "station marked in progress",
	}))
}

func (h *Handler) GetCompletionByAadhaar(c *gin.Context) {
	nationalID := c.Param("nationalId")
	if nationalID == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("national ID is required"))
		return
	}

	state, err := h.service.GetCompletionState(c.Request.Context(), nationalID)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(state))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}
