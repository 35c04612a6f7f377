package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/handler"
	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/service/appointment"
	"github.com/netraseva/intake-api/pkg/event"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/appointments")
	{
		group.POST("", h.Create)
		group.PUT("/:id", h.Reschedule)
		group.GET("/next/:patientId", h.GetNext)
		group.GET("/history/:patientId", h.ListHistory)
	}
}

func (h *Handler) RegisterRoutesWithEvents(r *gin.RouterGroup, eventTracker *event.EventTrackerMiddleware) {
	group := r.Group("/appointments")
	{
		group.POST("", eventTracker.TrackEvent("APPOINTMENT", "CREATE"), h.Create)
		group.PUT("/:id", eventTracker.TrackEvent("APPOINTMENT", "RESCHEDULE"), h.Reschedule)
		group.GET("/next/:patientId", h.GetNext)
		group.GET("/history/:patientId", h.ListHistory)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	if eventCtx, ok := c.Get(event.ContextKey); ok {
		if ctx, ok := eventCtx.(*event.EventContext); ok {
			ctx.NewData = created
		}
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	if eventCtx, ok := c.Get(event.ContextKey); ok {
		if ctx, ok := eventCtx.(*event.EventContext); ok {
			ctx.NewData = updated
		}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) GetNext(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	next, err := h.service.GetNext(c.Request.Context(), patientID)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(next))
}

func (h *Handler) ListHistory(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	history, err := h.service.ListHistory(c.Request.Context(), patientID)
	if err != nil {
		c.JSON(handler.StatusFromError(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}
