package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
)

// EventContext is populated by a handler after a successful mutation; the
// tracker middleware turns it into an outbox row once the request finishes.
type EventContext struct {
	Resource  string
	Operation string
	NewData   interface{}
}

const ContextKey = "eventCtx"

type EventTrackerMiddleware struct {
	outbox repository.OutboxRepository
}

func NewEventTrackerMiddleware(outbox repository.OutboxRepository) *EventTrackerMiddleware {
	return &EventTrackerMiddleware{outbox: outbox}
}

func (m *EventTrackerMiddleware) TrackEvent(entityType, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventCtx := &EventContext{
			Resource:  entityType,
			Operation: action,
		}
		c.Set(ContextKey, eventCtx)

		c.Next()

		if eventCtx.NewData == nil {
			return
		}

		payload, err := json.Marshal(eventCtx.NewData)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal event payload")
			return
		}

		event := &model.OutboxEvent{
			EventType: fmt.Sprintf("%s_%s", strings.ToUpper(entityType), strings.ToUpper(action)),
			Payload:   payload,
		}
		if err := m.outbox.Create(c.Request.Context(), event); err != nil {
			log.Error().Err(err).Str("event_type", event.EventType).Msg("failed to create outbox event")
		}
	}
}
