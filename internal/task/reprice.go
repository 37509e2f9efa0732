package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/obs"
	"github.com/campmeet/backend-portal/internal/registration"
	"github.com/campmeet/backend-portal/internal/store"
)

// TypeRepriceEvent asks the worker to reprice every registration of an event,
// typically after an admin changed its fees or discounts.
const TypeRepriceEvent = "pricing:reprice_event"

// RepriceEventPayload is the JSON body of a reprice task.
type RepriceEventPayload struct {
	EventID string `json:"eventId"`
}

// NewRepriceEventTask builds the asynq task for an event-wide reprice.
func NewRepriceEventTask(eventID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(RepriceEventPayload{EventID: eventID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRepriceEvent, payload, asynq.MaxRetry(3)), nil
}

// Enqueuer submits pricing tasks to the background queue. A nil client turns
// enqueueing into a no-op so tests and single-binary deployments keep working.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Logger *zerolog.Logger
}

// RepriceEvent schedules an event-wide reprice.
func (e Enqueuer) RepriceEvent(ctx context.Context, eventID uuid.UUID) error {
	if e.Client == nil {
		return nil
	}
	t, err := NewRepriceEventTask(eventID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	info, err := e.Client.EnqueueContext(ctx, t, opts...)
	if err != nil {
		return fmt.Errorf("enqueue reprice: %w", err)
	}
	if e.Logger != nil {
		e.Logger.Debug().Str("task_id", info.ID).Str("event_id", eventID.String()).Msg("reprice task enqueued")
	}
	return nil
}

// RepriceHandler processes reprice tasks against the registration service.
type RepriceHandler struct {
	Q      *store.Queries
	Svc    *registration.Service
	Logger *zerolog.Logger
}

// ProcessTask reprices every registration under the event. A registration
// locked by a concurrent run is skipped; the next mutation or explicit price
// call will catch it up.
func (h *RepriceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload RepriceEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	eventID, err := uuid.Parse(payload.EventID)
	if err != nil {
		return fmt.Errorf("invalid event id: %v: %w", err, asynq.SkipRetry)
	}

	ids, err := h.Q.ListRegistrationIDsByEvent(ctx, store.PgUUID(eventID))
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}

	var failed int
	for _, id := range ids {
		regID := store.UUIDValue(id)
		if _, err := h.Svc.Price(ctx, regID, registration.TriggerTask); err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) && appErr.Code == "CONFLICT" {
				if h.Logger != nil {
					h.Logger.Warn().Str("registration_id", regID.String()).Msg("registration locked, skipping reprice")
				}
				continue
			}
			failed++
			if h.Logger != nil {
				h.Logger.Error().Err(err).Str("registration_id", regID.String()).Msg("reprice failed")
			}
		}
	}

	if obs.RepriceTasksTotal != nil {
		outcome := "ok"
		if failed > 0 {
			outcome = "partial"
		}
		obs.RepriceTasksTotal.WithLabelValues(outcome).Inc()
	}
	if failed > 0 {
		return fmt.Errorf("repriced with %d failures out of %d registrations", failed, len(ids))
	}
	return nil
}
