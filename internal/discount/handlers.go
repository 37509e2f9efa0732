package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/event"
	"github.com/campmeet/backend-portal/internal/pricing"
	"github.com/campmeet/backend-portal/internal/rates"
	"github.com/campmeet/backend-portal/internal/store"
	"github.com/campmeet/backend-portal/internal/task"
)

// Handler exposes administrative pricing configuration endpoints: discount
// rules and fee tables. Mutations invalidate the event's rate snapshot and
// enqueue a background reprice of its registrations.
type Handler struct {
	Q        *store.Queries
	Validate *validator.Validate
	Tasks    task.Enqueuer
	Rates    *rates.Resolver
	Cache    *rates.Cache
	Logger   *zerolog.Logger
}

type discountPayload struct {
	Code               *string    `json:"code"`
	Label              string     `json:"label" validate:"required"`
	Kind               string     `json:"kind" validate:"required,oneof=percentage fixed bulk_rate"`
	Scope              string     `json:"scope" validate:"required,oneof=registration attendee lodging meal shuttle"`
	Value              int64      `json:"value" validate:"gte=0"`
	BulkRateMultiplier *int32     `json:"bulkRateMultiplier"`
	MaxAmount          *int64     `json:"maxAmount"`
	MinAttendees       *int32     `json:"minAttendees"`
	RequiresRole       *string    `json:"requiresRole"`
	StartsAt           *time.Time `json:"startsAt"`
	EndsAt             *time.Time `json:"endsAt"`
	Stackable          bool       `json:"stackable"`
	Priority           int32      `json:"priority"`
	Note               *string    `json:"note"`
}

type feePayload struct {
	Category string `json:"category" validate:"required,oneof=registration lodging meal shuttle surcharge"`
	Code     string `json:"code" validate:"required"`
	Label    string `json:"label" validate:"required"`
	Unit     string `json:"unit"`
	Amount   int64  `json:"amount" validate:"gte=0"`
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return common.Validation(strings.ToLower(verrs[0].Field()), "failed "+verrs[0].Tag()+" validation")
			}
			return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
		}
	}
	return nil
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, common.Validation(name, "must be a valid uuid")
	}
	return id, nil
}

func (p discountPayload) validateKind() error {
	switch p.Kind {
	case "percentage":
		if p.Value <= 0 || p.Value > 10000 {
			return common.Validation("value", "percentage must be 1..10000 basis points")
		}
	case "fixed":
		if p.Value <= 0 {
			return common.Validation("value", "fixed amount must be positive")
		}
	case "bulk_rate":
		if p.BulkRateMultiplier == nil || *p.BulkRateMultiplier <= 0 || *p.BulkRateMultiplier >= 10000 {
			return common.Validation("bulkRateMultiplier", "must be 1..9999 basis points")
		}
	}
	if p.StartsAt != nil && p.EndsAt != nil && p.EndsAt.Before(*p.StartsAt) {
		return common.Validation("endsAt", "must not precede startsAt")
	}
	return nil
}

func (p discountPayload) toParams(eventID uuid.UUID) store.CreateEventDiscountParams {
	var code, role, note string
	if p.Code != nil {
		code = strings.TrimSpace(*p.Code)
	}
	if p.RequiresRole != nil {
		role = strings.TrimSpace(*p.RequiresRole)
	}
	if p.Note != nil {
		note = *p.Note
	}
	return store.CreateEventDiscountParams{
		EventID:            store.PgUUID(eventID),
		Code:               store.PgText(code),
		Label:              p.Label,
		Kind:               p.Kind,
		Scope:              p.Scope,
		Value:              p.Value,
		BulkRateMultiplier: store.PgInt4Ptr(p.BulkRateMultiplier),
		MaxAmount:          store.PgInt8Ptr(p.MaxAmount),
		MinAttendees:       store.PgInt4Ptr(p.MinAttendees),
		RequiresRole:       store.PgText(role),
		StartsAt:           store.PgTimestamptzPtr(p.StartsAt),
		EndsAt:             store.PgTimestamptzPtr(p.EndsAt),
		IsStackable:        p.Stackable,
		Priority:           p.Priority,
		Note:               store.PgText(note),
	}
}

// notifyChanged refreshes caches and schedules a reprice after a pricing
// configuration mutation.
func (h *Handler) notifyChanged(r *http.Request, eventID uuid.UUID) {
	if err := h.Rates.Invalidate(r.Context(), eventID); err != nil && h.Logger != nil {
		h.Logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("rate cache invalidation failed")
	}
	if err := h.Cache.Delete(r.Context(), event.DetailCacheKey(eventID)); err != nil && h.Logger != nil {
		h.Logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("event detail cache invalidation failed")
	}
	if err := h.Tasks.RepriceEvent(r.Context(), eventID); err != nil && h.Logger != nil {
		h.Logger.Error().Err(err).Str("event_id", eventID.String()).Msg("reprice enqueue failed")
	}
}

// ListDiscounts returns an event's discount rules.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.Q.ListEventDiscounts(r.Context(), store.PgUUID(eventID))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list discounts", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": discountViews(rows)})
}

// CreateDiscount inserts a new discount rule.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload discountPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := payload.validateKind(); err != nil {
		common.WriteError(w, err)
		return
	}
	row, err := h.Q.CreateEventDiscount(r.Context(), payload.toParams(eventID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				common.WriteError(w, common.Conflict("discount code already exists", err))
				return
			case "23503":
				common.WriteError(w, common.NotFound("event", err))
				return
			}
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create discount", nil)
		return
	}
	h.notifyChanged(r, eventID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": discountView(row)})
}

// UpdateDiscount replaces a rule's attributes.
func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	id, err := urlUUID(r, "discountID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload discountPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := payload.validateKind(); err != nil {
		common.WriteError(w, err)
		return
	}
	existing, err := h.Q.GetEventDiscount(r.Context(), store.PgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("discount", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load discount", nil)
		return
	}
	if store.UUIDValue(existing.EventID) != eventID {
		common.WriteError(w, common.NotFound("discount", nil))
		return
	}
	row, err := h.Q.UpdateEventDiscount(r.Context(), store.UpdateEventDiscountParams{
		ID:                        store.PgUUID(id),
		CreateEventDiscountParams: payload.toParams(eventID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("discount", err))
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.WriteError(w, common.Conflict("discount code already exists", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update discount", nil)
		return
	}
	h.notifyChanged(r, eventID)
	common.JSON(w, http.StatusOK, map[string]any{"data": discountView(row)})
}

// DeleteDiscount removes a rule.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	id, err := urlUUID(r, "discountID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Q.DeleteEventDiscount(r.Context(), store.PgUUID(id)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("discount", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete discount", nil)
		return
	}
	h.notifyChanged(r, eventID)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// ListFees returns an event's fee table.
func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.Q.ListEventFees(r.Context(), store.PgUUID(eventID))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list fees", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": feeViews(rows)})
}

// UpsertFee creates or replaces a fee row keyed by category and code.
func (h *Handler) UpsertFee(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload feePayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	unit := payload.Unit
	if unit == "" {
		unit = "each"
	}
	row, err := h.Q.UpsertEventFee(r.Context(), store.UpsertEventFeeParams{
		EventID:  store.PgUUID(eventID),
		Category: payload.Category,
		Code:     payload.Code,
		Label:    payload.Label,
		Unit:     unit,
		Amount:   payload.Amount,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.WriteError(w, common.NotFound("event", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save fee", nil)
		return
	}
	h.notifyChanged(r, eventID)
	common.JSON(w, http.StatusOK, map[string]any{"data": feeView(row)})
}

// DeleteFee removes a fee row.
func (h *Handler) DeleteFee(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlUUID(r, "eventID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	id, err := urlUUID(r, "feeID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Q.DeleteEventFee(r.Context(), store.PgUUID(id)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("fee", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete fee", nil)
		return
	}
	h.notifyChanged(r, eventID)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

type previewRequest struct {
	Rule          discountPayload   `json:"rule"`
	LineItems     []previewLineItem `json:"lineItems" validate:"required,dive"`
	AttendeeCount int               `json:"attendeeCount"`
	CreatorRole   string            `json:"creatorRole"`
}

type previewLineItem struct {
	Kind   string `json:"kind" validate:"required"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

// Preview evaluates a candidate rule against hypothetical charges without
// saving anything, so admins can see the effect before publishing.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var payload previewRequest
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := payload.Rule.validateKind(); err != nil {
		common.WriteError(w, err)
		return
	}
	items := make([]pricing.LineItem, 0, len(payload.LineItems))
	for _, it := range payload.LineItems {
		items = append(items, pricing.LineItem{Kind: pricing.ItemKind(it.Kind), Amount: it.Amount})
	}
	rule := ruleFromPayload(payload.Rule)
	applied := pricing.Evaluate(items, pricing.EvalContext{
		AttendeeCount: payload.AttendeeCount,
		CreatorRole:   payload.CreatorRole,
	}, []pricing.Rule{rule}, time.Now().UTC())
	res := pricing.Aggregate(items, applied)
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

func ruleFromPayload(p discountPayload) pricing.Rule {
	var code, role string
	if p.Code != nil {
		code = *p.Code
	}
	if p.RequiresRole != nil {
		role = *p.RequiresRole
	}
	return pricing.Rule{
		ID:           uuid.New(),
		Code:         code,
		Label:        p.Label,
		Kind:         pricing.Kind(p.Kind),
		Scope:        pricing.Scope(p.Scope),
		Value:        p.Value,
		BulkRateBps:  p.BulkRateMultiplier,
		MinAttendees: p.MinAttendees,
		RequiresRole: role,
		StartsAt:     p.StartsAt,
		EndsAt:       p.EndsAt,
		Stackable:    p.Stackable,
		Priority:     p.Priority,
		MaxAmount:    p.MaxAmount,
	}
}
