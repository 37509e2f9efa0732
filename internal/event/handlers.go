package event

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/rates"
	"github.com/campmeet/backend-portal/internal/store"
)

// Handler exposes the public event browsing endpoints.
type Handler struct {
	Q            *store.Queries
	Cache        *rates.Cache
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

// DetailCacheKey names the cached detail view for an event. It is keyed by id
// so admin mutations can drop it without knowing the slug.
func DetailCacheKey(eventID uuid.UUID) string {
	return "event:detail:" + eventID.String()
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// List returns events ordered by start date with pagination metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.DefaultLimit)
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	offset := (page - 1) * perPage

	rows, err := h.Q.ListEvents(r.Context(), int32(perPage), int32(offset))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list events", nil)
		return
	}
	total, err := h.Q.CountEvents(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count events", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": eventViews(rows),
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Detail returns one event with its lodging, meal, fee, and active discount
// configuration. The assembled view is cached briefly since it only changes
// when an admin edits the event.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		common.WriteError(w, common.Validation("slug", "is required"))
		return
	}

	ev, err := h.Q.GetEventBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("event", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load event", nil)
		return
	}

	cacheKey := DetailCacheKey(store.UUIDValue(ev.ID))
	var cached map[string]any
	if ok, err := h.Cache.GetJSON(r.Context(), cacheKey, &cached); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": cached})
		return
	}

	lodging, err := h.Q.ListLodgingOptions(r.Context(), ev.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load lodging options", nil)
		return
	}
	meals, err := h.Q.ListMealSessions(r.Context(), ev.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load meal sessions", nil)
		return
	}
	fees, err := h.Q.ListEventFees(r.Context(), ev.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load fees", nil)
		return
	}
	discounts, err := h.Q.ListEventDiscounts(r.Context(), ev.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load discounts", nil)
		return
	}

	detail := map[string]any{
		"event":           eventView(ev),
		"lodgingOptions":  lodgingViews(lodging),
		"mealSessions":    mealViews(meals),
		"fees":            feeViews(fees),
		"activeDiscounts": activeDiscountViews(discounts, h.now()),
	}
	_ = h.Cache.SetJSON(r.Context(), cacheKey, detail)
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}
