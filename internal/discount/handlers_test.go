package discount

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/campmeet/backend-portal/internal/event"
	"github.com/campmeet/backend-portal/internal/rates"
)

func newPreviewHandler() *Handler {
	return &Handler{Validate: validator.New()}
}

func postPreview(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/discounts/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	return rec
}

func TestPreviewAppliesPercentage(t *testing.T) {
	body := `{
		"rule": {"label": "Early Bird", "kind": "percentage", "scope": "registration", "value": 1000, "stackable": true},
		"lineItems": [
			{"kind": "registration_fee", "amount": 15000},
			{"kind": "surcharge", "amount": 500}
		],
		"attendeeCount": 3
	}`
	rec := postPreview(t, newPreviewHandler(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			AppliedDiscounts []struct {
				Scope  string `json:"scope"`
				Amount int64  `json:"amount"`
			} `json:"appliedDiscounts"`
			GrandTotal int64 `json:"grandTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.AppliedDiscounts, 1)
	require.Equal(t, "registration", resp.Data.AppliedDiscounts[0].Scope)
	require.Equal(t, int64(1550), resp.Data.AppliedDiscounts[0].Amount)
	require.Equal(t, int64(13950), resp.Data.GrandTotal)
}

func TestPreviewMinAttendeesBlocks(t *testing.T) {
	body := `{
		"rule": {"label": "Group", "kind": "fixed", "scope": "registration", "value": 2000, "minAttendees": 5},
		"lineItems": [{"kind": "registration_fee", "amount": 15000}],
		"attendeeCount": 4
	}`
	rec := postPreview(t, newPreviewHandler(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			AppliedDiscounts []json.RawMessage `json:"appliedDiscounts"`
			GrandTotal       int64             `json:"grandTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Data.AppliedDiscounts)
	require.Equal(t, int64(15000), resp.Data.GrandTotal)
}

func TestPreviewRejectsBadRule(t *testing.T) {
	body := `{
		"rule": {"label": "Broken", "kind": "percentage", "scope": "registration", "value": 0},
		"lineItems": [{"kind": "registration_fee", "amount": 15000}]
	}`
	rec := postPreview(t, newPreviewHandler(), body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION", resp.Error.Code)
}

func TestPreviewRejectsBulkRateWithoutMultiplier(t *testing.T) {
	body := `{
		"rule": {"label": "Bulk", "kind": "bulk_rate", "scope": "lodging", "value": 0},
		"lineItems": [{"kind": "room_night", "amount": 12000}]
	}`
	rec := postPreview(t, newPreviewHandler(), body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNotifyChangedDropsEventCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	eventID := uuid.New()
	cache := rates.NewCache(client, time.Minute)
	require.NoError(t, mr.Set("rates:event:"+eventID.String(), `{}`))
	require.NoError(t, mr.Set(event.DetailCacheKey(eventID), `{}`))

	h := &Handler{
		Rates: rates.NewResolver(nil, cache),
		Cache: cache,
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID.String()+"/discounts", nil)
	h.notifyChanged(req, eventID)

	require.False(t, mr.Exists("rates:event:"+eventID.String()))
	require.False(t, mr.Exists(event.DetailCacheKey(eventID)))
}
