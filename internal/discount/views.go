package discount

import (
	"time"

	"github.com/campmeet/backend-portal/internal/store"
)

type discountDTO struct {
	ID                 string     `json:"id"`
	EventID            string     `json:"eventId"`
	Code               string     `json:"code,omitempty"`
	Label              string     `json:"label"`
	Kind               string     `json:"kind"`
	Scope              string     `json:"scope"`
	Value              int64      `json:"value"`
	BulkRateMultiplier *int32     `json:"bulkRateMultiplier,omitempty"`
	MaxAmount          *int64     `json:"maxAmount,omitempty"`
	MinAttendees       *int32     `json:"minAttendees,omitempty"`
	RequiresRole       string     `json:"requiresRole,omitempty"`
	StartsAt           *time.Time `json:"startsAt,omitempty"`
	EndsAt             *time.Time `json:"endsAt,omitempty"`
	Stackable          bool       `json:"stackable"`
	Priority           int32      `json:"priority"`
	Note               string     `json:"note,omitempty"`
}

type feeDTO struct {
	ID       string `json:"id"`
	EventID  string `json:"eventId"`
	Category string `json:"category"`
	Code     string `json:"code"`
	Label    string `json:"label"`
	Unit     string `json:"unit"`
	Amount   int64  `json:"amount"`
}

func discountView(d store.EventDiscount) discountDTO {
	return discountDTO{
		ID:                 store.UUIDString(d.ID),
		EventID:            store.UUIDString(d.EventID),
		Code:               store.TextValue(d.Code),
		Label:              d.Label,
		Kind:               d.Kind,
		Scope:              d.Scope,
		Value:              d.Value,
		BulkRateMultiplier: store.Int4Ptr(d.BulkRateMultiplier),
		MaxAmount:          store.Int8Ptr(d.MaxAmount),
		MinAttendees:       store.Int4Ptr(d.MinAttendees),
		RequiresRole:       store.TextValue(d.RequiresRole),
		StartsAt:           store.TimePtr(d.StartsAt),
		EndsAt:             store.TimePtr(d.EndsAt),
		Stackable:          d.IsStackable,
		Priority:           d.Priority,
		Note:               store.TextValue(d.Note),
	}
}

func discountViews(rows []store.EventDiscount) []discountDTO {
	out := make([]discountDTO, 0, len(rows))
	for _, d := range rows {
		out = append(out, discountView(d))
	}
	return out
}

func feeView(f store.EventFee) feeDTO {
	return feeDTO{
		ID:       store.UUIDString(f.ID),
		EventID:  store.UUIDString(f.EventID),
		Category: f.Category,
		Code:     f.Code,
		Label:    f.Label,
		Unit:     f.Unit,
		Amount:   f.Amount,
	}
}

func feeViews(rows []store.EventFee) []feeDTO {
	out := make([]feeDTO, 0, len(rows))
	for _, f := range rows {
		out = append(out, feeView(f))
	}
	return out
}
