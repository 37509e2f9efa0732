package event

import (
	"time"

	"github.com/campmeet/backend-portal/internal/store"
)

type eventDTO struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Location       string     `json:"location,omitempty"`
	StartDate      string     `json:"startDate"`
	EndDate        string     `json:"endDate"`
	Timezone       string     `json:"timezone"`
	RegOpen        *time.Time `json:"regOpen,omitempty"`
	RegClose       *time.Time `json:"regClose,omitempty"`
	Currency       string     `json:"currency"`
	LodgingEnabled bool       `json:"lodgingEnabled"`
	MealsEnabled   bool       `json:"mealsEnabled"`
	ShuttleEnabled bool       `json:"shuttleEnabled"`
}

type lodgingDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	NightlyRate     int64  `json:"nightlyRate"`
	CapacityPerRoom int32  `json:"capacityPerRoom"`
	AC              bool   `json:"ac"`
	Notes           string `json:"notes,omitempty"`
}

type mealDTO struct {
	ID       string `json:"id"`
	MealDate string `json:"mealDate"`
	MealType string `json:"mealType"`
	Price    int64  `json:"price"`
	Capacity *int32 `json:"capacity,omitempty"`
}

type feeDTO struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Label    string `json:"label"`
	Unit     string `json:"unit"`
	Amount   int64  `json:"amount"`
}

type activeDiscountDTO struct {
	Label     string     `json:"label"`
	Kind      string     `json:"kind"`
	Scope     string     `json:"scope"`
	StartsAt  *time.Time `json:"startsAt,omitempty"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
	Stackable bool       `json:"stackable"`
}

const dateLayout = "2006-01-02"

func eventView(e store.Event) eventDTO {
	return eventDTO{
		ID:             store.UUIDString(e.ID),
		Slug:           e.Slug,
		Name:           e.Name,
		Description:    store.TextValue(e.Description),
		Location:       store.TextValue(e.Location),
		StartDate:      store.DateValue(e.StartDate).Format(dateLayout),
		EndDate:        store.DateValue(e.EndDate).Format(dateLayout),
		Timezone:       e.Timezone,
		RegOpen:        store.TimePtr(e.RegOpen),
		RegClose:       store.TimePtr(e.RegClose),
		Currency:       e.Currency,
		LodgingEnabled: e.LodgingOption,
		MealsEnabled:   e.MealOption,
		ShuttleEnabled: e.ShuttleOption,
	}
}

func eventViews(rows []store.Event) []eventDTO {
	out := make([]eventDTO, 0, len(rows))
	for _, e := range rows {
		out = append(out, eventView(e))
	}
	return out
}

func lodgingViews(rows []store.LodgingOption) []lodgingDTO {
	out := make([]lodgingDTO, 0, len(rows))
	for _, o := range rows {
		out = append(out, lodgingDTO{
			ID:              store.UUIDString(o.ID),
			Name:            o.Name,
			NightlyRate:     o.NightlyRate,
			CapacityPerRoom: o.CapacityPerRoom,
			AC:              o.AC,
			Notes:           store.TextValue(o.Notes),
		})
	}
	return out
}

func mealViews(rows []store.MealSession) []mealDTO {
	out := make([]mealDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, mealDTO{
			ID:       store.UUIDString(m.ID),
			MealDate: store.DateValue(m.MealDate).Format(dateLayout),
			MealType: m.MealType,
			Price:    m.Price,
			Capacity: store.Int4Ptr(m.Capacity),
		})
	}
	return out
}

func feeViews(rows []store.EventFee) []feeDTO {
	out := make([]feeDTO, 0, len(rows))
	for _, f := range rows {
		out = append(out, feeDTO{
			Category: f.Category,
			Code:     f.Code,
			Label:    f.Label,
			Unit:     f.Unit,
			Amount:   f.Amount,
		})
	}
	return out
}

// activeDiscountViews filters to rules whose window contains now. Values stay
// private; the public surface only advertises that a promotion exists.
func activeDiscountViews(rows []store.EventDiscount, now time.Time) []activeDiscountDTO {
	out := make([]activeDiscountDTO, 0, len(rows))
	for _, d := range rows {
		starts := store.TimePtr(d.StartsAt)
		ends := store.TimePtr(d.EndsAt)
		if starts != nil && now.Before(*starts) {
			continue
		}
		if ends != nil && now.After(*ends) {
			continue
		}
		out = append(out, activeDiscountDTO{
			Label:     d.Label,
			Kind:      d.Kind,
			Scope:     d.Scope,
			StartsAt:  starts,
			EndsAt:    ends,
			Stackable: d.IsStackable,
		})
	}
	return out
}
