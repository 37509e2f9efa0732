package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campmeet/backend-portal/internal/common"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func enabledEvent() Event {
	return Event{
		ID:             uuid.New(),
		StartDate:      date(2026, 7, 1),
		EndDate:        date(2026, 7, 5),
		LodgingEnabled: true,
		MealsEnabled:   true,
		ShuttleEnabled: true,
	}
}

func baseRates() RateTable {
	return RateTable{
		Currency:        "USD",
		RegistrationFee: 15000,
		LodgingNightly:  map[uuid.UUID]Money{},
		MealPrices:      map[uuid.UUID]Money{},
		Surcharges:      map[string]Money{"youth": 500},
		ShuttleFees:     map[string]Money{"arrival": 2500},
		KeyDeposit:      1000,
	}
}

func TestBuildChargesRegistrationAndSurcharge(t *testing.T) {
	reg := Registration{
		Event: enabledEvent(),
		Attendees: []Attendee{
			{ID: uuid.New(), FullName: "Ana", DepartmentCode: "youth"},
			{ID: uuid.New(), FullName: "Ben", DepartmentCode: "adult"},
		},
	}
	items, err := BuildCharges(reg, baseRates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	var total Money
	for _, it := range items {
		total += it.Amount
	}
	if total != 30500 {
		t.Fatalf("expected total 30500, got %d", total)
	}
	if items[1].Kind != ItemSurcharge || items[1].Amount != 500 {
		t.Fatalf("expected youth surcharge after Ana's fee, got %+v", items[1])
	}
}

func TestBuildChargesLodgingNights(t *testing.T) {
	optionID := uuid.New()
	rt := baseRates()
	rt.LodgingNightly[optionID] = 6000
	reg := Registration{
		Event: enabledEvent(),
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: optionID,
			CheckinDate:     date(2026, 7, 1),
			CheckoutDate:    date(2026, 7, 3),
			NumRooms:        1,
		}},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2 nights x $60
	if len(items) != 1 || items[0].Amount != 12000 || items[0].Qty != 2 {
		t.Fatalf("expected one 12000 room item over 2 nights, got %+v", items)
	}
}

func TestBuildChargesMultipleRooms(t *testing.T) {
	optionID := uuid.New()
	rt := baseRates()
	rt.LodgingNightly[optionID] = 6000
	reg := Registration{
		Event: enabledEvent(),
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: optionID,
			CheckinDate:     date(2026, 7, 1),
			CheckoutDate:    date(2026, 7, 3),
			NumRooms:        2,
		}},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Amount != 24000 {
		t.Fatalf("expected 24000 for 2 rooms x 2 nights, got %d", items[0].Amount)
	}
}

func TestBuildChargesInvalidStay(t *testing.T) {
	optionID := uuid.New()
	rt := baseRates()
	rt.LodgingNightly[optionID] = 6000
	reg := Registration{
		Event: enabledEvent(),
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: optionID,
			CheckinDate:     date(2026, 7, 3),
			CheckoutDate:    date(2026, 7, 3),
		}},
	}
	_, err := BuildCharges(reg, rt)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
}

func TestBuildChargesUnknownLodgingOption(t *testing.T) {
	reg := Registration{
		Event: enabledEvent(),
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: uuid.New(),
			CheckinDate:     date(2026, 7, 1),
			CheckoutDate:    date(2026, 7, 2),
		}},
	}
	_, err := BuildCharges(reg, baseRates())
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND error, got %v", err)
	}
}

func TestBuildChargesKeyDepositFallback(t *testing.T) {
	optionID := uuid.New()
	rt := baseRates()
	rt.LodgingNightly[optionID] = 6000
	reg := Registration{
		Event: enabledEvent(),
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: optionID,
			CheckinDate:     date(2026, 7, 1),
			CheckoutDate:    date(2026, 7, 2),
			NumKeys:         2,
		}},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected room and deposit items, got %d", len(items))
	}
	if items[1].Kind != ItemDeposit || items[1].Amount != 2000 {
		t.Fatalf("expected 2000 deposit from event default, got %+v", items[1])
	}
}

func TestBuildChargesMealsRespectStayWindow(t *testing.T) {
	sessionID := uuid.New()
	attendee := Attendee{
		ID:         uuid.New(),
		FullName:   "Ana",
		WantsMeals: true,
		StayFrom:   date(2026, 7, 1),
		StayTo:     date(2026, 7, 2),
	}
	rt := baseRates()
	rt.MealPrices[sessionID] = 1200
	reg := Registration{
		Event:     enabledEvent(),
		Attendees: []Attendee{attendee},
		MealSelections: []MealSelection{
			{AttendeeID: attendee.ID, MealSessionID: sessionID, MealDate: date(2026, 7, 2)},
			{AttendeeID: attendee.ID, MealSessionID: sessionID, MealDate: date(2026, 7, 4)},
		},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meals := 0
	for _, it := range items {
		if it.Kind == ItemMeal {
			meals++
		}
	}
	if meals != 1 {
		t.Fatalf("expected exactly 1 meal inside the stay window, got %d", meals)
	}
}

func TestBuildChargesMealsSkippedWithoutOptIn(t *testing.T) {
	sessionID := uuid.New()
	attendee := Attendee{ID: uuid.New(), FullName: "Ben", WantsMeals: false}
	rt := baseRates()
	rt.MealPrices[sessionID] = 1200
	reg := Registration{
		Event:     enabledEvent(),
		Attendees: []Attendee{attendee},
		MealSelections: []MealSelection{
			{AttendeeID: attendee.ID, MealSessionID: sessionID, MealDate: date(2026, 7, 2)},
		},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, it := range items {
		if it.Kind == ItemMeal {
			t.Fatalf("expected no meal items, got %+v", it)
		}
	}
}

func TestBuildChargesShuttleOverride(t *testing.T) {
	reg := Registration{
		Event: enabledEvent(),
		ShuttleRequests: []ShuttleRequest{
			{ID: uuid.New(), Direction: "arrival"},
			{ID: uuid.New(), Direction: "arrival", FeeOverride: 4000},
		},
	}
	items, err := BuildCharges(reg, baseRates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 shuttle items, got %d", len(items))
	}
	if items[0].Amount != 2500 || items[1].Amount != 4000 {
		t.Fatalf("expected 2500 then 4000, got %d and %d", items[0].Amount, items[1].Amount)
	}
}

func TestBuildChargesDisabledFeatures(t *testing.T) {
	ev := enabledEvent()
	ev.LodgingEnabled = false
	ev.MealsEnabled = false
	ev.ShuttleEnabled = false
	optionID := uuid.New()
	rt := baseRates()
	rt.LodgingNightly[optionID] = 6000
	reg := Registration{
		Event: ev,
		RoomBookings: []RoomBooking{{
			ID:              uuid.New(),
			LodgingOptionID: optionID,
			CheckinDate:     date(2026, 7, 1),
			CheckoutDate:    date(2026, 7, 3),
		}},
		ShuttleRequests: []ShuttleRequest{{ID: uuid.New(), Direction: "arrival"}},
	}
	items, err := BuildCharges(reg, rt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items with features disabled, got %d", len(items))
	}
}
