package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campmeet/backend-portal/internal/common"
)

// RateTable maps an event's configured unit prices. Department surcharges
// already fold event-specific overrides over the fee-table defaults.
type RateTable struct {
	EventID         uuid.UUID
	Currency        string
	RegistrationFee Money
	LodgingNightly  map[uuid.UUID]Money
	MealPrices      map[uuid.UUID]Money
	Surcharges      map[string]Money
	ShuttleFees     map[string]Money
	KeyDeposit      Money
}

// Event carries the per-event inputs the charge builder needs.
type Event struct {
	ID             uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	LodgingEnabled bool
	MealsEnabled   bool
	ShuttleEnabled bool
}

// Attendee is one registered participant. StayFrom/StayTo bound the meal
// sessions the attendee can opt into: the room-booking window when the
// attendee is a room guest, otherwise the event range.
type Attendee struct {
	ID             uuid.UUID
	FullName       string
	DepartmentCode string
	WantsMeals     bool
	StayFrom       time.Time
	StayTo         time.Time
}

// RoomBooking describes a lodging reservation spanning one or more rooms.
type RoomBooking struct {
	ID               uuid.UUID
	LodgingOptionID  uuid.UUID
	CheckinDate      time.Time
	CheckoutDate     time.Time
	NumRooms         int32
	NumKeys          int32
	KeyDepositPerKey Money
}

// MealSelection links an attendee to a meal session they opted into.
type MealSelection struct {
	AttendeeID    uuid.UUID
	MealSessionID uuid.UUID
	MealDate      time.Time
}

// ShuttleRequest is one airport shuttle leg. A positive FeeOverride replaces
// the direction fee from the rate table.
type ShuttleRequest struct {
	ID          uuid.UUID
	Direction   string
	FeeOverride Money
}

// Registration is the full pricing input for one registration.
type Registration struct {
	ID              uuid.UUID
	Event           Event
	Attendees       []Attendee
	RoomBookings    []RoomBooking
	MealSelections  []MealSelection
	ShuttleRequests []ShuttleRequest
	CreatorRole     string
}

// BuildCharges expands a registration's selections into itemized line
// charges using the event's rate table. Items are emitted in a fixed order
// so repeated runs over unchanged inputs produce an identical ledger.
func BuildCharges(reg Registration, rt RateTable) ([]LineItem, error) {
	items := make([]LineItem, 0, len(reg.Attendees)*2+len(reg.RoomBookings)*2)

	for _, a := range reg.Attendees {
		items = append(items, LineItem{
			Kind:        ItemRegistrationFee,
			Description: fmt.Sprintf("Registration fee (%s)", a.FullName),
			RefTable:    "attendees",
			RefID:       a.ID,
			UnitPrice:   rt.RegistrationFee,
			Qty:         1,
			Amount:      rt.RegistrationFee,
		})
		if surcharge := rt.Surcharges[a.DepartmentCode]; surcharge > 0 {
			items = append(items, LineItem{
				Kind:        ItemSurcharge,
				Description: fmt.Sprintf("Department surcharge %s (%s)", a.DepartmentCode, a.FullName),
				RefTable:    "attendees",
				RefID:       a.ID,
				UnitPrice:   surcharge,
				Qty:         1,
				Amount:      surcharge,
			})
		}
	}

	if reg.Event.LodgingEnabled {
		for _, rb := range reg.RoomBookings {
			nights := int32(rb.CheckoutDate.Sub(rb.CheckinDate).Hours() / 24)
			if nights <= 0 {
				return nil, common.Validation("checkout_date", "must be after checkin_date")
			}
			rate, ok := rt.LodgingNightly[rb.LodgingOptionID]
			if !ok {
				return nil, common.NotFound("lodging option", nil)
			}
			rooms := rb.NumRooms
			if rooms <= 0 {
				rooms = 1
			}
			items = append(items, LineItem{
				Kind:        ItemRoomNight,
				Description: fmt.Sprintf("Lodging (%d night%s)", nights, plural(nights)),
				RefTable:    "room_bookings",
				RefID:       rb.ID,
				UnitPrice:   rate,
				Qty:         nights,
				Amount:      Money(nights) * rate * Money(rooms),
			})
			if rb.NumKeys > 0 {
				deposit := rb.KeyDepositPerKey
				if deposit <= 0 {
					deposit = rt.KeyDeposit
				}
				if deposit > 0 {
					items = append(items, LineItem{
						Kind:        ItemDeposit,
						Description: fmt.Sprintf("Room key deposit (%d key%s)", rb.NumKeys, plural(rb.NumKeys)),
						RefTable:    "room_bookings",
						RefID:       rb.ID,
						UnitPrice:   deposit,
						Qty:         rb.NumKeys,
						Amount:      deposit * Money(rb.NumKeys),
					})
				}
			}
		}
	}

	if reg.Event.MealsEnabled {
		attendees := make(map[uuid.UUID]Attendee, len(reg.Attendees))
		for _, a := range reg.Attendees {
			attendees[a.ID] = a
		}
		for _, sel := range reg.MealSelections {
			a, ok := attendees[sel.AttendeeID]
			if !ok || !a.WantsMeals || !a.InStayWindow(sel.MealDate) {
				continue
			}
			price, ok := rt.MealPrices[sel.MealSessionID]
			if !ok {
				return nil, common.NotFound("meal session", nil)
			}
			items = append(items, LineItem{
				Kind:        ItemMeal,
				Description: fmt.Sprintf("Meal (%s)", a.FullName),
				RefTable:    "attendee_meal_passes",
				RefID:       sel.MealSessionID,
				UnitPrice:   price,
				Qty:         1,
				Amount:      price,
			})
		}
	}

	if reg.Event.ShuttleEnabled {
		for _, sr := range reg.ShuttleRequests {
			fee := sr.FeeOverride
			if fee <= 0 {
				fee = rt.ShuttleFees[sr.Direction]
			}
			if fee <= 0 {
				continue
			}
			items = append(items, LineItem{
				Kind:        ItemShuttle,
				Description: fmt.Sprintf("Airport shuttle (%s)", sr.Direction),
				RefTable:    "shuttle_requests",
				RefID:       sr.ID,
				UnitPrice:   fee,
				Qty:         1,
				Amount:      fee,
			})
		}
	}

	return items, nil
}

// InStayWindow reports whether a meal session date falls inside the
// attendee's stay window, bounds inclusive.
func (a Attendee) InStayWindow(mealDate time.Time) bool {
	if a.StayFrom.IsZero() || a.StayTo.IsZero() {
		return true
	}
	return !mealDate.Before(a.StayFrom) && !mealDate.After(a.StayTo)
}

func plural(n int32) string {
	if n == 1 {
		return ""
	}
	return "s"
}
