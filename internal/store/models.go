package store

import "github.com/jackc/pgx/v5/pgtype"

// Event is one conference or camp-meeting event row joined with its settings.
type Event struct {
	ID            pgtype.UUID
	Slug          string
	Name          string
	Description   pgtype.Text
	Location      pgtype.Text
	StartDate     pgtype.Date
	EndDate       pgtype.Date
	Timezone      string
	RegOpen       pgtype.Timestamptz
	RegClose      pgtype.Timestamptz
	Currency      string
	RoomKeyDeposit int64
	LodgingOption bool
	MealOption    bool
	ShuttleOption bool
	CreatedAt     pgtype.Timestamptz
}

// Department is global reference data used to tag attendees.
type Department struct {
	Code string
	Name string
}

// EventFee is one configured unit price for an event.
type EventFee struct {
	ID       pgtype.UUID
	EventID  pgtype.UUID
	Category string
	Code     string
	Label    string
	Unit     string
	Amount   int64
}

// DepartmentSurcharge is an event-specific override of a department fee.
type DepartmentSurcharge struct {
	EventID        pgtype.UUID
	DepartmentCode string
	Surcharge      int64
}

// LodgingOption determines room-night unit pricing for an event.
type LodgingOption struct {
	ID              pgtype.UUID
	EventID         pgtype.UUID
	Name            string
	NightlyRate     int64
	CapacityPerRoom int32
	AC              bool
	Notes           pgtype.Text
}

// MealSession is one priced meal offering on an event day.
type MealSession struct {
	ID       pgtype.UUID
	EventID  pgtype.UUID
	MealDate pgtype.Date
	MealType string
	Price    int64
	Capacity pgtype.Int4
}

// EventDiscount is one configured discount rule.
type EventDiscount struct {
	ID                 pgtype.UUID
	EventID            pgtype.UUID
	Code               pgtype.Text
	Label              string
	Kind               string
	Scope              string
	Value              int64
	BulkRateMultiplier pgtype.Int4
	MaxAmount          pgtype.Int8
	MinAttendees       pgtype.Int4
	RequiresRole       pgtype.Text
	StartsAt           pgtype.Timestamptz
	EndsAt             pgtype.Timestamptz
	IsStackable        bool
	Priority           int32
	Note               pgtype.Text
}

// Profile mirrors the externally managed user profile row.
type Profile struct {
	UserID   pgtype.UUID
	Email    string
	FullName string
	Role     string
}

// Registration is one group registration for an event.
type Registration struct {
	ID          pgtype.UUID
	EventID     pgtype.UUID
	CreatedBy   pgtype.UUID
	Status      string
	Notes       pgtype.Text
	AmountTotal pgtype.Int8
	CreatedAt   pgtype.Timestamptz
}

// Attendee is one participant under a registration.
type Attendee struct {
	ID             pgtype.UUID
	RegistrationID pgtype.UUID
	EventID        pgtype.UUID
	FullName       string
	DepartmentCode string
	Birthdate      pgtype.Date
	AgeYears       pgtype.Int4
	Email          pgtype.Text
	Phone          pgtype.Text
	ProfileID      pgtype.UUID
	QRCodeUID      string
	TicketStatus   string
	WantsMeals     bool
	CreatedAt      pgtype.Timestamptz
}

// AttendeeMealPass links an attendee to a meal session they opted into.
type AttendeeMealPass struct {
	ID            pgtype.UUID
	AttendeeID    pgtype.UUID
	MealSessionID pgtype.UUID
	MealDate      pgtype.Date
	Purchased     bool
}

// RoomBooking is a lodging reservation under a registration.
type RoomBooking struct {
	ID               pgtype.UUID
	RegistrationID   pgtype.UUID
	EventID          pgtype.UUID
	LodgingOptionID  pgtype.UUID
	CheckinDate      pgtype.Date
	CheckoutDate     pgtype.Date
	NumRooms         int32
	NumKeys          int32
	KeyDepositPerKey int64
	CreatedAt        pgtype.Timestamptz
}

// RoomBookingGuest assigns an attendee to a room booking.
type RoomBookingGuest struct {
	ID            pgtype.UUID
	RoomBookingID pgtype.UUID
	AttendeeID    pgtype.UUID
}

// ShuttleRequest is one airport shuttle leg under a registration.
type ShuttleRequest struct {
	ID             pgtype.UUID
	RegistrationID pgtype.UUID
	AttendeeID     pgtype.UUID
	Direction      string
	Airport        string
	Airline        pgtype.Text
	FlightNumber   pgtype.Text
	TravelTime     pgtype.Timestamptz
	Fee            int64
	Notes          pgtype.Text
}

// RegistrationItem is one ledger line produced by a pricing run.
type RegistrationItem struct {
	ID             pgtype.UUID
	RegistrationID pgtype.UUID
	Kind           string
	Description    string
	RefTable       pgtype.Text
	RefID          pgtype.UUID
	UnitPrice      int64
	Qty            int32
	Amount         int64
	Position       int32
	CreatedAt      pgtype.Timestamptz
}

// RegistrationAppliedDiscount is the audit row for one applied discount.
type RegistrationAppliedDiscount struct {
	ID             pgtype.UUID
	RegistrationID pgtype.UUID
	DiscountID     pgtype.UUID
	Scope          string
	AmountApplied  int64
	Reason         pgtype.Text
	Position       int32
	ComputedAt     pgtype.Timestamptz
}
