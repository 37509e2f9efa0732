package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// GetProfile loads a user profile by its auth user id.
func (q *Queries) GetProfile(ctx context.Context, userID pgtype.UUID) (Profile, error) {
	var p Profile
	err := q.db.QueryRow(ctx, `SELECT user_id, email, full_name, role
		FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Email, &p.FullName, &p.Role)
	return p, err
}

// CreateRegistrationParams carries the inputs for registration creation.
type CreateRegistrationParams struct {
	EventID   pgtype.UUID
	CreatedBy pgtype.UUID
	Notes     pgtype.Text
}

// CreateRegistration inserts a draft registration with a zero total.
func (q *Queries) CreateRegistration(ctx context.Context, arg CreateRegistrationParams) (Registration, error) {
	var r Registration
	err := q.db.QueryRow(ctx, `INSERT INTO registrations (event_id, created_by, status, notes, amount_total)
		VALUES ($1, $2, 'draft', $3, 0)
		RETURNING id, event_id, created_by, status, notes, amount_total, created_at`,
		arg.EventID, arg.CreatedBy, arg.Notes).
		Scan(&r.ID, &r.EventID, &r.CreatedBy, &r.Status, &r.Notes, &r.AmountTotal, &r.CreatedAt)
	return r, err
}

// GetRegistration loads a registration row.
func (q *Queries) GetRegistration(ctx context.Context, id pgtype.UUID) (Registration, error) {
	var r Registration
	err := q.db.QueryRow(ctx, `SELECT id, event_id, created_by, status, notes, amount_total, created_at
		FROM registrations WHERE id = $1`, id).
		Scan(&r.ID, &r.EventID, &r.CreatedBy, &r.Status, &r.Notes, &r.AmountTotal, &r.CreatedAt)
	return r, err
}

// UpdateRegistrationStatus transitions a registration between statuses.
func (q *Queries) UpdateRegistrationStatus(ctx context.Context, id pgtype.UUID, status string) error {
	tag, err := q.db.Exec(ctx, `UPDATE registrations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListRegistrationIDsByEvent returns every registration id for an event.
// The reprice worker walks this list.
func (q *Queries) ListRegistrationIDsByEvent(ctx context.Context, eventID pgtype.UUID) ([]pgtype.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT id FROM registrations WHERE event_id = $1 ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pgtype.UUID
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CreateAttendeeParams carries the inputs for attendee creation.
type CreateAttendeeParams struct {
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
	WantsMeals     bool
}

// CreateAttendee inserts an attendee onto a registration.
func (q *Queries) CreateAttendee(ctx context.Context, arg CreateAttendeeParams) (Attendee, error) {
	var a Attendee
	err := q.db.QueryRow(ctx, `INSERT INTO attendees
		(registration_id, event_id, full_name, department_code, birthdate, age_years,
		 email, phone, profile_id, qr_code_uid, ticket_status, wants_meals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
		RETURNING id, registration_id, event_id, full_name, department_code, birthdate, age_years,
		          email, phone, profile_id, qr_code_uid, ticket_status, wants_meals, created_at`,
		arg.RegistrationID, arg.EventID, arg.FullName, arg.DepartmentCode, arg.Birthdate,
		arg.AgeYears, arg.Email, arg.Phone, arg.ProfileID, arg.QRCodeUID, arg.WantsMeals).
		Scan(&a.ID, &a.RegistrationID, &a.EventID, &a.FullName, &a.DepartmentCode, &a.Birthdate,
			&a.AgeYears, &a.Email, &a.Phone, &a.ProfileID, &a.QRCodeUID, &a.TicketStatus,
			&a.WantsMeals, &a.CreatedAt)
	return a, err
}

// ListAttendees returns a registration's attendees in insertion order.
func (q *Queries) ListAttendees(ctx context.Context, registrationID pgtype.UUID) ([]Attendee, error) {
	rows, err := q.db.Query(ctx, `SELECT id, registration_id, event_id, full_name, department_code,
		birthdate, age_years, email, phone, profile_id, qr_code_uid, ticket_status, wants_meals, created_at
		FROM attendees WHERE registration_id = $1 ORDER BY created_at, id`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attendee
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.ID, &a.RegistrationID, &a.EventID, &a.FullName, &a.DepartmentCode,
			&a.Birthdate, &a.AgeYears, &a.Email, &a.Phone, &a.ProfileID, &a.QRCodeUID,
			&a.TicketStatus, &a.WantsMeals, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttendee removes an attendee and cascades its meal passes and guest links.
func (q *Queries) DeleteAttendee(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateMealPass records a meal session selection for an attendee.
func (q *Queries) CreateMealPass(ctx context.Context, attendeeID, sessionID pgtype.UUID, mealDate pgtype.Date) (AttendeeMealPass, error) {
	var p AttendeeMealPass
	err := q.db.QueryRow(ctx, `INSERT INTO attendee_meal_passes (attendee_id, meal_session_id, meal_date, purchased)
		VALUES ($1, $2, $3, false)
		RETURNING id, attendee_id, meal_session_id, meal_date, purchased`,
		attendeeID, sessionID, mealDate).
		Scan(&p.ID, &p.AttendeeID, &p.MealSessionID, &p.MealDate, &p.Purchased)
	return p, err
}

// ListMealPassesByRegistration returns every meal pass across a registration's attendees.
func (q *Queries) ListMealPassesByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]AttendeeMealPass, error) {
	rows, err := q.db.Query(ctx, `SELECT p.id, p.attendee_id, p.meal_session_id, p.meal_date, p.purchased
		FROM attendee_meal_passes p
		JOIN attendees a ON a.id = p.attendee_id
		WHERE a.registration_id = $1
		ORDER BY p.meal_date, p.id`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendeeMealPass
	for rows.Next() {
		var p AttendeeMealPass
		if err := rows.Scan(&p.ID, &p.AttendeeID, &p.MealSessionID, &p.MealDate, &p.Purchased); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateRoomBookingParams carries the inputs for room booking creation.
type CreateRoomBookingParams struct {
	RegistrationID   pgtype.UUID
	EventID          pgtype.UUID
	LodgingOptionID  pgtype.UUID
	CheckinDate      pgtype.Date
	CheckoutDate     pgtype.Date
	NumRooms         int32
	NumKeys          int32
	KeyDepositPerKey int64
}

// CreateRoomBooking inserts a room booking onto a registration.
func (q *Queries) CreateRoomBooking(ctx context.Context, arg CreateRoomBookingParams) (RoomBooking, error) {
	var b RoomBooking
	err := q.db.QueryRow(ctx, `INSERT INTO room_bookings
		(registration_id, event_id, lodging_option_id, checkin_date, checkout_date,
		 num_rooms, num_keys, key_deposit_per_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registration_id, event_id, lodging_option_id, checkin_date, checkout_date,
		          num_rooms, num_keys, key_deposit_per_key, created_at`,
		arg.RegistrationID, arg.EventID, arg.LodgingOptionID, arg.CheckinDate, arg.CheckoutDate,
		arg.NumRooms, arg.NumKeys, arg.KeyDepositPerKey).
		Scan(&b.ID, &b.RegistrationID, &b.EventID, &b.LodgingOptionID, &b.CheckinDate,
			&b.CheckoutDate, &b.NumRooms, &b.NumKeys, &b.KeyDepositPerKey, &b.CreatedAt)
	return b, err
}

// ListRoomBookings returns a registration's room bookings in insertion order.
func (q *Queries) ListRoomBookings(ctx context.Context, registrationID pgtype.UUID) ([]RoomBooking, error) {
	rows, err := q.db.Query(ctx, `SELECT id, registration_id, event_id, lodging_option_id,
		checkin_date, checkout_date, num_rooms, num_keys, key_deposit_per_key, created_at
		FROM room_bookings WHERE registration_id = $1 ORDER BY created_at, id`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoomBooking
	for rows.Next() {
		var b RoomBooking
		if err := rows.Scan(&b.ID, &b.RegistrationID, &b.EventID, &b.LodgingOptionID, &b.CheckinDate,
			&b.CheckoutDate, &b.NumRooms, &b.NumKeys, &b.KeyDepositPerKey, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddRoomBookingGuest links an attendee to a room booking.
func (q *Queries) AddRoomBookingGuest(ctx context.Context, bookingID, attendeeID pgtype.UUID) (RoomBookingGuest, error) {
	var g RoomBookingGuest
	err := q.db.QueryRow(ctx, `INSERT INTO room_booking_guests (room_booking_id, attendee_id)
		VALUES ($1, $2)
		RETURNING id, room_booking_id, attendee_id`, bookingID, attendeeID).
		Scan(&g.ID, &g.RoomBookingID, &g.AttendeeID)
	return g, err
}

// ListRoomBookingGuestsByRegistration returns every guest link across a registration's bookings.
func (q *Queries) ListRoomBookingGuestsByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]RoomBookingGuest, error) {
	rows, err := q.db.Query(ctx, `SELECT g.id, g.room_booking_id, g.attendee_id
		FROM room_booking_guests g
		JOIN room_bookings b ON b.id = g.room_booking_id
		WHERE b.registration_id = $1
		ORDER BY g.id`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoomBookingGuest
	for rows.Next() {
		var g RoomBookingGuest
		if err := rows.Scan(&g.ID, &g.RoomBookingID, &g.AttendeeID); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateShuttleRequestParams carries the inputs for shuttle request creation.
type CreateShuttleRequestParams struct {
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

// CreateShuttleRequest inserts a shuttle request onto a registration.
func (q *Queries) CreateShuttleRequest(ctx context.Context, arg CreateShuttleRequestParams) (ShuttleRequest, error) {
	var s ShuttleRequest
	err := q.db.QueryRow(ctx, `INSERT INTO shuttle_requests
		(registration_id, attendee_id, direction, airport, airline, flight_number, travel_time, fee, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, registration_id, attendee_id, direction, airport, airline, flight_number,
		          travel_time, fee, notes`,
		arg.RegistrationID, arg.AttendeeID, arg.Direction, arg.Airport, arg.Airline,
		arg.FlightNumber, arg.TravelTime, arg.Fee, arg.Notes).
		Scan(&s.ID, &s.RegistrationID, &s.AttendeeID, &s.Direction, &s.Airport, &s.Airline,
			&s.FlightNumber, &s.TravelTime, &s.Fee, &s.Notes)
	return s, err
}

// ListShuttleRequests returns a registration's shuttle requests.
func (q *Queries) ListShuttleRequests(ctx context.Context, registrationID pgtype.UUID) ([]ShuttleRequest, error) {
	rows, err := q.db.Query(ctx, `SELECT id, registration_id, attendee_id, direction, airport,
		airline, flight_number, travel_time, fee, notes
		FROM shuttle_requests WHERE registration_id = $1 ORDER BY id`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShuttleRequest
	for rows.Next() {
		var s ShuttleRequest
		if err := rows.Scan(&s.ID, &s.RegistrationID, &s.AttendeeID, &s.Direction, &s.Airport,
			&s.Airline, &s.FlightNumber, &s.TravelTime, &s.Fee, &s.Notes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
