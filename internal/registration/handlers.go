package registration

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
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/rates"
	"github.com/campmeet/backend-portal/internal/store"
)

// Handler exposes registration lifecycle and pricing endpoints.
type Handler struct {
	Q        *store.Queries
	Svc      *Service
	Validate *validator.Validate
}

type createRegistrationPayload struct {
	EventID string  `json:"eventId" validate:"required,uuid4"`
	Notes   *string `json:"notes"`
}

type attendeePayload struct {
	FullName       string     `json:"fullName" validate:"required"`
	DepartmentCode string     `json:"departmentCode" validate:"required"`
	Birthdate      *time.Time `json:"birthdate"`
	AgeYears       *int32     `json:"ageYears"`
	Email          *string    `json:"email" validate:"omitempty,email"`
	Phone          *string    `json:"phone"`
	WantsMeals     bool       `json:"wantsMeals"`
	MealSessionIDs []string   `json:"mealSessionIds" validate:"dive,uuid4"`
}

type roomBookingPayload struct {
	LodgingOptionID  string    `json:"lodgingOptionId" validate:"required,uuid4"`
	CheckinDate      time.Time `json:"checkinDate" validate:"required"`
	CheckoutDate     time.Time `json:"checkoutDate" validate:"required"`
	NumRooms         int32     `json:"numRooms"`
	NumKeys          int32     `json:"numKeys"`
	KeyDepositPerKey *int64    `json:"keyDepositPerKey"`
	GuestAttendeeIDs []string  `json:"guestAttendeeIds" validate:"dive,uuid4"`
}

type draftAttendeePayload struct {
	FullName       string   `json:"fullName" validate:"required"`
	DepartmentCode string   `json:"departmentCode" validate:"required"`
	WantsMeals     bool     `json:"wantsMeals"`
	MealSessionIDs []string `json:"mealSessionIds" validate:"dive,uuid4"`
}

type draftRoomBookingPayload struct {
	LodgingOptionID      string    `json:"lodgingOptionId" validate:"required,uuid4"`
	CheckinDate          time.Time `json:"checkinDate" validate:"required"`
	CheckoutDate         time.Time `json:"checkoutDate" validate:"required"`
	NumRooms             int32     `json:"numRooms"`
	NumKeys              int32     `json:"numKeys"`
	KeyDepositPerKey     *int64    `json:"keyDepositPerKey"`
	GuestAttendeeIndexes []int32   `json:"guestAttendeeIndexes"`
}

type draftShuttlePayload struct {
	Direction string `json:"direction" validate:"required,oneof=arrival departure"`
	Fee       *int64 `json:"fee"`
}

type previewDraftPayload struct {
	EventID         string                    `json:"eventId" validate:"required,uuid4"`
	Attendees       []draftAttendeePayload    `json:"attendees" validate:"dive"`
	RoomBookings    []draftRoomBookingPayload `json:"roomBookings" validate:"dive"`
	ShuttleRequests []draftShuttlePayload     `json:"shuttleRequests" validate:"dive"`
}

func (p previewDraftPayload) toDraft() (Draft, error) {
	eventID, err := uuid.Parse(p.EventID)
	if err != nil {
		return Draft{}, common.Validation("eventId", "must be a valid uuid")
	}
	draft := Draft{EventID: eventID}
	for _, a := range p.Attendees {
		da := DraftAttendee{
			FullName:       a.FullName,
			DepartmentCode: a.DepartmentCode,
			WantsMeals:     a.WantsMeals,
		}
		for _, raw := range a.MealSessionIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return Draft{}, common.Validation("mealSessionIds", "must be valid uuids")
			}
			da.MealSessionIDs = append(da.MealSessionIDs, id)
		}
		draft.Attendees = append(draft.Attendees, da)
	}
	for _, b := range p.RoomBookings {
		if !b.CheckoutDate.After(b.CheckinDate) {
			return Draft{}, common.Validation("checkout_date", "must be after checkin_date")
		}
		optionID, err := uuid.Parse(b.LodgingOptionID)
		if err != nil {
			return Draft{}, common.Validation("lodgingOptionId", "must be a valid uuid")
		}
		var deposit int64
		if b.KeyDepositPerKey != nil {
			deposit = *b.KeyDepositPerKey
		}
		draft.RoomBookings = append(draft.RoomBookings, DraftRoomBooking{
			LodgingOptionID:  optionID,
			CheckinDate:      b.CheckinDate,
			CheckoutDate:     b.CheckoutDate,
			NumRooms:         b.NumRooms,
			NumKeys:          b.NumKeys,
			KeyDepositPerKey: deposit,
			GuestIndexes:     b.GuestAttendeeIndexes,
		})
	}
	for _, sh := range p.ShuttleRequests {
		var fee int64
		if sh.Fee != nil {
			fee = *sh.Fee
		}
		draft.ShuttleRequests = append(draft.ShuttleRequests, DraftShuttleRequest{
			Direction: sh.Direction,
			Fee:       fee,
		})
	}
	return draft, nil
}

type shuttleRequestPayload struct {
	AttendeeID   string     `json:"attendeeId" validate:"required,uuid4"`
	Direction    string     `json:"direction" validate:"required,oneof=arrival departure"`
	Airport      string     `json:"airport" validate:"required"`
	Airline      *string    `json:"airline"`
	FlightNumber *string    `json:"flightNumber"`
	TravelTime   *time.Time `json:"travelTime"`
	Fee          *int64     `json:"fee"`
	Notes        *string    `json:"notes"`
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
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.Validation(name, "must be a valid uuid")
	}
	return id, nil
}

// Create opens a draft registration for the authenticated user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload createRegistrationPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	eventID, err := store.ToUUID(payload.EventID)
	if err != nil {
		common.WriteError(w, common.Validation("eventId", "must be a valid uuid"))
		return
	}
	creator, err := store.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	var notes string
	if payload.Notes != nil {
		notes = *payload.Notes
	}
	reg, err := h.Q.CreateRegistration(r.Context(), store.CreateRegistrationParams{
		EventID:   eventID,
		CreatedBy: creator,
		Notes:     store.PgText(notes),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.WriteError(w, common.NotFound("event", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create registration", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": registrationView(reg)})
}

// Get returns a registration with its priced ledger.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	reg, err := h.Q.GetRegistration(r.Context(), store.PgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("registration", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load registration", nil)
		return
	}
	items, err := h.Q.ListRegistrationItems(r.Context(), reg.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load ledger", nil)
		return
	}
	discounts, err := h.Q.ListAppliedDiscounts(r.Context(), reg.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load discounts", nil)
		return
	}
	attendees, err := h.Q.ListAttendees(r.Context(), reg.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load attendees", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"registration":     registrationView(reg),
		"attendees":        attendeeViews(attendees),
		"lineItems":        itemViews(items),
		"appliedDiscounts": discountViews(discounts),
	}})
}

// AddAttendee registers one participant and reprices the registration.
func (h *Handler) AddAttendee(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload attendeePayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	reg, err := h.Q.GetRegistration(r.Context(), store.PgUUID(regID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("registration", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load registration", nil)
		return
	}
	var email, phone string
	if payload.Email != nil {
		email = *payload.Email
	}
	if payload.Phone != nil {
		phone = *payload.Phone
	}
	attendee, err := h.Q.CreateAttendee(r.Context(), store.CreateAttendeeParams{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		FullName:       payload.FullName,
		DepartmentCode: payload.DepartmentCode,
		Birthdate:      pgDatePtr(payload.Birthdate),
		AgeYears:       store.PgInt4Ptr(payload.AgeYears),
		Email:          store.PgText(email),
		Phone:          store.PgText(phone),
		QRCodeUID:      uuid.NewString(),
		WantsMeals:     payload.WantsMeals,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.WriteError(w, common.Validation("departmentCode", "unknown department"))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to add attendee", nil)
		return
	}
	if len(payload.MealSessionIDs) > 0 {
		sessions, err := h.Q.ListMealSessions(r.Context(), reg.EventID)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load meal sessions", nil)
			return
		}
		dates := make(map[uuid.UUID]pgtype.Date, len(sessions))
		for _, sess := range sessions {
			dates[store.UUIDValue(sess.ID)] = sess.MealDate
		}
		for _, raw := range payload.MealSessionIDs {
			sessionID, err := store.ToUUID(raw)
			if err != nil {
				common.WriteError(w, common.Validation("mealSessionIds", "must be valid uuids"))
				return
			}
			date, ok := dates[store.UUIDValue(sessionID)]
			if !ok {
				common.WriteError(w, common.NotFound("meal session", nil))
				return
			}
			if _, err := h.Q.CreateMealPass(r.Context(), attendee.ID, sessionID, date); err != nil {
				common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to record meal selection", nil)
				return
			}
		}
	}
	h.reprice(w, r, regID, map[string]any{"attendee": attendeeView(attendee)})
}

// AddRoomBooking reserves rooms for the registration and reprices it.
func (h *Handler) AddRoomBooking(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload roomBookingPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if !payload.CheckoutDate.After(payload.CheckinDate) {
		common.WriteError(w, common.Validation("checkout_date", "must be after checkin_date"))
		return
	}
	reg, err := h.Q.GetRegistration(r.Context(), store.PgUUID(regID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("registration", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load registration", nil)
		return
	}
	optionID, err := store.ToUUID(payload.LodgingOptionID)
	if err != nil {
		common.WriteError(w, common.Validation("lodgingOptionId", "must be a valid uuid"))
		return
	}
	snap, err := h.Svc.Rates.Resolve(r.Context(), store.UUIDValue(reg.EventID))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := lodgingOptionForEvent(snap, store.UUIDValue(optionID)); err != nil {
		common.WriteError(w, err)
		return
	}
	var deposit int64
	if payload.KeyDepositPerKey != nil {
		deposit = *payload.KeyDepositPerKey
	}
	numRooms := payload.NumRooms
	if numRooms <= 0 {
		numRooms = 1
	}
	booking, err := h.Q.CreateRoomBooking(r.Context(), store.CreateRoomBookingParams{
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		LodgingOptionID:  optionID,
		CheckinDate:      store.PgDate(payload.CheckinDate),
		CheckoutDate:     store.PgDate(payload.CheckoutDate),
		NumRooms:         numRooms,
		NumKeys:          payload.NumKeys,
		KeyDepositPerKey: deposit,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.WriteError(w, common.NotFound("lodging option", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to add room booking", nil)
		return
	}
	for _, raw := range payload.GuestAttendeeIDs {
		attendeeID, err := store.ToUUID(raw)
		if err != nil {
			common.WriteError(w, common.Validation("guestAttendeeIds", "must be valid uuids"))
			return
		}
		if _, err := h.Q.AddRoomBookingGuest(r.Context(), booking.ID, attendeeID); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to link room guest", nil)
			return
		}
	}
	h.reprice(w, r, regID, map[string]any{"roomBooking": bookingView(booking)})
}

// AddShuttleRequest records a shuttle leg and reprices the registration.
func (h *Handler) AddShuttleRequest(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload shuttleRequestPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	reg, err := h.Q.GetRegistration(r.Context(), store.PgUUID(regID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("registration", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load registration", nil)
		return
	}
	attendeeID, err := store.ToUUID(payload.AttendeeID)
	if err != nil {
		common.WriteError(w, common.Validation("attendeeId", "must be a valid uuid"))
		return
	}
	var fee int64
	if payload.Fee != nil {
		fee = *payload.Fee
	}
	var airline, flight, notes string
	if payload.Airline != nil {
		airline = *payload.Airline
	}
	if payload.FlightNumber != nil {
		flight = *payload.FlightNumber
	}
	if payload.Notes != nil {
		notes = *payload.Notes
	}
	request, err := h.Q.CreateShuttleRequest(r.Context(), store.CreateShuttleRequestParams{
		RegistrationID: reg.ID,
		AttendeeID:     attendeeID,
		Direction:      payload.Direction,
		Airport:        payload.Airport,
		Airline:        store.PgText(airline),
		FlightNumber:   store.PgText(flight),
		TravelTime:     store.PgTimestamptzPtr(payload.TravelTime),
		Fee:            fee,
		Notes:          store.PgText(notes),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.WriteError(w, common.NotFound("attendee", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to add shuttle request", nil)
		return
	}
	h.reprice(w, r, regID, map[string]any{"shuttleRequest": shuttleView(request)})
}

// RemoveAttendee deletes an attendee and reprices the registration.
func (h *Handler) RemoveAttendee(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	attendeeID, err := urlUUID(r, "attendeeID")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Q.DeleteAttendee(r.Context(), store.PgUUID(attendeeID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("attendee", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to remove attendee", nil)
		return
	}
	h.reprice(w, r, regID, map[string]any{})
}

// Price runs the pricing pipeline and persists the new ledger.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Svc.Price(r.Context(), regID, TriggerAPI)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// Preview computes the price without persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Svc.Preview(r.Context(), regID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// PreviewDraft prices an inline draft that has not been saved yet, so forms
// can show a running total while selections change.
func (h *Handler) PreviewDraft(w http.ResponseWriter, r *http.Request) {
	var payload previewDraftPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	draft, err := payload.toDraft()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if userID, ok := common.UserID(r.Context()); ok {
		if creator, err := uuid.Parse(userID); err == nil {
			draft.CreatedBy = creator
		}
	}
	res, err := h.Svc.PreviewDraft(r.Context(), draft)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=submitted cancelled"`
}

// UpdateStatus submits or cancels a registration. Submitting reprices first
// so the committed total reflects the current selections.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	regID, err := urlUUID(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload statusPayload
	if err := h.decode(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.Status == "submitted" {
		if _, err := h.Svc.Price(r.Context(), regID, TriggerAPI); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	if err := h.Q.UpdateRegistrationStatus(r.Context(), store.PgUUID(regID), payload.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.WriteError(w, common.NotFound("registration", err))
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update status", nil)
		return
	}
	reg, err := h.Q.GetRegistration(r.Context(), store.PgUUID(regID))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load registration", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": registrationView(reg)})
}

// reprice runs the synchronous pipeline after a mutation and responds with the
// mutated entity plus the fresh totals.
func (h *Handler) reprice(w http.ResponseWriter, r *http.Request, regID uuid.UUID, extra map[string]any) {
	res, err := h.Svc.Price(r.Context(), regID, TriggerAPI)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	body := map[string]any{"pricing": res}
	for k, v := range extra {
		body[k] = v
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": body})
}

// lodgingOptionForEvent rejects bookings whose option belongs to a different
// event. The foreign key alone cannot catch the mismatch, and a booking that
// slips through would make every later pricing run fail.
func lodgingOptionForEvent(snap rates.Snapshot, optionID uuid.UUID) error {
	if _, ok := snap.Rates.LodgingNightly[optionID]; !ok {
		return common.Validation("lodgingOptionId", "does not belong to this event")
	}
	return nil
}

func pgDatePtr(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return store.PgDate(*t)
}
