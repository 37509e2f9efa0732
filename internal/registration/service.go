package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/lock"
	"github.com/campmeet/backend-portal/internal/obs"
	"github.com/campmeet/backend-portal/internal/pricing"
	"github.com/campmeet/backend-portal/internal/rates"
	"github.com/campmeet/backend-portal/internal/store"
)

// Pricing run triggers used as metric labels.
const (
	TriggerAPI     = "api"
	TriggerPreview = "preview"
	TriggerTask    = "task"
)

type queryProvider interface {
	GetRegistration(ctx context.Context, id pgtype.UUID) (store.Registration, error)
	ListAttendees(ctx context.Context, registrationID pgtype.UUID) ([]store.Attendee, error)
	ListRoomBookings(ctx context.Context, registrationID pgtype.UUID) ([]store.RoomBooking, error)
	ListRoomBookingGuestsByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]store.RoomBookingGuest, error)
	ListMealPassesByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]store.AttendeeMealPass, error)
	ListShuttleRequests(ctx context.Context, registrationID pgtype.UUID) ([]store.ShuttleRequest, error)
	GetProfile(ctx context.Context, userID pgtype.UUID) (store.Profile, error)
	ListEventDiscounts(ctx context.Context, eventID pgtype.UUID) ([]store.EventDiscount, error)
	ListMealSessions(ctx context.Context, eventID pgtype.UUID) ([]store.MealSession, error)
}

type snapshotResolver interface {
	Resolve(ctx context.Context, eventID uuid.UUID) (rates.Snapshot, error)
}

// Service runs the pricing pipeline against a registration and persists the
// resulting ledger.
type Service struct {
	Queries queryProvider
	Store   *store.Queries
	Pool    *pgxpool.Pool
	Rates   snapshotResolver
	Locker  lock.Locker
	LockTTL time.Duration
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func lockKey(registrationID uuid.UUID) string {
	return "pricing:registration:" + registrationID.String()
}

// Preview computes what a registration would cost right now without touching
// the stored ledger.
func (s *Service) Preview(ctx context.Context, registrationID uuid.UUID) (pricing.Result, error) {
	return s.compute(ctx, TriggerPreview, func(ctx context.Context) (pricing.Result, error) {
		return s.computeRegistration(ctx, registrationID)
	})
}

// PreviewDraft prices an unsaved registration so clients can show live totals
// while the form is still being filled in. Nothing is persisted.
func (s *Service) PreviewDraft(ctx context.Context, draft Draft) (pricing.Result, error) {
	return s.compute(ctx, TriggerPreview, func(ctx context.Context) (pricing.Result, error) {
		return s.computeDraft(ctx, draft)
	})
}

// Price recomputes the registration's charges and discounts and replaces its
// persisted ledger atomically. Concurrent runs for the same registration are
// rejected rather than queued.
func (s *Service) Price(ctx context.Context, registrationID uuid.UUID, trigger string) (pricing.Result, error) {
	var result pricing.Result
	err := s.Locker.TryWithLock(ctx, lockKey(registrationID), s.LockTTL, func(ctx context.Context) error {
		res, err := s.compute(ctx, trigger, func(ctx context.Context) (pricing.Result, error) {
			return s.computeRegistration(ctx, registrationID)
		})
		if err != nil {
			return err
		}
		if err := s.persist(ctx, registrationID, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return pricing.Result{}, common.Conflict("registration is already being priced", err)
	}
	return result, err
}

func (s *Service) compute(ctx context.Context, trigger string, fn func(context.Context) (pricing.Result, error)) (pricing.Result, error) {
	started := s.now()
	res, err := fn(ctx)
	if obs.PricingRunTotal != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		obs.PricingRunTotal.WithLabelValues(trigger, outcome).Inc()
		obs.PricingRunDuration.WithLabelValues(trigger).Observe(obs.DurationMillis(time.Since(started)))
	}
	return res, err
}

func (s *Service) computeRegistration(ctx context.Context, registrationID uuid.UUID) (pricing.Result, error) {
	input, eventID, windows, err := s.loadInput(ctx, registrationID)
	if err != nil {
		return pricing.Result{}, err
	}
	snap, err := s.Rates.Resolve(ctx, eventID)
	if err != nil {
		return pricing.Result{}, err
	}
	input.Event = snap.Event
	fillStayWindows(&input, windows)
	return s.priceInput(ctx, eventID, snap, input)
}

func (s *Service) computeDraft(ctx context.Context, draft Draft) (pricing.Result, error) {
	snap, err := s.Rates.Resolve(ctx, draft.EventID)
	if err != nil {
		return pricing.Result{}, err
	}

	sessions, err := s.Queries.ListMealSessions(ctx, store.PgUUID(draft.EventID))
	if err != nil {
		return pricing.Result{}, fmt.Errorf("load meal sessions: %w", err)
	}
	sessionDates := make(map[uuid.UUID]time.Time, len(sessions))
	for _, m := range sessions {
		sessionDates[store.UUIDValue(m.ID)] = store.DateValue(m.MealDate)
	}

	var role string
	if draft.CreatedBy != uuid.Nil {
		if profile, err := s.Queries.GetProfile(ctx, store.PgUUID(draft.CreatedBy)); err == nil {
			role = profile.Role
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return pricing.Result{}, fmt.Errorf("load creator profile: %w", err)
		}
	}

	input, windows, err := draftInput(draft, role, sessionDates)
	if err != nil {
		return pricing.Result{}, err
	}
	input.Event = snap.Event
	fillStayWindows(&input, windows)
	return s.priceInput(ctx, draft.EventID, snap, input)
}

// priceInput runs the shared charge and discount pipeline over an assembled
// pricing input, whether it came from stored rows or an inline draft.
func (s *Service) priceInput(ctx context.Context, eventID uuid.UUID, snap rates.Snapshot, input pricing.Registration) (pricing.Result, error) {
	items, err := pricing.BuildCharges(input, snap.Rates)
	if err != nil {
		return pricing.Result{}, err
	}

	rows, err := s.Queries.ListEventDiscounts(ctx, store.PgUUID(eventID))
	if err != nil {
		return pricing.Result{}, fmt.Errorf("load discounts: %w", err)
	}
	rules := make([]pricing.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, ruleFromRow(row))
	}

	applied := pricing.Evaluate(items, pricing.EvalContext{
		AttendeeCount: len(input.Attendees),
		CreatorRole:   input.CreatorRole,
	}, rules, s.now())
	if obs.DiscountAppliedTotal != nil {
		kinds := make(map[uuid.UUID]pricing.Kind, len(rules))
		for _, r := range rules {
			kinds[r.ID] = r.Kind
		}
		for _, a := range applied {
			obs.DiscountAppliedTotal.WithLabelValues(string(kinds[a.DiscountID]), string(a.Scope)).Inc()
		}
	}

	res := pricing.Aggregate(items, applied)
	res.Currency = snap.Rates.Currency
	return res, nil
}

// loadInput assembles the pricing input from the registration's stored
// selections. The event snapshot is attached by the caller.
func (s *Service) loadInput(ctx context.Context, registrationID uuid.UUID) (pricing.Registration, uuid.UUID, map[uuid.UUID]stayWindow, error) {
	regID := store.PgUUID(registrationID)

	reg, err := s.Queries.GetRegistration(ctx, regID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Registration{}, uuid.Nil, nil, common.NotFound("registration", err)
		}
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load registration: %w", err)
	}

	attendees, err := s.Queries.ListAttendees(ctx, regID)
	if err != nil {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load attendees: %w", err)
	}
	bookings, err := s.Queries.ListRoomBookings(ctx, regID)
	if err != nil {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load room bookings: %w", err)
	}
	guests, err := s.Queries.ListRoomBookingGuestsByRegistration(ctx, regID)
	if err != nil {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load room guests: %w", err)
	}
	passes, err := s.Queries.ListMealPassesByRegistration(ctx, regID)
	if err != nil {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load meal passes: %w", err)
	}
	shuttles, err := s.Queries.ListShuttleRequests(ctx, regID)
	if err != nil {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load shuttle requests: %w", err)
	}

	var role string
	if profile, err := s.Queries.GetProfile(ctx, reg.CreatedBy); err == nil {
		role = profile.Role
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return pricing.Registration{}, uuid.Nil, nil, fmt.Errorf("load creator profile: %w", err)
	}

	input := pricing.Registration{
		ID:          registrationID,
		CreatorRole: role,
	}
	for _, a := range attendees {
		input.Attendees = append(input.Attendees, pricing.Attendee{
			ID:             store.UUIDValue(a.ID),
			FullName:       a.FullName,
			DepartmentCode: a.DepartmentCode,
			WantsMeals:     a.WantsMeals,
		})
	}
	for _, b := range bookings {
		input.RoomBookings = append(input.RoomBookings, pricing.RoomBooking{
			ID:               store.UUIDValue(b.ID),
			LodgingOptionID:  store.UUIDValue(b.LodgingOptionID),
			CheckinDate:      store.DateValue(b.CheckinDate),
			CheckoutDate:     store.DateValue(b.CheckoutDate),
			NumRooms:         b.NumRooms,
			NumKeys:          b.NumKeys,
			KeyDepositPerKey: b.KeyDepositPerKey,
		})
	}
	for _, p := range passes {
		input.MealSelections = append(input.MealSelections, pricing.MealSelection{
			AttendeeID:    store.UUIDValue(p.AttendeeID),
			MealSessionID: store.UUIDValue(p.MealSessionID),
			MealDate:      store.DateValue(p.MealDate),
		})
	}
	for _, sh := range shuttles {
		input.ShuttleRequests = append(input.ShuttleRequests, pricing.ShuttleRequest{
			ID:          store.UUIDValue(sh.ID),
			Direction:   sh.Direction,
			FeeOverride: sh.Fee,
		})
	}
	return input, store.UUIDValue(reg.EventID), guestWindows(bookings, guests), nil
}

type stayWindow struct {
	from time.Time
	to   time.Time
}

// guestWindows maps each attendee to the union of the booking windows they
// are a guest of.
func guestWindows(bookings []store.RoomBooking, guests []store.RoomBookingGuest) map[uuid.UUID]stayWindow {
	byBooking := make(map[uuid.UUID]store.RoomBooking, len(bookings))
	for _, b := range bookings {
		byBooking[store.UUIDValue(b.ID)] = b
	}
	windows := make(map[uuid.UUID]stayWindow)
	for _, g := range guests {
		b, ok := byBooking[store.UUIDValue(g.RoomBookingID)]
		if !ok {
			continue
		}
		from := store.DateValue(b.CheckinDate)
		to := store.DateValue(b.CheckoutDate)
		id := store.UUIDValue(g.AttendeeID)
		w, seen := windows[id]
		if !seen {
			windows[id] = stayWindow{from: from, to: to}
			continue
		}
		if from.Before(w.from) {
			w.from = from
		}
		if to.After(w.to) {
			w.to = to
		}
		windows[id] = w
	}
	return windows
}

// fillStayWindows bounds each attendee's meal eligibility. Room guests get
// their booking window, everyone else the full event range.
func fillStayWindows(input *pricing.Registration, windows map[uuid.UUID]stayWindow) {
	for i := range input.Attendees {
		a := &input.Attendees[i]
		if w, ok := windows[a.ID]; ok {
			a.StayFrom, a.StayTo = w.from, w.to
			continue
		}
		a.StayFrom, a.StayTo = input.Event.StartDate, input.Event.EndDate
	}
}

// Draft is an unsaved registration described inline. Attendees are referenced
// from bookings by slice index since they have no ids yet.
type Draft struct {
	EventID         uuid.UUID
	CreatedBy       uuid.UUID
	Attendees       []DraftAttendee
	RoomBookings    []DraftRoomBooking
	ShuttleRequests []DraftShuttleRequest
}

type DraftAttendee struct {
	FullName       string
	DepartmentCode string
	WantsMeals     bool
	MealSessionIDs []uuid.UUID
}

type DraftRoomBooking struct {
	LodgingOptionID  uuid.UUID
	CheckinDate      time.Time
	CheckoutDate     time.Time
	NumRooms         int32
	NumKeys          int32
	KeyDepositPerKey int64
	GuestIndexes     []int32
}

type DraftShuttleRequest struct {
	Direction string
	Fee       int64
}

// draftInput turns an inline draft into a pricing input. Draft attendees get
// throwaway ids so stay windows and meal selections can reference them.
func draftInput(draft Draft, role string, sessionDates map[uuid.UUID]time.Time) (pricing.Registration, map[uuid.UUID]stayWindow, error) {
	input := pricing.Registration{CreatorRole: role}
	attendeeIDs := make([]uuid.UUID, len(draft.Attendees))
	for i, a := range draft.Attendees {
		id := uuid.New()
		attendeeIDs[i] = id
		input.Attendees = append(input.Attendees, pricing.Attendee{
			ID:             id,
			FullName:       a.FullName,
			DepartmentCode: a.DepartmentCode,
			WantsMeals:     a.WantsMeals,
		})
		for _, sid := range a.MealSessionIDs {
			date, ok := sessionDates[sid]
			if !ok {
				return pricing.Registration{}, nil, common.NotFound("meal session", nil)
			}
			input.MealSelections = append(input.MealSelections, pricing.MealSelection{
				AttendeeID:    id,
				MealSessionID: sid,
				MealDate:      date,
			})
		}
	}
	windows := make(map[uuid.UUID]stayWindow)
	for _, b := range draft.RoomBookings {
		input.RoomBookings = append(input.RoomBookings, pricing.RoomBooking{
			ID:               uuid.New(),
			LodgingOptionID:  b.LodgingOptionID,
			CheckinDate:      b.CheckinDate,
			CheckoutDate:     b.CheckoutDate,
			NumRooms:         b.NumRooms,
			NumKeys:          b.NumKeys,
			KeyDepositPerKey: b.KeyDepositPerKey,
		})
		for _, idx := range b.GuestIndexes {
			if idx < 0 || int(idx) >= len(attendeeIDs) {
				return pricing.Registration{}, nil, common.Validation("guest_attendee_indexes", "index out of range")
			}
			id := attendeeIDs[idx]
			w, seen := windows[id]
			if !seen {
				windows[id] = stayWindow{from: b.CheckinDate, to: b.CheckoutDate}
				continue
			}
			if b.CheckinDate.Before(w.from) {
				w.from = b.CheckinDate
			}
			if b.CheckoutDate.After(w.to) {
				w.to = b.CheckoutDate
			}
			windows[id] = w
		}
	}
	for _, sh := range draft.ShuttleRequests {
		input.ShuttleRequests = append(input.ShuttleRequests, pricing.ShuttleRequest{
			ID:          uuid.New(),
			Direction:   sh.Direction,
			FeeOverride: sh.Fee,
		})
	}
	return input, windows, nil
}

func (s *Service) persist(ctx context.Context, registrationID uuid.UUID, res pricing.Result) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Store.WithTx(tx)

	items, discounts := ledgerParams(res)
	if err := qtx.ReplaceRegistrationLedger(ctx, store.PgUUID(registrationID), items, discounts, res.GrandTotal); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return tx.Commit(ctx)
}

// ledgerParams maps a pricing result onto ledger rows, numbering each row in
// the order the engine emitted it so reads reproduce the run exactly.
func ledgerParams(res pricing.Result) ([]store.LedgerItemParams, []store.LedgerDiscountParams) {
	items := make([]store.LedgerItemParams, 0, len(res.LineItems))
	for i, it := range res.LineItems {
		items = append(items, store.LedgerItemParams{
			Kind:        string(it.Kind),
			Description: it.Description,
			RefTable:    store.PgText(it.RefTable),
			RefID:       store.PgUUID(it.RefID),
			UnitPrice:   it.UnitPrice,
			Qty:         it.Qty,
			Amount:      it.Amount,
			Position:    int32(i),
		})
	}
	discounts := make([]store.LedgerDiscountParams, 0, len(res.Discounts))
	for i, d := range res.Discounts {
		discounts = append(discounts, store.LedgerDiscountParams{
			DiscountID:    store.PgUUID(d.DiscountID),
			Scope:         string(d.Scope),
			AmountApplied: d.Amount,
			Reason:        store.PgText(d.Reason),
			Position:      int32(i),
			ComputedAt:    store.PgTimestamptz(d.ComputedAt),
		})
	}
	return items, discounts
}

func ruleFromRow(row store.EventDiscount) pricing.Rule {
	return pricing.Rule{
		ID:           store.UUIDValue(row.ID),
		Code:         store.TextValue(row.Code),
		Label:        row.Label,
		Kind:         pricing.Kind(row.Kind),
		Scope:        pricing.Scope(row.Scope),
		Value:        row.Value,
		BulkRateBps:  store.Int4Ptr(row.BulkRateMultiplier),
		MinAttendees: store.Int4Ptr(row.MinAttendees),
		RequiresRole: store.TextValue(row.RequiresRole),
		StartsAt:     store.TimePtr(row.StartsAt),
		EndsAt:       store.TimePtr(row.EndsAt),
		Stackable:    row.IsStackable,
		Priority:     row.Priority,
		MaxAmount:    store.Int8Ptr(row.MaxAmount),
	}
}
