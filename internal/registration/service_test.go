package registration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/lock"
	"github.com/campmeet/backend-portal/internal/pricing"
	"github.com/campmeet/backend-portal/internal/rates"
	"github.com/campmeet/backend-portal/internal/store"
)

type stubQueries struct {
	registration store.Registration
	regErr       error
	attendees    []store.Attendee
	bookings     []store.RoomBooking
	guests       []store.RoomBookingGuest
	passes       []store.AttendeeMealPass
	shuttles     []store.ShuttleRequest
	profile      store.Profile
	profileErr   error
	discounts    []store.EventDiscount
	mealSessions []store.MealSession
}

func (s *stubQueries) GetRegistration(ctx context.Context, id pgtype.UUID) (store.Registration, error) {
	if s.regErr != nil {
		return store.Registration{}, s.regErr
	}
	return s.registration, nil
}

func (s *stubQueries) ListAttendees(ctx context.Context, registrationID pgtype.UUID) ([]store.Attendee, error) {
	return s.attendees, nil
}

func (s *stubQueries) ListRoomBookings(ctx context.Context, registrationID pgtype.UUID) ([]store.RoomBooking, error) {
	return s.bookings, nil
}

func (s *stubQueries) ListRoomBookingGuestsByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]store.RoomBookingGuest, error) {
	return s.guests, nil
}

func (s *stubQueries) ListMealPassesByRegistration(ctx context.Context, registrationID pgtype.UUID) ([]store.AttendeeMealPass, error) {
	return s.passes, nil
}

func (s *stubQueries) ListShuttleRequests(ctx context.Context, registrationID pgtype.UUID) ([]store.ShuttleRequest, error) {
	return s.shuttles, nil
}

func (s *stubQueries) GetProfile(ctx context.Context, userID pgtype.UUID) (store.Profile, error) {
	if s.profileErr != nil {
		return store.Profile{}, s.profileErr
	}
	return s.profile, nil
}

func (s *stubQueries) ListEventDiscounts(ctx context.Context, eventID pgtype.UUID) ([]store.EventDiscount, error) {
	return s.discounts, nil
}

func (s *stubQueries) ListMealSessions(ctx context.Context, eventID pgtype.UUID) ([]store.MealSession, error) {
	return s.mealSessions, nil
}

type stubResolver struct {
	snap rates.Snapshot
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, eventID uuid.UUID) (rates.Snapshot, error) {
	if s.err != nil {
		return rates.Snapshot{}, s.err
	}
	return s.snap, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
}

func testSnapshot(eventID uuid.UUID) rates.Snapshot {
	return rates.Snapshot{
		Event: pricing.Event{
			ID:             eventID,
			StartDate:      time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
			LodgingEnabled: true,
			MealsEnabled:   true,
			ShuttleEnabled: true,
		},
		Rates: pricing.RateTable{
			EventID:         eventID,
			Currency:        "USD",
			RegistrationFee: 5000,
			LodgingNightly:  map[uuid.UUID]pricing.Money{},
			MealPrices:      map[uuid.UUID]pricing.Money{},
			Surcharges:      map[string]pricing.Money{"youth": 500},
			ShuttleFees:     map[string]pricing.Money{"arrival": 2500},
		},
	}
}

func TestPreviewComputesCharges(t *testing.T) {
	eventID := uuid.New()
	regID := uuid.New()
	creator := uuid.New()
	stub := &stubQueries{
		registration: store.Registration{
			ID:        store.PgUUID(regID),
			EventID:   store.PgUUID(eventID),
			CreatedBy: store.PgUUID(creator),
			Status:    "draft",
		},
		attendees: []store.Attendee{
			{ID: store.PgUUID(uuid.New()), FullName: "Ana Silva", DepartmentCode: "youth"},
			{ID: store.PgUUID(uuid.New()), FullName: "Ben Ortiz", DepartmentCode: "adult"},
		},
		profile: store.Profile{Role: "member"},
	}
	svc := &Service{
		Queries: stub,
		Rates:   &stubResolver{snap: testSnapshot(eventID)},
		Now:     fixedClock,
	}

	res, err := svc.Preview(context.Background(), regID)
	require.NoError(t, err)
	// two registration fees plus one youth surcharge
	require.Equal(t, int64(5000*2+500), res.GrandTotal)
	require.Equal(t, "USD", res.Currency)
	require.Len(t, res.LineItems, 3)
	require.Empty(t, res.Discounts)
}

func TestPreviewAppliesDiscounts(t *testing.T) {
	eventID := uuid.New()
	regID := uuid.New()
	stub := &stubQueries{
		registration: store.Registration{
			ID:        store.PgUUID(regID),
			EventID:   store.PgUUID(eventID),
			CreatedBy: store.PgUUID(uuid.New()),
		},
		attendees: []store.Attendee{
			{ID: store.PgUUID(uuid.New()), FullName: "Ana Silva", DepartmentCode: "adult"},
			{ID: store.PgUUID(uuid.New()), FullName: "Ben Ortiz", DepartmentCode: "adult"},
			{ID: store.PgUUID(uuid.New()), FullName: "Cam Does", DepartmentCode: "adult"},
		},
		discounts: []store.EventDiscount{
			{
				ID:           store.PgUUID(uuid.New()),
				Label:        "group rate",
				Kind:         "percentage",
				Scope:        "registration",
				Value:        1000,
				MinAttendees: pgtype.Int4{Int32: 3, Valid: true},
				IsStackable:  true,
			},
			{
				ID:          store.PgUUID(uuid.New()),
				Label:       "early bird",
				Kind:        "fixed",
				Scope:       "registration",
				Value:       2000,
				IsStackable: true,
				Priority:    1,
			},
		},
	}
	snap := testSnapshot(eventID)
	svc := &Service{
		Queries: stub,
		Rates:   &stubResolver{snap: snap},
		Now:     fixedClock,
	}

	res, err := svc.Preview(context.Background(), regID)
	require.NoError(t, err)
	// 3 x 5000 charges, minus 10% (1500) and a flat 2000
	require.Equal(t, int64(15000-1500-2000), res.GrandTotal)
	require.Len(t, res.Discounts, 2)
}

func TestPreviewUnknownRegistration(t *testing.T) {
	svc := &Service{
		Queries: &stubQueries{regErr: pgx.ErrNoRows},
		Rates:   &stubResolver{},
		Now:     fixedClock,
	}

	_, err := svc.Preview(context.Background(), uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestPriceConflictWhenLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	regID := uuid.New()
	require.NoError(t, mr.Set(lockKey(regID), "held-elsewhere"))

	svc := &Service{
		Queries: &stubQueries{},
		Rates:   &stubResolver{},
		Locker:  lock.Locker{R: client},
		LockTTL: time.Second,
		Now:     fixedClock,
	}

	_, err := svc.Price(context.Background(), regID, TriggerAPI)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestGuestWindowsUnion(t *testing.T) {
	attendee := uuid.New()
	b1 := store.RoomBooking{
		ID:           store.PgUUID(uuid.New()),
		CheckinDate:  store.PgDate(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		CheckoutDate: store.PgDate(time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)),
	}
	b2 := store.RoomBooking{
		ID:           store.PgUUID(uuid.New()),
		CheckinDate:  store.PgDate(time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)),
		CheckoutDate: store.PgDate(time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)),
	}
	guests := []store.RoomBookingGuest{
		{RoomBookingID: b1.ID, AttendeeID: store.PgUUID(attendee)},
		{RoomBookingID: b2.ID, AttendeeID: store.PgUUID(attendee)},
	}

	windows := guestWindows([]store.RoomBooking{b1, b2}, guests)
	w, ok := windows[attendee]
	require.True(t, ok)
	require.Equal(t, store.DateValue(b1.CheckinDate), w.from)
	require.Equal(t, store.DateValue(b2.CheckoutDate), w.to)
}

func TestPreviewDraftComputesCharges(t *testing.T) {
	eventID := uuid.New()
	sessionID := uuid.New()
	stub := &stubQueries{
		mealSessions: []store.MealSession{
			{
				ID:       store.PgUUID(sessionID),
				EventID:  store.PgUUID(eventID),
				MealDate: store.PgDate(time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)),
				MealType: "lunch",
				Price:    800,
			},
		},
	}
	snap := testSnapshot(eventID)
	snap.Rates.MealPrices = map[uuid.UUID]pricing.Money{sessionID: 800}
	svc := &Service{
		Queries: stub,
		Rates:   &stubResolver{snap: snap},
		Now:     fixedClock,
	}

	res, err := svc.PreviewDraft(context.Background(), Draft{
		EventID: eventID,
		Attendees: []DraftAttendee{
			{FullName: "Ana Silva", DepartmentCode: "youth", WantsMeals: true, MealSessionIDs: []uuid.UUID{sessionID}},
			{FullName: "Ben Ortiz", DepartmentCode: "adult"},
		},
		ShuttleRequests: []DraftShuttleRequest{{Direction: "arrival"}},
	})
	require.NoError(t, err)
	// two fees, one youth surcharge, one lunch, one arrival shuttle
	require.Equal(t, int64(5000*2+500+800+2500), res.GrandTotal)
	require.Equal(t, "USD", res.Currency)
	require.Empty(t, res.Discounts)
}

func TestPreviewDraftAppliesDiscounts(t *testing.T) {
	eventID := uuid.New()
	stub := &stubQueries{
		discounts: []store.EventDiscount{
			{
				ID:           store.PgUUID(uuid.New()),
				Label:        "group rate",
				Kind:         "percentage",
				Scope:        "registration",
				Value:        1000,
				MinAttendees: pgtype.Int4{Int32: 3, Valid: true},
				IsStackable:  true,
			},
			{
				ID:          store.PgUUID(uuid.New()),
				Label:       "early bird",
				Kind:        "fixed",
				Scope:       "registration",
				Value:       2000,
				IsStackable: true,
				Priority:    1,
			},
		},
	}
	svc := &Service{
		Queries: stub,
		Rates:   &stubResolver{snap: testSnapshot(eventID)},
		Now:     fixedClock,
	}

	res, err := svc.PreviewDraft(context.Background(), Draft{
		EventID: eventID,
		Attendees: []DraftAttendee{
			{FullName: "Ana Silva", DepartmentCode: "adult"},
			{FullName: "Ben Ortiz", DepartmentCode: "adult"},
			{FullName: "Cam Does", DepartmentCode: "adult"},
		},
	})
	require.NoError(t, err)
	// 3 x 5000 charges, minus 10% (1500) and a flat 2000
	require.Equal(t, int64(15000-1500-2000), res.GrandTotal)
	require.Len(t, res.Discounts, 2)
	require.Equal(t, int64(1500), res.Discounts[0].Amount)
	require.Equal(t, int64(2000), res.Discounts[1].Amount)
}

func TestPreviewDraftUnknownMealSession(t *testing.T) {
	eventID := uuid.New()
	svc := &Service{
		Queries: &stubQueries{},
		Rates:   &stubResolver{snap: testSnapshot(eventID)},
		Now:     fixedClock,
	}

	_, err := svc.PreviewDraft(context.Background(), Draft{
		EventID: eventID,
		Attendees: []DraftAttendee{
			{FullName: "Ana Silva", DepartmentCode: "adult", WantsMeals: true, MealSessionIDs: []uuid.UUID{uuid.New()}},
		},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestPreviewDraftGuestIndexOutOfRange(t *testing.T) {
	eventID := uuid.New()
	svc := &Service{
		Queries: &stubQueries{},
		Rates:   &stubResolver{snap: testSnapshot(eventID)},
		Now:     fixedClock,
	}

	_, err := svc.PreviewDraft(context.Background(), Draft{
		EventID: eventID,
		Attendees: []DraftAttendee{
			{FullName: "Ana Silva", DepartmentCode: "adult"},
		},
		RoomBookings: []DraftRoomBooking{
			{
				LodgingOptionID: uuid.New(),
				CheckinDate:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				CheckoutDate:    time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC),
				GuestIndexes:    []int32{4},
			},
		},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
}

func TestLedgerParamsKeepEmissionOrder(t *testing.T) {
	res := pricing.Result{
		LineItems: []pricing.LineItem{
			{Kind: pricing.ItemRegistrationFee, Description: "Registration fee", Amount: 5000},
			{Kind: pricing.ItemSurcharge, Description: "Youth surcharge", Amount: 500},
			{Kind: pricing.ItemShuttle, Description: "Arrival shuttle", Amount: 2500},
		},
		Discounts: []pricing.Applied{
			{DiscountID: uuid.New(), Scope: pricing.ScopeRegistration, Amount: 1500},
			{DiscountID: uuid.New(), Scope: pricing.ScopeRegistration, Amount: 2000},
		},
	}

	items, discounts := ledgerParams(res)
	require.Len(t, items, 3)
	for i, it := range items {
		require.Equal(t, int32(i), it.Position)
		require.Equal(t, res.LineItems[i].Description, it.Description)
	}
	require.Len(t, discounts, 2)
	for i, d := range discounts {
		require.Equal(t, int32(i), d.Position)
		require.Equal(t, store.PgUUID(res.Discounts[i].DiscountID), d.DiscountID)
	}
}
