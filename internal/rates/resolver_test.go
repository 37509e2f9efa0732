package rates

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
	"github.com/campmeet/backend-portal/internal/store"
)

type stubQueries struct {
	event      store.Event
	eventErr   error
	fees       []store.EventFee
	lodging    []store.LodgingOption
	meals      []store.MealSession
	overrides  []store.DepartmentSurcharge
	eventCalls int
}

func (s *stubQueries) GetEventByID(ctx context.Context, id pgtype.UUID) (store.Event, error) {
	s.eventCalls++
	if s.eventErr != nil {
		return store.Event{}, s.eventErr
	}
	return s.event, nil
}

func (s *stubQueries) ListEventFees(ctx context.Context, eventID pgtype.UUID) ([]store.EventFee, error) {
	return s.fees, nil
}

func (s *stubQueries) ListLodgingOptions(ctx context.Context, eventID pgtype.UUID) ([]store.LodgingOption, error) {
	return s.lodging, nil
}

func (s *stubQueries) ListMealSessions(ctx context.Context, eventID pgtype.UUID) ([]store.MealSession, error) {
	return s.meals, nil
}

func (s *stubQueries) ListDepartmentSurcharges(ctx context.Context, eventID pgtype.UUID) ([]store.DepartmentSurcharge, error) {
	return s.overrides, nil
}

func testEvent(id uuid.UUID) store.Event {
	return store.Event{
		ID:             store.PgUUID(id),
		Slug:           "summer-camp",
		Name:           "Summer Camp",
		Timezone:       "UTC",
		StartDate:      store.PgDate(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:        store.PgDate(time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)),
		Currency:       "USD",
		RoomKeyDeposit: 1000,
		LodgingOption:  true,
		MealOption:     true,
		ShuttleOption:  true,
	}
}

func TestResolveBuildsRateTable(t *testing.T) {
	eventID := uuid.New()
	roomID := uuid.New()
	sessionID := uuid.New()
	stub := &stubQueries{
		event: testEvent(eventID),
		fees: []store.EventFee{
			{Category: CategoryRegistration, Code: BaseFeeCode, Amount: 15000},
			{Category: CategorySurcharge, Code: "youth", Amount: 500},
			{Category: CategoryShuttle, Code: "arrival", Amount: 2500},
		},
		lodging:   []store.LodgingOption{{ID: store.PgUUID(roomID), NightlyRate: 6000}},
		meals:     []store.MealSession{{ID: store.PgUUID(sessionID), Price: 1200}},
		overrides: []store.DepartmentSurcharge{{DepartmentCode: "youth", Surcharge: 800}},
	}
	r := NewResolver(stub, nil)

	snap, err := r.Resolve(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, int64(15000), snap.Rates.RegistrationFee)
	require.Equal(t, int64(6000), snap.Rates.LodgingNightly[roomID])
	require.Equal(t, int64(1200), snap.Rates.MealPrices[sessionID])
	require.Equal(t, int64(2500), snap.Rates.ShuttleFees["arrival"])
	require.Equal(t, int64(1000), snap.Rates.KeyDeposit)
	require.Equal(t, "USD", snap.Rates.Currency)
	require.True(t, snap.Event.LodgingEnabled)
}

func TestResolveDepartmentOverrideWins(t *testing.T) {
	eventID := uuid.New()
	stub := &stubQueries{
		event: testEvent(eventID),
		fees: []store.EventFee{
			{Category: CategorySurcharge, Code: "youth", Amount: 500},
		},
		overrides: []store.DepartmentSurcharge{{DepartmentCode: "youth", Surcharge: 800}},
	}
	r := NewResolver(stub, nil)

	snap, err := r.Resolve(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, int64(800), snap.Rates.Surcharges["youth"])
}

func TestResolveUnknownEvent(t *testing.T) {
	stub := &stubQueries{eventErr: pgx.ErrNoRows}
	r := NewResolver(stub, nil)

	_, err := r.Resolve(context.Background(), uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestResolveCachesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	eventID := uuid.New()
	stub := &stubQueries{event: testEvent(eventID)}
	r := NewResolver(stub, NewCache(client, time.Minute))

	_, err := r.Resolve(context.Background(), eventID)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, 1, stub.eventCalls)

	require.NoError(t, r.Invalidate(context.Background(), eventID))
	_, err = r.Resolve(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, 2, stub.eventCalls)
}
