package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/pricing"
	"github.com/campmeet/backend-portal/internal/store"
)

// FeeCategory values for event_fees rows.
const (
	CategoryRegistration = "registration"
	CategorySurcharge    = "surcharge"
	CategoryShuttle      = "shuttle"
)

// BaseFeeCode marks the per-attendee registration fee row.
const BaseFeeCode = "base"

type queryProvider interface {
	GetEventByID(ctx context.Context, id pgtype.UUID) (store.Event, error)
	ListEventFees(ctx context.Context, eventID pgtype.UUID) ([]store.EventFee, error)
	ListLodgingOptions(ctx context.Context, eventID pgtype.UUID) ([]store.LodgingOption, error)
	ListMealSessions(ctx context.Context, eventID pgtype.UUID) ([]store.MealSession, error)
	ListDepartmentSurcharges(ctx context.Context, eventID pgtype.UUID) ([]store.DepartmentSurcharge, error)
}

// Snapshot is everything charge building needs about an event, resolved once
// and cached as a unit so a reprice sees one consistent rate state.
type Snapshot struct {
	Event pricing.Event     `json:"event"`
	Rates pricing.RateTable `json:"rates"`
}

// Resolver assembles rate snapshots from event configuration.
type Resolver struct {
	queries queryProvider
	cache   *Cache
}

// NewResolver constructs a Resolver. The cache may be nil.
func NewResolver(queries queryProvider, cache *Cache) *Resolver {
	return &Resolver{queries: queries, cache: cache}
}

func cacheKey(eventID uuid.UUID) string {
	return "rates:event:" + eventID.String()
}

// Resolve loads the rate snapshot for an event, serving from cache when fresh.
func (r *Resolver) Resolve(ctx context.Context, eventID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	if ok, err := r.cache.GetJSON(ctx, cacheKey(eventID), &snap); err == nil && ok {
		return snap, nil
	}
	snap, err := r.build(ctx, eventID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.cache.SetJSON(ctx, cacheKey(eventID), snap); err != nil {
		return snap, nil
	}
	return snap, nil
}

// Invalidate drops an event's cached snapshot after its rates change.
func (r *Resolver) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return r.cache.Delete(ctx, cacheKey(eventID))
}

func (r *Resolver) build(ctx context.Context, eventID uuid.UUID) (Snapshot, error) {
	id := store.PgUUID(eventID)

	ev, err := r.queries.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, common.NotFound("event", err)
		}
		return Snapshot{}, fmt.Errorf("load event: %w", err)
	}

	fees, err := r.queries.ListEventFees(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load fees: %w", err)
	}
	lodging, err := r.queries.ListLodgingOptions(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load lodging options: %w", err)
	}
	meals, err := r.queries.ListMealSessions(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load meal sessions: %w", err)
	}
	overrides, err := r.queries.ListDepartmentSurcharges(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load surcharges: %w", err)
	}

	table := pricing.RateTable{
		EventID:        eventID,
		Currency:       ev.Currency,
		LodgingNightly: make(map[uuid.UUID]pricing.Money, len(lodging)),
		MealPrices:     make(map[uuid.UUID]pricing.Money, len(meals)),
		Surcharges:     make(map[string]pricing.Money),
		ShuttleFees:    make(map[string]pricing.Money),
		KeyDeposit:     ev.RoomKeyDeposit,
	}
	for _, f := range fees {
		switch f.Category {
		case CategoryRegistration:
			if f.Code == BaseFeeCode {
				table.RegistrationFee = f.Amount
			}
		case CategorySurcharge:
			table.Surcharges[f.Code] = f.Amount
		case CategoryShuttle:
			table.ShuttleFees[f.Code] = f.Amount
		}
	}
	// Per-event department overrides win over the fee table defaults.
	for _, o := range overrides {
		table.Surcharges[o.DepartmentCode] = o.Surcharge
	}
	for _, l := range lodging {
		table.LodgingNightly[store.UUIDValue(l.ID)] = l.NightlyRate
	}
	for _, m := range meals {
		table.MealPrices[store.UUIDValue(m.ID)] = m.Price
	}

	return Snapshot{
		Event: pricing.Event{
			ID:             eventID,
			StartDate:      store.DateValue(ev.StartDate),
			EndDate:        store.DateValue(ev.EndDate),
			LodgingEnabled: ev.LodgingOption,
			MealsEnabled:   ev.MealOption,
			ShuttleEnabled: ev.ShuttleOption,
		},
		Rates: table,
	}, nil
}
