package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const eventColumns = `e.id, e.slug, e.name, e.description, e.location, e.start_date, e.end_date,
	e.timezone, e.reg_open, e.reg_close,
	s.currency, s.room_key_deposit, s.lodging_option, s.meal_option, s.shuttle_option,
	e.created_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Slug, &e.Name, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.Timezone, &e.RegOpen, &e.RegClose,
		&e.Currency, &e.RoomKeyDeposit, &e.LodgingOption, &e.MealOption, &e.ShuttleOption,
		&e.CreatedAt,
	)
	return e, err
}

// GetEventByID loads an event joined with its settings.
func (q *Queries) GetEventByID(ctx context.Context, id pgtype.UUID) (Event, error) {
	row := q.db.QueryRow(ctx, `SELECT `+eventColumns+`
		FROM events e
		JOIN event_settings s ON s.event_id = e.id
		WHERE e.id = $1`, id)
	return scanEvent(row)
}

// GetEventBySlug loads an event by its URL slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	row := q.db.QueryRow(ctx, `SELECT `+eventColumns+`
		FROM events e
		JOIN event_settings s ON s.event_id = e.id
		WHERE e.slug = $1`, slug)
	return scanEvent(row)
}

// ListEvents returns events ordered by start date, newest first.
func (q *Queries) ListEvents(ctx context.Context, limit, offset int32) ([]Event, error) {
	rows, err := q.db.Query(ctx, `SELECT `+eventColumns+`
		FROM events e
		JOIN event_settings s ON s.event_id = e.id
		ORDER BY e.start_date DESC, e.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the total number of events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&n)
	return n, err
}

// ListEventFees returns the event's configured fee rows ordered by category and code.
func (q *Queries) ListEventFees(ctx context.Context, eventID pgtype.UUID) ([]EventFee, error) {
	rows, err := q.db.Query(ctx, `SELECT id, event_id, category, code, label, unit, amount
		FROM event_fees WHERE event_id = $1
		ORDER BY category, code`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventFee
	for rows.Next() {
		var f EventFee
		if err := rows.Scan(&f.ID, &f.EventID, &f.Category, &f.Code, &f.Label, &f.Unit, &f.Amount); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertEventFeeParams carries the inputs for fee creation and update.
type UpsertEventFeeParams struct {
	EventID  pgtype.UUID
	Category string
	Code     string
	Label    string
	Unit     string
	Amount   int64
}

// UpsertEventFee inserts or replaces a fee row keyed by (event, category, code).
func (q *Queries) UpsertEventFee(ctx context.Context, arg UpsertEventFeeParams) (EventFee, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO event_fees (event_id, category, code, label, unit, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, category, code)
		DO UPDATE SET label = EXCLUDED.label, unit = EXCLUDED.unit, amount = EXCLUDED.amount
		RETURNING id, event_id, category, code, label, unit, amount`,
		arg.EventID, arg.Category, arg.Code, arg.Label, arg.Unit, arg.Amount)
	var f EventFee
	err := row.Scan(&f.ID, &f.EventID, &f.Category, &f.Code, &f.Label, &f.Unit, &f.Amount)
	return f, err
}

// DeleteEventFee removes a fee row.
func (q *Queries) DeleteEventFee(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM event_fees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListLodgingOptions returns an event's lodging options.
func (q *Queries) ListLodgingOptions(ctx context.Context, eventID pgtype.UUID) ([]LodgingOption, error) {
	rows, err := q.db.Query(ctx, `SELECT id, event_id, name, nightly_rate, capacity_per_room, ac, notes
		FROM lodging_options WHERE event_id = $1 ORDER BY name, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LodgingOption
	for rows.Next() {
		var o LodgingOption
		if err := rows.Scan(&o.ID, &o.EventID, &o.Name, &o.NightlyRate, &o.CapacityPerRoom, &o.AC, &o.Notes); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListMealSessions returns an event's meal sessions ordered by date.
func (q *Queries) ListMealSessions(ctx context.Context, eventID pgtype.UUID) ([]MealSession, error) {
	rows, err := q.db.Query(ctx, `SELECT id, event_id, meal_date, meal_type, price, capacity
		FROM meal_sessions WHERE event_id = $1 ORDER BY meal_date, meal_type, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MealSession
	for rows.Next() {
		var m MealSession
		if err := rows.Scan(&m.ID, &m.EventID, &m.MealDate, &m.MealType, &m.Price, &m.Capacity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListDepartmentSurcharges returns the event's per-department surcharge overrides.
func (q *Queries) ListDepartmentSurcharges(ctx context.Context, eventID pgtype.UUID) ([]DepartmentSurcharge, error) {
	rows, err := q.db.Query(ctx, `SELECT event_id, department_code, surcharge
		FROM event_department_surcharges WHERE event_id = $1 ORDER BY department_code`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DepartmentSurcharge
	for rows.Next() {
		var s DepartmentSurcharge
		if err := rows.Scan(&s.EventID, &s.DepartmentCode, &s.Surcharge); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const discountColumns = `id, event_id, code, label, kind, scope, value, bulk_rate_multiplier,
	max_amount, min_attendees, requires_role, starts_at, ends_at, is_stackable, priority, note`

func scanDiscount(row pgx.Row) (EventDiscount, error) {
	var d EventDiscount
	err := row.Scan(
		&d.ID, &d.EventID, &d.Code, &d.Label, &d.Kind, &d.Scope, &d.Value, &d.BulkRateMultiplier,
		&d.MaxAmount, &d.MinAttendees, &d.RequiresRole, &d.StartsAt, &d.EndsAt, &d.IsStackable,
		&d.Priority, &d.Note,
	)
	return d, err
}

// ListEventDiscounts returns an event's discount rules in priority order.
// Creation order breaks ties so evaluation stays stable.
func (q *Queries) ListEventDiscounts(ctx context.Context, eventID pgtype.UUID) ([]EventDiscount, error) {
	rows, err := q.db.Query(ctx, `SELECT `+discountColumns+`
		FROM event_discounts WHERE event_id = $1
		ORDER BY priority, created_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventDiscount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetEventDiscount loads a single discount rule.
func (q *Queries) GetEventDiscount(ctx context.Context, id pgtype.UUID) (EventDiscount, error) {
	row := q.db.QueryRow(ctx, `SELECT `+discountColumns+` FROM event_discounts WHERE id = $1`, id)
	return scanDiscount(row)
}

// CreateEventDiscountParams carries the inputs for discount creation.
type CreateEventDiscountParams struct {
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

// CreateEventDiscount inserts a discount rule.
func (q *Queries) CreateEventDiscount(ctx context.Context, arg CreateEventDiscountParams) (EventDiscount, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO event_discounts
		(event_id, code, label, kind, scope, value, bulk_rate_multiplier, max_amount,
		 min_attendees, requires_role, starts_at, ends_at, is_stackable, priority, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+discountColumns,
		arg.EventID, arg.Code, arg.Label, arg.Kind, arg.Scope, arg.Value, arg.BulkRateMultiplier,
		arg.MaxAmount, arg.MinAttendees, arg.RequiresRole, arg.StartsAt, arg.EndsAt,
		arg.IsStackable, arg.Priority, arg.Note)
	return scanDiscount(row)
}

// UpdateEventDiscountParams carries the inputs for a full discount update.
type UpdateEventDiscountParams struct {
	ID pgtype.UUID
	CreateEventDiscountParams
}

// UpdateEventDiscount replaces a discount rule's attributes.
func (q *Queries) UpdateEventDiscount(ctx context.Context, arg UpdateEventDiscountParams) (EventDiscount, error) {
	row := q.db.QueryRow(ctx, `UPDATE event_discounts SET
		code = $2, label = $3, kind = $4, scope = $5, value = $6, bulk_rate_multiplier = $7,
		max_amount = $8, min_attendees = $9, requires_role = $10, starts_at = $11, ends_at = $12,
		is_stackable = $13, priority = $14, note = $15
		WHERE id = $1
		RETURNING `+discountColumns,
		arg.ID, arg.Code, arg.Label, arg.Kind, arg.Scope, arg.Value, arg.BulkRateMultiplier,
		arg.MaxAmount, arg.MinAttendees, arg.RequiresRole, arg.StartsAt, arg.EndsAt,
		arg.IsStackable, arg.Priority, arg.Note)
	return scanDiscount(row)
}

// DeleteEventDiscount removes a discount rule.
func (q *Queries) DeleteEventDiscount(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM event_discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
