package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// LedgerItemParams is one line item row for the replace write. Position is the
// row's place in the pricing run output; listing sorts on it because every row
// of a run shares the same transaction timestamp.
type LedgerItemParams struct {
	Kind        string
	Description string
	RefTable    pgtype.Text
	RefID       pgtype.UUID
	UnitPrice   int64
	Qty         int32
	Amount      int64
	Position    int32
}

// LedgerDiscountParams is one applied discount row for the replace write.
type LedgerDiscountParams struct {
	DiscountID    pgtype.UUID
	Scope         string
	AmountApplied int64
	Reason        pgtype.Text
	Position      int32
	ComputedAt    pgtype.Timestamptz
}

// ReplaceRegistrationLedger deletes the registration's priced ledger and writes
// the new one plus the total in a single pass. Callers must run it inside a
// transaction so a failed reprice never leaves a half-written ledger behind.
func (q *Queries) ReplaceRegistrationLedger(ctx context.Context, registrationID pgtype.UUID,
	items []LedgerItemParams, discounts []LedgerDiscountParams, total int64) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM registration_applied_discounts WHERE registration_id = $1`, registrationID); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, `DELETE FROM registration_items WHERE registration_id = $1`, registrationID); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := q.db.Exec(ctx, `INSERT INTO registration_items
			(registration_id, kind, description, ref_table, ref_id, unit_price, qty, amount, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			registrationID, it.Kind, it.Description, it.RefTable, it.RefID, it.UnitPrice, it.Qty, it.Amount, it.Position); err != nil {
			return err
		}
	}
	for _, d := range discounts {
		if _, err := q.db.Exec(ctx, `INSERT INTO registration_applied_discounts
			(registration_id, discount_id, scope, amount_applied, reason, position, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			registrationID, d.DiscountID, d.Scope, d.AmountApplied, d.Reason, d.Position, d.ComputedAt); err != nil {
			return err
		}
	}
	_, err := q.db.Exec(ctx, `UPDATE registrations SET amount_total = $2 WHERE id = $1`, registrationID, total)
	return err
}

// ListRegistrationItems returns the persisted ledger lines in pricing run order.
func (q *Queries) ListRegistrationItems(ctx context.Context, registrationID pgtype.UUID) ([]RegistrationItem, error) {
	rows, err := q.db.Query(ctx, `SELECT id, registration_id, kind, description, ref_table, ref_id,
		unit_price, qty, amount, position, created_at
		FROM registration_items WHERE registration_id = $1 ORDER BY position`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegistrationItem
	for rows.Next() {
		var it RegistrationItem
		if err := rows.Scan(&it.ID, &it.RegistrationID, &it.Kind, &it.Description, &it.RefTable,
			&it.RefID, &it.UnitPrice, &it.Qty, &it.Amount, &it.Position, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListAppliedDiscounts returns the persisted discount applications in pricing run order.
func (q *Queries) ListAppliedDiscounts(ctx context.Context, registrationID pgtype.UUID) ([]RegistrationAppliedDiscount, error) {
	rows, err := q.db.Query(ctx, `SELECT id, registration_id, discount_id, scope, amount_applied, reason, position, computed_at
		FROM registration_applied_discounts WHERE registration_id = $1 ORDER BY position`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegistrationAppliedDiscount
	for rows.Next() {
		var d RegistrationAppliedDiscount
		if err := rows.Scan(&d.ID, &d.RegistrationID, &d.DiscountID, &d.Scope, &d.AmountApplied,
			&d.Reason, &d.Position, &d.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
