package pricing

import (
	"time"

	"github.com/google/uuid"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ItemKind identifies the charge category of a ledger line.
type ItemKind string

// Charge categories written to the registration ledger.
const (
	ItemRegistrationFee ItemKind = "registration_fee"
	ItemSurcharge       ItemKind = "surcharge"
	ItemRoomNight       ItemKind = "room_night"
	ItemDeposit         ItemKind = "deposit"
	ItemMeal            ItemKind = "meal"
	ItemShuttle         ItemKind = "shuttle"
)

// LineItem is one itemized charge contributing to a registration's total.
type LineItem struct {
	Kind        ItemKind  `json:"kind"`
	Description string    `json:"description"`
	RefTable    string    `json:"refTable,omitempty"`
	RefID       uuid.UUID `json:"refId,omitempty"`
	UnitPrice   Money     `json:"unitPrice"`
	Qty         int32     `json:"qty"`
	Amount      Money     `json:"amount"`
}

// Applied records one discount that reduced the registration total.
type Applied struct {
	DiscountID uuid.UUID `json:"discountId"`
	Scope      Scope     `json:"scope"`
	Amount     Money     `json:"amount"`
	Reason     string    `json:"reason"`
	ComputedAt time.Time `json:"computedAt"`
}

// Result aggregates the outcome of a full pricing run.
type Result struct {
	LineItems  []LineItem `json:"lineItems"`
	Discounts  []Applied  `json:"appliedDiscounts"`
	GrandTotal Money      `json:"grandTotal"`
	Currency   string     `json:"currency"`
}

// Aggregate sums itemized charges minus applied discounts into the final
// amount owed. The grand total never goes below zero.
func Aggregate(items []LineItem, applied []Applied) Result {
	var charges Money
	for _, it := range items {
		charges += it.Amount
	}
	var reduction Money
	for _, d := range applied {
		reduction += d.Amount
	}
	total := charges - reduction
	if total < 0 {
		total = 0
	}
	return Result{
		LineItems:  items,
		Discounts:  applied,
		GrandTotal: total,
	}
}
