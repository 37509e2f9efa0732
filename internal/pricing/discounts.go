package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies how a discount rule computes its reduction.
type Kind string

// Discount kinds.
const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
	KindBulkRate   Kind = "bulk_rate"
)

// Scope is the subtotal grouping a discount is evaluated against.
type Scope string

// Discount scopes.
const (
	ScopeRegistration Scope = "registration"
	ScopeAttendee     Scope = "attendee"
	ScopeLodging      Scope = "lodging"
	ScopeMeal         Scope = "meal"
	ScopeShuttle      Scope = "shuttle"
)

// scopeOrder fixes the order scopes are evaluated in so repeated runs emit
// applied discounts in an identical sequence.
var scopeOrder = []Scope{ScopeRegistration, ScopeAttendee, ScopeLodging, ScopeMeal, ScopeShuttle}

// Rule captures one event discount's runtime constraints.
// Value is minor units for fixed discounts and basis points for percentage
// discounts. BulkRateBps is the bulk-rate multiplier in basis points.
type Rule struct {
	ID           uuid.UUID
	Code         string
	Label        string
	Kind         Kind
	Scope        Scope
	Value        int64
	BulkRateBps  *int32
	MinAttendees *int32
	RequiresRole string
	StartsAt     *time.Time
	EndsAt       *time.Time
	Stackable    bool
	Priority     int32
	MaxAmount    *Money
}

// EvalContext carries the registration-level facts eligibility gates check.
type EvalContext struct {
	AttendeeCount int
	CreatorRole   string
}

// Active reports whether the rule's window contains the instant, bounds
// inclusive; an absent bound is unbounded.
func (r Rule) Active(now time.Time) bool {
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return false
	}
	return true
}

// Eligible reports whether the registration satisfies the rule's gates.
func (r Rule) Eligible(ctx EvalContext) bool {
	if r.MinAttendees != nil && ctx.AttendeeCount < int(*r.MinAttendees) {
		return false
	}
	if r.RequiresRole != "" && !strings.EqualFold(r.RequiresRole, ctx.CreatorRole) {
		return false
	}
	return true
}

// ScopedSubtotal returns the portion of the charges a scope's discounts are
// evaluated against. Key deposits are refundable and never discounted.
func ScopedSubtotal(items []LineItem, scope Scope) Money {
	var total Money
	for _, it := range items {
		switch scope {
		case ScopeRegistration:
			if it.Kind != ItemDeposit {
				total += it.Amount
			}
		case ScopeAttendee:
			if it.Kind == ItemRegistrationFee || it.Kind == ItemSurcharge {
				total += it.Amount
			}
		case ScopeLodging:
			if it.Kind == ItemRoomNight {
				total += it.Amount
			}
		case ScopeMeal:
			if it.Kind == ItemMeal {
				total += it.Amount
			}
		case ScopeShuttle:
			if it.Kind == ItemShuttle {
				total += it.Amount
			}
		}
	}
	return total
}

// Evaluate applies the event's discount rules against the itemized charges,
// producing an ordered, deterministic set of applied discounts.
//
// Within a scope, rules run in priority order (stable on the input order for
// ties). The first eligible rule always applies; subsequent rules apply only
// while every rule applied so far in the scope, including the candidate, is
// stackable. Every amount is computed against the original scoped subtotal,
// then capped to the scope's remaining positive balance. Rules that reduce
// nothing are not recorded.
func Evaluate(items []LineItem, ctx EvalContext, rules []Rule, now time.Time) []Applied {
	eligible := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active(now) && r.Eligible(ctx) {
			eligible = append(eligible, r)
		}
	}

	byScope := make(map[Scope][]Rule, len(scopeOrder))
	for _, r := range eligible {
		byScope[r.Scope] = append(byScope[r.Scope], r)
	}

	var applied []Applied
	for _, scope := range scopeOrder {
		scoped := byScope[scope]
		if len(scoped) == 0 {
			continue
		}
		sort.SliceStable(scoped, func(i, j int) bool {
			return scoped[i].Priority < scoped[j].Priority
		})

		subtotal := ScopedSubtotal(items, scope)
		remaining := subtotal
		appliedInScope := 0
		for _, r := range scoped {
			if appliedInScope > 0 && !r.Stackable {
				// Non-stackable rules are mutually exclusive within the
				// scope; once anything applied they cannot join.
				continue
			}
			amount := r.amountAgainst(subtotal)
			if amount > remaining {
				amount = remaining
			}
			if amount <= 0 {
				continue
			}
			applied = append(applied, Applied{
				DiscountID: r.ID,
				Scope:      scope,
				Amount:     amount,
				Reason:     r.reason(),
				ComputedAt: now,
			})
			remaining -= amount
			appliedInScope++
			if !r.Stackable {
				break
			}
		}
	}
	return applied
}

// amountAgainst computes the raw reduction for the rule against the original
// scoped subtotal, before the remaining-balance cap.
func (r Rule) amountAgainst(subtotal Money) Money {
	if subtotal <= 0 {
		return 0
	}
	var amount Money
	switch r.Kind {
	case KindPercentage:
		amount = (subtotal * r.Value) / 10000
	case KindFixed:
		amount = r.Value
		if amount > subtotal {
			amount = subtotal
		}
	case KindBulkRate:
		if r.BulkRateBps == nil || *r.BulkRateBps <= 0 || *r.BulkRateBps >= 10000 {
			return 0
		}
		recomputed := (subtotal * Money(*r.BulkRateBps)) / 10000
		amount = subtotal - recomputed
	default:
		return 0
	}
	if r.MaxAmount != nil && amount > *r.MaxAmount {
		amount = *r.MaxAmount
	}
	if amount < 0 {
		return 0
	}
	return amount
}

func (r Rule) reason() string {
	label := strings.TrimSpace(r.Label)
	if label == "" {
		label = strings.TrimSpace(r.Code)
	}
	switch r.Kind {
	case KindPercentage:
		return fmt.Sprintf("%s: %s%% off %s subtotal", label, formatBps(r.Value), r.Scope)
	case KindBulkRate:
		return fmt.Sprintf("%s: bulk rate applied to %s subtotal", label, r.Scope)
	default:
		return fmt.Sprintf("%s: fixed amount off %s subtotal", label, r.Scope)
	}
}

func formatBps(bps int64) string {
	if bps%100 == 0 {
		return fmt.Sprintf("%d", bps/100)
	}
	return fmt.Sprintf("%.2f", float64(bps)/100)
}
