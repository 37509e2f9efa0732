package pricing

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

var evalNow = time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)

func regItems(amounts ...Money) []LineItem {
	items := make([]LineItem, 0, len(amounts))
	for _, a := range amounts {
		items = append(items, LineItem{Kind: ItemRegistrationFee, UnitPrice: a, Qty: 1, Amount: a})
	}
	return items
}

func i32(v int32) *int32 { return &v }

func money(v Money) *Money { return &v }

func TestEvaluateStackablePercentageAndFixed(t *testing.T) {
	// $150 registration, 10% plus $20 off
	items := regItems(15000)
	rules := []Rule{
		{ID: uuid.New(), Label: "member", Kind: KindPercentage, Scope: ScopeRegistration, Value: 1000, Stackable: true},
		{ID: uuid.New(), Label: "early", Kind: KindFixed, Scope: ScopeRegistration, Value: 2000, Stackable: true, Priority: 1},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied discounts, got %d", len(applied))
	}
	res := Aggregate(items, applied)
	if res.GrandTotal != 11500 {
		t.Fatalf("expected grand total 11500, got %d", res.GrandTotal)
	}
}

func TestEvaluateNonStackableWinnerByPriority(t *testing.T) {
	items := regItems(10000)
	loser := uuid.New()
	winner := uuid.New()
	rules := []Rule{
		{ID: loser, Label: "small", Kind: KindPercentage, Scope: ScopeRegistration, Value: 500, Priority: 2},
		{ID: winner, Label: "big", Kind: KindPercentage, Scope: ScopeRegistration, Value: 2000, Priority: 1},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 1 {
		t.Fatalf("expected exactly 1 applied discount, got %d", len(applied))
	}
	if applied[0].DiscountID != winner || applied[0].Amount != 2000 {
		t.Fatalf("expected priority-1 rule to win with 2000, got %+v", applied[0])
	}
}

func TestEvaluateNonStackableSkippedAfterStackable(t *testing.T) {
	items := regItems(10000)
	rules := []Rule{
		{ID: uuid.New(), Label: "stack", Kind: KindFixed, Scope: ScopeRegistration, Value: 1000, Stackable: true},
		{ID: uuid.New(), Label: "solo", Kind: KindFixed, Scope: ScopeRegistration, Value: 5000, Priority: 1},
		{ID: uuid.New(), Label: "stack2", Kind: KindFixed, Scope: ScopeRegistration, Value: 1000, Stackable: true, Priority: 2},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 2 {
		t.Fatalf("expected the two stackable rules only, got %d", len(applied))
	}
	var total Money
	for _, a := range applied {
		total += a.Amount
	}
	if total != 2000 {
		t.Fatalf("expected 2000 reduction, got %d", total)
	}
}

func TestEvaluateMinAttendeesGate(t *testing.T) {
	items := regItems(5000, 5000)
	rules := []Rule{
		{ID: uuid.New(), Label: "group", Kind: KindPercentage, Scope: ScopeRegistration, Value: 1000, MinAttendees: i32(3)},
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 2}, rules, evalNow); len(got) != 0 {
		t.Fatalf("expected no discounts below the attendee minimum, got %d", len(got))
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 3}, rules, evalNow); len(got) != 1 {
		t.Fatalf("expected discount at the attendee minimum, got %d", len(got))
	}
}

func TestEvaluateRoleGateCaseInsensitive(t *testing.T) {
	items := regItems(5000)
	rules := []Rule{
		{ID: uuid.New(), Label: "staff", Kind: KindPercentage, Scope: ScopeRegistration, Value: 5000, RequiresRole: "Staff"},
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 1, CreatorRole: "member"}, rules, evalNow); len(got) != 0 {
		t.Fatalf("expected role gate to block, got %d", len(got))
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 1, CreatorRole: "staff"}, rules, evalNow); len(got) != 1 {
		t.Fatalf("expected role gate to pass case-insensitively, got %d", len(got))
	}
}

func TestEvaluateWindowBoundsInclusive(t *testing.T) {
	items := regItems(5000)
	start := evalNow
	end := evalNow.Add(time.Hour)
	rule := Rule{ID: uuid.New(), Label: "flash", Kind: KindFixed, Scope: ScopeRegistration, Value: 500, StartsAt: &start, EndsAt: &end}

	if got := Evaluate(items, EvalContext{AttendeeCount: 1}, []Rule{rule}, start); len(got) != 1 {
		t.Fatalf("expected start bound to be inclusive")
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 1}, []Rule{rule}, end); len(got) != 1 {
		t.Fatalf("expected end bound to be inclusive")
	}
	if got := Evaluate(items, EvalContext{AttendeeCount: 1}, []Rule{rule}, end.Add(time.Second)); len(got) != 0 {
		t.Fatalf("expected expired rule to be ignored")
	}
}

func TestEvaluateBulkRate(t *testing.T) {
	items := regItems(10000)
	rules := []Rule{
		{ID: uuid.New(), Label: "bulk", Kind: KindBulkRate, Scope: ScopeRegistration, BulkRateBps: i32(8000)},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 1 || applied[0].Amount != 2000 {
		t.Fatalf("expected 2000 reduction from 80%% bulk rate, got %+v", applied)
	}
}

func TestEvaluateMaxAmountCap(t *testing.T) {
	items := regItems(100000)
	rules := []Rule{
		{ID: uuid.New(), Label: "capped", Kind: KindPercentage, Scope: ScopeRegistration, Value: 5000, MaxAmount: money(10000)},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 1 || applied[0].Amount != 10000 {
		t.Fatalf("expected cap at 10000, got %+v", applied)
	}
}

func TestEvaluateRemainingBalanceCap(t *testing.T) {
	items := regItems(5000)
	rules := []Rule{
		{ID: uuid.New(), Label: "a", Kind: KindFixed, Scope: ScopeRegistration, Value: 4000, Stackable: true},
		{ID: uuid.New(), Label: "b", Kind: KindFixed, Scope: ScopeRegistration, Value: 4000, Stackable: true, Priority: 1},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 2 {
		t.Fatalf("expected both discounts, got %d", len(applied))
	}
	if applied[1].Amount != 1000 {
		t.Fatalf("expected second discount capped to remaining 1000, got %d", applied[1].Amount)
	}
	res := Aggregate(items, applied)
	if res.GrandTotal != 0 {
		t.Fatalf("expected zero total, got %d", res.GrandTotal)
	}
}

func TestEvaluateDepositNeverDiscounted(t *testing.T) {
	items := []LineItem{
		{Kind: ItemRegistrationFee, Amount: 5000},
		{Kind: ItemDeposit, Amount: 2000},
	}
	rules := []Rule{
		{ID: uuid.New(), Label: "all", Kind: KindPercentage, Scope: ScopeRegistration, Value: 10000},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 1 || applied[0].Amount != 5000 {
		t.Fatalf("expected 100%% discount to leave the deposit untouched, got %+v", applied)
	}
	res := Aggregate(items, applied)
	if res.GrandTotal != 2000 {
		t.Fatalf("expected only the deposit to remain, got %d", res.GrandTotal)
	}
}

func TestEvaluateScopeIsolation(t *testing.T) {
	items := []LineItem{
		{Kind: ItemRegistrationFee, Amount: 5000},
		{Kind: ItemRoomNight, Amount: 12000},
	}
	rules := []Rule{
		{ID: uuid.New(), Label: "rooms", Kind: KindPercentage, Scope: ScopeLodging, Value: 2500},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 1 || applied[0].Amount != 3000 {
		t.Fatalf("expected 25%% of the lodging subtotal only, got %+v", applied)
	}
}

func TestEvaluateDeterministicScopeOrder(t *testing.T) {
	items := []LineItem{
		{Kind: ItemRegistrationFee, Amount: 5000},
		{Kind: ItemShuttle, Amount: 2500},
		{Kind: ItemMeal, Amount: 1200},
	}
	rules := []Rule{
		{ID: uuid.New(), Label: "shuttle", Kind: KindPercentage, Scope: ScopeShuttle, Value: 1000, Stackable: true},
		{ID: uuid.New(), Label: "meal", Kind: KindPercentage, Scope: ScopeMeal, Value: 1000, Stackable: true},
		{ID: uuid.New(), Label: "attendee", Kind: KindPercentage, Scope: ScopeAttendee, Value: 1000, Stackable: true},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 3 {
		t.Fatalf("expected 3 applied discounts, got %d", len(applied))
	}
	order := []Scope{applied[0].Scope, applied[1].Scope, applied[2].Scope}
	want := []Scope{ScopeAttendee, ScopeMeal, ScopeShuttle}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected scope order %v, got %v", want, order)
		}
	}
}

func TestEvaluatePriorityTieKeepsInputOrder(t *testing.T) {
	items := regItems(15000)
	first := uuid.New()
	second := uuid.New()
	rules := []Rule{
		{ID: first, Label: "ten off", Kind: KindPercentage, Scope: ScopeRegistration, Value: 1000, Stackable: true, Priority: 1},
		{ID: second, Label: "flat", Kind: KindFixed, Scope: ScopeRegistration, Value: 2000, Stackable: true, Priority: 1},
	}
	applied := Evaluate(items, EvalContext{AttendeeCount: 1}, rules, evalNow)
	if len(applied) != 2 {
		t.Fatalf("expected both tied rules to apply, got %d", len(applied))
	}
	if applied[0].DiscountID != first || applied[1].DiscountID != second {
		t.Fatalf("expected tied priorities to keep input order, got %v then %v", applied[0].DiscountID, applied[1].DiscountID)
	}
}

func TestEvaluateRepeatedRunsIdentical(t *testing.T) {
	items := []LineItem{
		{Kind: ItemRegistrationFee, Amount: 15000},
		{Kind: ItemRoomNight, Amount: 12000},
		{Kind: ItemMeal, Amount: 3600},
	}
	rules := []Rule{
		{ID: uuid.New(), Label: "member", Kind: KindPercentage, Scope: ScopeRegistration, Value: 1000, Stackable: true},
		{ID: uuid.New(), Label: "rooms", Kind: KindPercentage, Scope: ScopeLodging, Value: 2500, Stackable: true, Priority: 1},
		{ID: uuid.New(), Label: "flat", Kind: KindFixed, Scope: ScopeRegistration, Value: 2000, Stackable: true, Priority: 1},
	}
	ctx := EvalContext{AttendeeCount: 3}

	one := Aggregate(items, Evaluate(items, ctx, rules, evalNow))
	two := Aggregate(items, Evaluate(items, ctx, rules, evalNow))
	if !reflect.DeepEqual(one, two) {
		t.Fatalf("expected identical results across runs:\n%+v\n%+v", one, two)
	}
}

func TestAggregateFloorsAtZero(t *testing.T) {
	items := regItems(1000)
	applied := []Applied{{DiscountID: uuid.New(), Scope: ScopeRegistration, Amount: 5000}}
	res := Aggregate(items, applied)
	if res.GrandTotal != 0 {
		t.Fatalf("expected floor at zero, got %d", res.GrandTotal)
	}
}
