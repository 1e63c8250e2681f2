package models

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to preparing", StatusPending, StatusPreparing, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to ready skips preparing", StatusPending, StatusReady, false},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"confirmed to served skips the kitchen", StatusConfirmed, StatusServed, false},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"preparing back to pending", StatusPreparing, StatusPending, false},
		{"ready to served", StatusReady, StatusServed, true},
		{"served to completed", StatusServed, StatusCompleted, true},
		{"served to cancelled", StatusServed, StatusCancelled, false},
		{"self transition", StatusPreparing, StatusPreparing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	all := []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing,
		StatusReady, StatusServed, StatusCompleted, StatusCancelled}

	for _, terminal := range []OrderStatus{StatusCompleted, StatusCancelled} {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, target := range all {
			if terminal.CanTransitionTo(target) {
				t.Errorf("%s must not transition to %s", terminal, target)
			}
		}
	}

	for _, s := range []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusServed} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	if OrderStatus("shipped").IsValid() {
		t.Error("unknown status reported as valid")
	}
	if !StatusServed.IsValid() {
		t.Error("served should be valid")
	}
}

func TestDeriveStatusFromItems(t *testing.T) {
	tests := []struct {
		name    string
		current OrderStatus
		items   []ItemStatus
		want    OrderStatus
		due     bool
	}{
		{
			name:    "confirmed moves to preparing when an item starts",
			current: StatusConfirmed,
			items:   []ItemStatus{ItemPreparing, ItemPending},
			want:    StatusPreparing,
			due:     true,
		},
		{
			name:    "preparing moves to ready when all items are done",
			current: StatusPreparing,
			items:   []ItemStatus{ItemReady, ItemServed, ItemReady},
			want:    StatusReady,
			due:     true,
		},
		{
			name:    "preparing stays while an item is outstanding",
			current: StatusPreparing,
			items:   []ItemStatus{ItemReady, ItemPreparing},
			want:    StatusPreparing,
			due:     false,
		},
		{
			name:    "already preparing is idempotent",
			current: StatusPreparing,
			items:   []ItemStatus{ItemPreparing, ItemPending},
			want:    StatusPreparing,
			due:     false,
		},
		{
			name:    "ready order is not re-derived",
			current: StatusReady,
			items:   []ItemStatus{ItemReady, ItemReady},
			want:    StatusReady,
			due:     false,
		},
		{
			name:    "no items",
			current: StatusConfirmed,
			items:   nil,
			want:    StatusConfirmed,
			due:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, due := DeriveStatusFromItems(tt.current, tt.items)
			if got != tt.want || due != tt.due {
				t.Errorf("DeriveStatusFromItems(%s, %v) = (%s, %v), want (%s, %v)",
					tt.current, tt.items, got, due, tt.want, tt.due)
			}
		})
	}
}

func TestDeriveStatusIdempotentAfterApply(t *testing.T) {
	items := []ItemStatus{ItemReady, ItemReady}

	derived, due := DeriveStatusFromItems(StatusPreparing, items)
	if !due || derived != StatusReady {
		t.Fatalf("first derivation = (%s, %v), want (ready, true)", derived, due)
	}

	again, due := DeriveStatusFromItems(derived, items)
	if due {
		t.Errorf("second derivation reported a transition to %s", again)
	}
}
