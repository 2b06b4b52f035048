package models

import "testing"

func TestValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "pending to paid", from: StatusPendingPayment, to: StatusPaid, want: true},
		{name: "pending to processing", from: StatusPendingPayment, to: StatusProcessing, want: true},
		{name: "pending to cancelled", from: StatusPendingPayment, to: StatusCancelled, want: true},
		{name: "pending cannot skip to completed", from: StatusPendingPayment, to: StatusCompleted, want: false},
		{name: "processing to paid", from: StatusProcessing, to: StatusPaid, want: true},
		{name: "processing back to pending on failed payment", from: StatusProcessing, to: StatusPendingPayment, want: true},
		{name: "processing to cancelled", from: StatusProcessing, to: StatusCancelled, want: true},
		{name: "processing cannot skip to completed", from: StatusProcessing, to: StatusCompleted, want: false},
		{name: "paid to completed", from: StatusPaid, to: StatusCompleted, want: true},
		{name: "paid to cancelled", from: StatusPaid, to: StatusCancelled, want: true},
		{name: "paid cannot regress to pending", from: StatusPaid, to: StatusPendingPayment, want: false},
		{name: "completed is terminal", from: StatusCompleted, to: StatusCancelled, want: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPaid, want: false},
		{name: "same status is idempotent", from: StatusPaid, to: StatusPaid, want: true},
		{name: "same terminal status is idempotent", from: StatusCompleted, to: StatusCompleted, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ValidTransition(tc.from, tc.to)
			if got != tc.want {
				t.Fatalf("ValidTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[OrderStatus]bool{
		StatusPendingPayment: false,
		StatusProcessing:     false,
		StatusPaid:           false,
		StatusCompleted:      true,
		StatusCancelled:      true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	t.Parallel()

	for _, status := range []OrderStatus{StatusPendingPayment, StatusProcessing, StatusPaid, StatusCompleted, StatusCancelled} {
		if !status.Valid() {
			t.Errorf("%q.Valid() = false, want true", status)
		}
	}
	if OrderStatus("shipped").Valid() {
		t.Error(`OrderStatus("shipped").Valid() = true, want false`)
	}
}
