package inventory

import (
	"testing"
	"time"
)

var statusNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDeriveStatus(t *testing.T) {
	future := statusNow.AddDate(0, 6, 0)
	past := statusNow.AddDate(0, -1, 0)

	cases := []struct {
		name     string
		quantity int
		minimum  int
		expiry   time.Time
		current  string
		want     string
	}{
		{"plenty of stock", 100, 10, future, "", StatusAvailable},
		{"at threshold", 10, 10, future, "", StatusLowStock},
		{"below threshold", 3, 10, future, "", StatusLowStock},
		{"zero quantity", 0, 10, future, "", StatusLowStock},
		{"expired beats quantity", 100, 10, past, "", StatusExpired},
		{"expires exactly now", 100, 10, statusNow, "", StatusExpired},
		{"recalled is sticky", 100, 10, future, StatusRecalled, StatusRecalled},
		{"recalled beats expired", 0, 10, past, StatusRecalled, StatusRecalled},
		{"previous derived status ignored", 100, 10, future, StatusLowStock, StatusAvailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.quantity, tc.minimum, tc.expiry, statusNow, tc.current)
			if got != tc.want {
				t.Errorf("DeriveStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	expiry := statusNow.AddDate(0, 3, 0)
	first := DeriveStatus(5, 10, expiry, statusNow, "")
	second := DeriveStatus(5, 10, expiry, statusNow, first)
	if first != second {
		t.Errorf("expected idempotent derivation, got %s then %s", first, second)
	}
}

func TestDeriveStatus_RecalledNeverAutoReverts(t *testing.T) {
	expiry := statusNow.AddDate(0, 3, 0)
	status := StatusRecalled
	for i := 0; i < 3; i++ {
		status = DeriveStatus(100, 10, expiry, statusNow, status)
	}
	if status != StatusRecalled {
		t.Errorf("recalled status auto-reverted to %s", status)
	}
}
