package inventory

import "time"

// DeriveStatus computes a batch's status from its quantity, minimum-stock
// threshold and expiry date relative to now. A recalled batch stays recalled
// until the override is cleared by an explicit administrative action. The
// function is idempotent and is invoked on every write to quantity,
// minimumStock or expiryDate, and on batch creation.
func DeriveStatus(quantity, minimumStock int, expiryDate, now time.Time, currentStatus string) string {
	if currentStatus == StatusRecalled {
		return StatusRecalled
	}
	if !expiryDate.After(now) {
		return StatusExpired
	}
	if quantity <= minimumStock {
		return StatusLowStock
	}
	return StatusAvailable
}
