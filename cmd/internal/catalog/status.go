package catalog

import (
	"strings"
	"time"
)

// Status is the availability of a book copy. Values are the single-letter codes
// stored in the database.
type Status string

const (
	StatusMaintenance Status = "m"
	StatusOnLoan      Status = "o"
	StatusAvailable   Status = "a"
	StatusReserved    Status = "r"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved}

// Valid reports whether s is one of the known codes.
func (s Status) Valid() bool {
	switch s {
	case StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved:
		return true
	default:
		return false
	}
}

// Label is the human-readable name of s.
func (s Status) Label() string {
	switch s {
	case StatusMaintenance:
		return "Maintenance"
	case StatusOnLoan:
		return "On loan"
	case StatusAvailable:
		return "Available"
	case StatusReserved:
		return "Reserved"
	default:
		return ""
	}
}

// ParseStatus accepts either the code ("o") or the label ("On loan", "on-loan", "onloan").
func ParseStatus(raw string) (Status, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	switch v {
	case "m", "maintenance":
		return StatusMaintenance, true
	case "o", "onloan":
		return StatusOnLoan, true
	case "a", "available":
		return StatusAvailable, true
	case "r", "reserved":
		return StatusReserved, true
	default:
		return "", false
	}
}

// Loan policy.
const (
	LoanPeriod       = 21 * 24 * time.Hour
	MaxRenewalWindow = 28 * 24 * time.Hour
)

// checkBorrow allows Maintenance|Available|Reserved -> OnLoan.
func checkBorrow(op string, inst BookInstance) error {
	if inst.Status == StatusOnLoan {
		return conflict(op, "book copy is already on loan")
	}
	return nil
}

// checkReturn allows OnLoan -> Maintenance while the copy is not overdue.
func checkReturn(op string, inst BookInstance, today time.Time, fineNotice string) error {
	if inst.Status != StatusOnLoan {
		return conflict(op, "book copy is not on loan")
	}
	if inst.IsOverdue(today) {
		return OpError{Op: op, Kind: ErrPolicyViolation, Msg: fineNotice}
	}
	return nil
}

// checkRenewalDate enforces today <= due <= today + MaxRenewalWindow.
func checkRenewalDate(op string, due, today time.Time) error {
	if due.Before(today) {
		return invalid(op, "Invalid date - Renewal in past.")
	}
	if due.After(today.Add(MaxRenewalWindow)) {
		return invalid(op, "Invalid date - Renewal more than 4 weeks ahead.")
	}
	return nil
}

// checkRenew allows OnLoan -> OnLoan (due date only).
func checkRenew(op string, inst BookInstance) error {
	if inst.Status != StatusOnLoan {
		return conflict(op, "book copy is not on loan")
	}
	return nil
}

// checkEdit keeps librarian edits out of the loan lifecycle.
func checkEdit(op string, current BookInstance, next Status) error {
	if !next.Valid() {
		return invalid(op, "unknown status")
	}
	if current.Status == StatusOnLoan {
		return invalid(op, "a copy on loan must be returned before it is edited")
	}
	if next == StatusOnLoan {
		return invalid(op, "a copy is put on loan by borrowing it")
	}
	return nil
}
