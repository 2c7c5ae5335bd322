package enums

import "fmt"

// TransactionKind distinguishes how a point transaction originated.
type TransactionKind string

const (
	TransactionKindRecognition       TransactionKind = "recognition"
	TransactionKindAdminGrant        TransactionKind = "admin_grant"
	TransactionKindAdminRevoke       TransactionKind = "admin_revoke"
	TransactionKindMonthlyAllocation TransactionKind = "monthly_allocation"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindRecognition,
	TransactionKindAdminGrant,
	TransactionKindAdminRevoke,
	TransactionKindMonthlyAllocation,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// CountsAgainstAllowance reports whether transactions of this kind consume
// the sender's monthly allowance. Admin adjustments and scheduled allocations
// originate from the company system account and are exempt.
func (k TransactionKind) CountsAgainstAllowance() bool {
	return k == TransactionKindRecognition
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
