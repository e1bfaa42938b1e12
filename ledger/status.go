package ledger

import (
	"fmt"
	"strings"
)

// TransactionStatus is the lifecycle stage of a transaction as reported by the network.
//
// The lifecycle is ordered: pending, finalized, executed, sealed. Expired is terminal and is
// reached instead of finalization when the reference block falls out of the expiry window.
type TransactionStatus uint8

const (
	StatusUnknown TransactionStatus = iota
	StatusPending
	StatusFinalized
	StatusExecuted
	StatusSealed
	StatusExpired
)

var statusNames = map[TransactionStatus]string{
	StatusUnknown:   "UNKNOWN",
	StatusPending:   "PENDING",
	StatusFinalized: "FINALIZED",
	StatusExecuted:  "EXECUTED",
	StatusSealed:    "SEALED",
	StatusExpired:   "EXPIRED",
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("TransactionStatus(%d)", uint8(s))
}

// ParseTransactionStatus parses a status name in any case, e.g. "Sealed".
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	upper := strings.ToUpper(s)
	for status, name := range statusNames {
		if name == upper {
			return status, nil
		}
	}

	return StatusUnknown, fmt.Errorf("unknown transaction status %q", s)
}

// IsFinal reports whether no further status changes will follow.
func (s TransactionStatus) IsFinal() bool {
	return s == StatusSealed || s == StatusExpired
}

// Advances reports whether moving from s to next respects the lifecycle ordering. Nothing
// follows a final status, and expiry may follow any non final status.
func (s TransactionStatus) Advances(next TransactionStatus) bool {
	if s.IsFinal() {
		return false
	}
	if next == StatusExpired {
		return true
	}

	return next > s && next <= StatusSealed
}
