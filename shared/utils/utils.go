package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AccountIDPrefix     = "acc"
	TransactionIDPrefix = "txn"
)

const dateOnlyLayout = "2006-01-02"

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// ValidateAccountID validates the account ID format
func ValidateAccountID(accountID string) bool {
	return hasPrefixedUUID(accountID, AccountIDPrefix)
}

// ValidateTransactionID validates the transaction ID format
func ValidateTransactionID(transactionID string) bool {
	return hasPrefixedUUID(transactionID, TransactionIDPrefix)
}

func hasPrefixedUUID(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// ParseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates. The second return
// value reports whether the input was a date without a time component.
func ParseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, true, nil
}

// ParseRangeEnd parses the upper bound of a date range. A date without a time
// covers the whole day.
func ParseRangeEnd(s string) (time.Time, error) {
	t, dateOnly, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		return EndOfDay(t), nil
	}
	return t, nil
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
