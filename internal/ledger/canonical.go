package ledger

import (
	"strconv"
	"strings"
	"time"
)

const (
	// AmountScale is the fixed decimal scale used for storage and hashing.
	AmountScale = 4

	// canonicalDelimiter separates canonical fields. It never appears in
	// ids, type names, amounts or timestamps; descriptions are free text
	// but sit in a fixed position so a stray pipe cannot shift fields
	// that follow a numeric or timestamp format.
	canonicalDelimiter = "|"

	// canonicalTimeLayout formats the whole-second UTC timestamp.
	canonicalTimeLayout = "2006-01-02T15:04:05Z"
)

// Canonical renders the deterministic hash input for a record. The amount
// is pinned to AmountScale digits (half-up) and the timestamp is truncated
// to whole seconds in UTC, so the same record serializes identically before
// and after a round trip through the database.
func Canonical(r Record) string {
	fields := []string{
		strconv.FormatInt(r.ID, 10),
		string(r.Type),
		r.Amount.StringFixed(AmountScale),
		r.Description,
		accountRef(r.SourceAccountID),
		accountRef(r.DestinationAccountID),
		CanonicalTime(r.TransactionDate),
	}
	return strings.Join(fields, canonicalDelimiter)
}

// CanonicalTime truncates to whole-second UTC and applies the fixed layout.
func CanonicalTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(canonicalTimeLayout)
}

func accountRef(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
