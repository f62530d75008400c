package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCanonicalFieldOrder(t *testing.T) {
	rec := Record{
		ID:                   42,
		Type:                 RecordTypeTransfer,
		Amount:               decimal.RequireFromString("100.5"),
		Description:          "Rent",
		SourceAccountID:      int64Ptr(7),
		DestinationAccountID: int64Ptr(9),
		TransactionDate:      time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	require.Equal(t, "42|TRANSFER|100.5000|Rent|7|9|2025-03-14T09:26:53Z", Canonical(rec))
}

func TestCanonicalOmitsAbsentAccounts(t *testing.T) {
	rec := Record{
		ID:                   1,
		Type:                 RecordTypeDeposit,
		Amount:               decimal.NewFromInt(500),
		Description:          "Opening deposit",
		DestinationAccountID: int64Ptr(3),
		TransactionDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.Equal(t, "1|DEPOSIT|500.0000|Opening deposit||3|2025-01-01T00:00:00Z", Canonical(rec))
}

func TestCanonicalTimeNormalizesZoneAndPrecision(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	local := time.Date(2025, 6, 1, 12, 30, 45, 987654321, loc)

	require.Equal(t, "2025-06-01T05:30:45Z", CanonicalTime(local))
}

func TestCanonicalStableAcrossStorageRoundTrip(t *testing.T) {
	// A record serialized before persistence and after being read back
	// (string-formatted amount, zone-shifted timestamp) must hash the same.
	before := Record{
		ID:              8,
		Type:            RecordTypeWithdrawal,
		Amount:          decimal.RequireFromString("75.25"),
		Description:     "ATM",
		SourceAccountID: int64Ptr(2),
		TransactionDate: time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC),
	}
	after := before
	after.Amount = decimal.RequireFromString("75.2500")
	after.TransactionDate = before.TransactionDate.In(time.FixedZone("UTC-5", -5*3600))

	require.Equal(t, Canonical(before), Canonical(after))
	require.Equal(t, HashRecord(before), HashRecord(after))
}

func TestDigestIsHexSHA256(t *testing.T) {
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	require.Len(t, Digest("anything"), 64)
}

func TestHashRecordSensitiveToEveryHashedField(t *testing.T) {
	base := Record{
		ID:                   5,
		Type:                 RecordTypeDeposit,
		Amount:               decimal.NewFromInt(100),
		Description:          "salary",
		DestinationAccountID: int64Ptr(1),
		TransactionDate:      time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	baseHash := HashRecord(base)

	mutations := map[string]func(Record) Record{
		"id":          func(r Record) Record { r.ID = 6; return r },
		"type":        func(r Record) Record { r.Type = RecordTypeWithdrawal; return r },
		"amount":      func(r Record) Record { r.Amount = decimal.NewFromInt(101); return r },
		"description": func(r Record) Record { r.Description = "bonus"; return r },
		"destination": func(r Record) Record { r.DestinationAccountID = int64Ptr(2); return r },
		"date":        func(r Record) Record { r.TransactionDate = r.TransactionDate.Add(time.Second); return r },
	}
	for name, mutate := range mutations {
		require.NotEqual(t, baseHash, HashRecord(mutate(base)), "mutating %s must change the hash", name)
	}

	// Status and reversal flags are mutable after hashing and must not
	// participate.
	reversed := base
	reversed.Status = RecordStatusReversed
	reversed.Reversed = true
	reversed.OriginalRecordID = int64Ptr(99)
	require.Equal(t, baseHash, HashRecord(reversed))
}
