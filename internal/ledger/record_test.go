package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
)

func TestCashRecordLine(t *testing.T) {
	rec := CashRecord{
		At:       time.Date(2025, 7, 5, 9, 4, 5, 0, time.UTC),
		Category: CategoryMembershipSale,
		Amount:   50000,
	}
	assert.Equal(t, "2025-07-05;09:04:05;membership sale;50000", rec.Line())

	back, err := ParseCashRecord(rec.Line())
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestParseCashRecord(t *testing.T) {
	rec, err := ParseCashRecord("2025-07-05;18:00:00;single entry;8.000;extra")
	require.NoError(t, err)
	assert.Equal(t, CategorySingleEntry, rec.Category)
	assert.Equal(t, int64(8000), rec.Amount)
	assert.Equal(t, 18, rec.At.Hour())

	tests := []string{
		"2025-07-05;18:00:00;single entry",
		"2025-07-05;single entry;8000",
		"05/07/2025;18:00:00;single entry;8000",
		"2025-07-05;18:00:00;single entry;ocho mil",
		"",
	}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			_, err := ParseCashRecord(line)
			assert.ErrorIs(t, err, gymerr.ErrMalformedRecord)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"50000", 50000, true},
		{" 50.000 ", 50000, true},
		{"1.000.000", 1000000, true},
		{"1,234,567", 1234567, true},
		{"$ 8 000", 8000, true},
		{"15_000", 15000, true},
		{"50000.00", 50000, true},
		{"50000.0", 50000, true},
		{"50000,00", 50000, true},
		{"50.000,00", 50000, true},
		{"8.000,00", 8000, true},
		{"1,234.00", 1234, true},
		{"1,5", 0, false},
		{"1,50", 0, false},
		{"1,2345", 0, false},
		{"8.000,50", 0, false},
		{"1.000,000.00", 0, false},
		{"12.50", 0, false},
		{"1.23.456", 0, false},
		{"1.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntryRecordLine(t *testing.T) {
	rec := EntryRecord{
		At:         time.Date(2025, 7, 5, 18, 30, 0, 0, time.UTC),
		ClientID:   3,
		ExternalID: "1001",
		Name:       "ana",
		Membership: membership.PaymentPaid,
		Reason:     "boxing; sparring\n",
	}
	assert.Equal(t, "2025-07-05;18:30:00;3;1001;ana;true;boxing, sparring", rec.Line())

	rec.Reason = ""
	rec.Membership = membership.PaymentNone
	assert.Equal(t, "2025-07-05;18:30:00;3;1001;ana;none", rec.Line())
}

func TestParseEntryRecord(t *testing.T) {
	rec, err := ParseEntryRecord("2025-07-05;18:30:00;3;1001;ana;TRUE")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ClientID)
	assert.Equal(t, "1001", rec.ExternalID)
	assert.Equal(t, membership.PaymentPaid, rec.Membership)
	assert.Empty(t, rec.Reason)

	rec, err = ParseEntryRecord("2025-07-05;06:00:00;4;1002;luis;false;single entry;cardio")
	require.NoError(t, err)
	assert.Equal(t, membership.PaymentPending, rec.Membership)
	assert.Equal(t, "single entry;cardio", rec.Reason)

	rec, err = ParseEntryRecord("2025-07-05;06:00:00;4;1002;luis;none")
	require.NoError(t, err)
	assert.Equal(t, membership.PaymentNone, rec.Membership)

	for _, line := range []string{
		"2025-07-05;06:00:00;4;1002;luis",
		"2025-07-05;06:00:00;x;1002;luis;true",
		"2025-07-05;6pm;4;1002;luis;true",
		"2025-07-05;06:00:00;4;1002;luis;maybe",
	} {
		_, err := ParseEntryRecord(line)
		assert.ErrorIs(t, err, gymerr.ErrMalformedRecord, line)
	}
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryDeposit.Valid())
	assert.True(t, CategoryMembershipRenewal.Valid())
	assert.False(t, Category("Membership Sale").Valid())
	assert.False(t, Category("membership").Valid())
}
