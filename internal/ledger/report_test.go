package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) set(y int, m time.Month, d, hh, mm int) {
	c.t = time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func newTestLedger(opts ...Option) (*Ledger, *MemoryLog, *MemoryLog, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)}
	logger, _ := test.NewNullLogger()
	cash, entries := NewMemoryLog(), NewMemoryLog()
	opts = append([]Option{WithClock(clock.now), WithLogger(logger)}, opts...)
	return New(cash, entries, opts...), cash, entries, clock
}

func TestAppendCash(t *testing.T) {
	ctx := context.Background()
	l, cash, _, clock := newTestLedger(WithOpeningBalance(1000))
	clock.t = time.Date(2025, 7, 5, 10, 15, 30, 999, time.UTC)

	rec, err := l.AppendCash(ctx, 50000, CategoryMembershipSale)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 5, 10, 15, 30, 0, time.UTC), rec.At)
	assert.Equal(t, []string{"2025-07-05;10:15:30;membership sale;50000"}, cash.Lines())
	assert.Equal(t, int64(51000), l.Balance())

	_, err = l.AppendCash(ctx, -1, CategoryDeposit)
	assert.ErrorIs(t, err, gymerr.ErrInvalidAmount)
	_, err = l.AppendCash(ctx, 10, Category("tip"))
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	assert.Len(t, cash.Lines(), 1)
	assert.Equal(t, int64(51000), l.Balance())

	_, err = l.AppendCash(ctx, 0, CategoryDeposit)
	require.NoError(t, err, "zero is a valid amount")
}

func TestAppendEntry(t *testing.T) {
	l, _, entries, clock := newTestLedger()
	clock.set(2025, 7, 5, 18, 30)

	rec, err := l.AppendEntry(context.Background(), EntryRecord{
		ClientID:   3,
		ExternalID: "1001",
		Name:       "ana",
		Membership: membership.PaymentPending,
	})
	require.NoError(t, err)
	assert.Equal(t, clock.t, rec.At)
	assert.Equal(t, []string{"2025-07-05;18:30:00;3;1001;ana;false"}, entries.Lines())
}

func TestRebuild(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cash := NewMemoryLog(
		"2025-07-05;10:00:00;membership sale;50.000",
		"garbage",
		"2025-07-05;11:00:00;deposit;2500",
	)
	l := New(cash, NewMemoryLog(), WithOpeningBalance(100), WithLogger(logger))
	assert.Equal(t, int64(100), l.Balance())

	skipped, err := l.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, skipped)
	assert.Equal(t, int64(52600), l.Balance())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["line"])
}

func TestMonthlyReport_July2025(t *testing.T) {
	ctx := context.Background()
	l, _, _, clock := newTestLedger()

	clock.set(2025, 7, 5, 9, 0)
	_, err := l.AppendCash(ctx, 50000, CategoryMembershipSale)
	require.NoError(t, err)
	clock.set(2025, 7, 5, 17, 45)
	_, err = l.AppendCash(ctx, 8000, CategorySingleEntry)
	require.NoError(t, err)
	clock.set(2025, 7, 20, 12, 0)
	_, err = l.AppendCash(ctx, 50000, CategoryMembershipSale)
	require.NoError(t, err)

	rep, err := l.MonthlyReport(ctx, 7, 2025)
	require.NoError(t, err)

	assert.Equal(t, int64(108000), rep.Total)
	assert.Equal(t, 3, rep.Records)
	assert.Equal(t, Bucket{Amount: 100000, Count: 2}, rep.Membership)
	assert.Equal(t, Bucket{Amount: 8000, Count: 1}, rep.SingleEntry)
	assert.Equal(t, Bucket{}, rep.Other)
	assert.Equal(t, []DayTotal{
		{Day: 5, Amount: 58000, Count: 2},
		{Day: 20, Amount: 50000, Count: 1},
	}, rep.ByDay)
	require.NotNil(t, rep.PeakDay)
	assert.Equal(t, 5, rep.PeakDay.Day)
	assert.Empty(t, rep.Skipped)
}

func TestMonthlyReport_FiltersAndBuckets(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cash := NewMemoryLog(
		"2025-06-30;23:59:59;membership sale;50000",
		"2025-07-01;08:00:00;membership payment;50000",
		"2025-07-01;09:00:00;membership renewal;45000",
		"2025-07-02;09:00:00;deposit;20000",
		"2025-07-02;10:00:00;Membership Sale;1",
		"2025-07-03;10:00:00;single entry",
		"2024-07-03;10:00:00;single entry;8000",
	)
	l := New(cash, NewMemoryLog(), WithLogger(logger))

	rep, err := l.MonthlyReport(context.Background(), 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(115001), rep.Total)
	assert.Equal(t, Bucket{Amount: 95000, Count: 2}, rep.Membership)
	assert.Equal(t, Bucket{}, rep.SingleEntry)
	assert.Equal(t, Bucket{Amount: 20001, Count: 2}, rep.Other, "labels match exactly")
	assert.Equal(t, Bucket{Amount: 1, Count: 1}, rep.ByCategory["Membership Sale"])
	assert.Equal(t, []int{6}, rep.Skipped)
	assert.Equal(t, 1, rep.PeakDay.Day)
}

func TestMonthlyReport_PeakTieAndEmpty(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(NewMemoryLog(
		"2025-08-09;10:00:00;deposit;500",
		"2025-08-03;10:00:00;deposit;500",
	), NewMemoryLog(), WithLogger(logger))

	rep, err := l.MonthlyReport(context.Background(), 8, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.PeakDay.Day, "earliest day wins a tie")

	rep, err = l.MonthlyReport(context.Background(), 9, 2025)
	require.NoError(t, err)
	assert.Nil(t, rep.PeakDay)
	assert.Empty(t, rep.ByDay)
	assert.Zero(t, rep.Total)

	_, err = l.MonthlyReport(context.Background(), 13, 2025)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	_, err = l.MonthlyReport(context.Background(), 0, 2025)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
}

func TestMonthlyReport_Idempotent(t *testing.T) {
	categories := []Category{
		CategoryMembershipSale, CategoryMembershipPayment, CategoryMembershipRenewal,
		CategorySingleEntry, CategoryDeposit,
	}
	rapid.Check(t, func(t *rapid.T) {
		logger, _ := test.NewNullLogger()
		cash := NewMemoryLog()
		n := rapid.IntRange(0, 40).Draw(t, "records")
		for i := 0; i < n; i++ {
			month := rapid.IntRange(5, 7).Draw(t, "month")
			day := rapid.IntRange(1, 28).Draw(t, "day")
			cat := rapid.SampledFrom(categories).Draw(t, "category")
			amount := rapid.Int64Range(0, 200000).Draw(t, "amount")
			line := fmt.Sprintf("2025-%02d-%02d;12:00:00;%s;%d", month, day, cat, amount)
			if rapid.IntRange(0, 9).Draw(t, "corrupt") == 0 {
				line = "corrupt;" + line
			}
			require.NoError(t, cash.Append(context.Background(), line))
		}
		before := cash.Lines()
		l := New(cash, NewMemoryLog(), WithLogger(logger))

		first, err := l.MonthlyReport(context.Background(), 6, 2025)
		require.NoError(t, err)
		second, err := l.MonthlyReport(context.Background(), 6, 2025)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, before, cash.Lines(), "reports never touch the log")
		assert.Equal(t, first.Total, first.Membership.Amount+first.SingleEntry.Amount+first.Other.Amount)
	})
}

func TestDailyReport(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cash := NewMemoryLog(
		"2025-07-05;09:00:00;membership sale;50000",
		"2025-07-05;10:00:00;membership payment;50000",
		"2025-07-05;11:00:00;single entry;8000",
		"2025-07-06;09:00:00;membership sale;50000",
	)
	entries := NewMemoryLog(
		"2025-07-05;06:00:00;1;1001;ana;true",
		"2025-07-05;07:00:00;2;1002;luis;false;single entry",
		"2025-07-05;08:00:00;3;1003;eva;none",
		"2025-07-05;09:00:00;4;1004;teo;true",
		"not an entry",
		"2025-07-04;09:00:00;4;1004;teo;true",
	)
	l := New(cash, entries, WithLogger(logger))

	rep, err := l.DailyReport(context.Background(), time.Date(2025, 7, 5, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), rep.Date)
	assert.Equal(t, int64(108000), rep.CashTotal)
	assert.Equal(t, 3, rep.CashRecords)
	assert.Equal(t, 2, rep.MembershipSales)
	assert.Equal(t, EntryCounts{Total: 4, PaidMembership: 2, PendingMembership: 1, NoMembership: 1}, rep.Entries)
	assert.Equal(t, []int{5}, rep.Skipped)
}

func TestEntryHistogram(t *testing.T) {
	logger, _ := test.NewNullLogger()
	entries := NewMemoryLog(
		// July 2025 starts on a Tuesday (offset 1).
		"2025-07-01;06:15:00;1;1001;ana;true",
		"2025-07-06;18:00:00;1;1001;ana;true",
		"2025-07-07;18:59:59;2;1002;luis;none",
		"2025-07-31;23:00:00;2;1002;luis;none",
		"2025-08-01;06:00:00;2;1002;luis;none",
	)
	l := New(NewMemoryLog(), entries, WithLogger(logger))

	h, err := l.EntryHistogram(context.Background(), 7, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, h.Total)
	assert.Equal(t, WeekdayCount{Weekday: "Tuesday", Count: 1}, h.ByWeekday[1])
	assert.Equal(t, WeekdayCount{Weekday: "Sunday", Count: 1}, h.ByWeekday[6])
	assert.Equal(t, WeekdayCount{Weekday: "Monday", Count: 1}, h.ByWeekday[0])
	assert.Equal(t, WeekdayCount{Weekday: "Thursday", Count: 1}, h.ByWeekday[3])
	assert.Equal(t, 1, h.ByHour[6])
	assert.Equal(t, 2, h.ByHour[18])
	assert.Equal(t, 1, h.ByHour[23])

	_, err = l.EntryHistogram(context.Background(), 7, 2025, 7)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	_, err = l.EntryHistogram(context.Background(), 7, 2025, -1)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
}
