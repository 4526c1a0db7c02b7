// internal/ledger/report.go
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
	"gymnexus/internal/timezone"
)

// WeekdayNames is indexed by the weekday offsets EntryHistogram works
// with: 0 is Monday.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type Bucket struct {
	Amount int64 `json:"amount"`
	Count  int   `json:"count"`
}

func (b *Bucket) add(amount int64) {
	b.Amount += amount
	b.Count++
}

type DayTotal struct {
	Day    int   `json:"day"`
	Amount int64 `json:"amount"`
	Count  int   `json:"count"`
}

// MonthlyReport aggregates one calendar month of the cash log. ByDay only
// lists days that have records, in ascending order. PeakDay is the day
// with the highest amount, the earliest one on a tie, and nil for an
// empty month.
type MonthlyReport struct {
	Month       int                 `json:"month"`
	Year        int                 `json:"year"`
	Total       int64               `json:"total"`
	Records     int                 `json:"records"`
	Membership  Bucket              `json:"membership"`
	SingleEntry Bucket              `json:"single_entry"`
	Other       Bucket              `json:"other"`
	ByCategory  map[Category]Bucket `json:"by_category"`
	ByDay       []DayTotal          `json:"by_day"`
	PeakDay     *DayTotal           `json:"peak_day,omitempty"`
	Skipped     []int               `json:"skipped_lines,omitempty"`
}

type EntryCounts struct {
	Total             int `json:"total"`
	PaidMembership    int `json:"paid_membership"`
	PendingMembership int `json:"pending_membership"`
	NoMembership      int `json:"no_membership"`
}

// DailyReport covers one calendar date across both logs. MembershipSales
// counts every membership charge of the day: sales, payments and
// renewals.
type DailyReport struct {
	Date            time.Time           `json:"date"`
	CashTotal       int64               `json:"cash_total"`
	CashRecords     int                 `json:"cash_records"`
	MembershipSales int                 `json:"membership_sales"`
	ByCategory      map[Category]Bucket `json:"by_category"`
	Entries         EntryCounts         `json:"entries"`
	Skipped         []int               `json:"skipped_lines,omitempty"`
}

type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// EntryHistogram counts a month of entries by weekday and by hour.
type EntryHistogram struct {
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Total     int             `json:"total"`
	ByWeekday [7]WeekdayCount `json:"by_weekday"`
	ByHour    [24]int         `json:"by_hour"`
	Skipped   []int           `json:"skipped_lines,omitempty"`
}

func validMonth(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", gymerr.ErrInvalidFormat, month)
	}
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", gymerr.ErrInvalidFormat, year)
	}
	return nil
}

func inMonth(t time.Time, month, year int) bool {
	return t.Year() == year && int(t.Month()) == month
}

// MonthlyReport replays the cash log and aggregates the records of the
// given month.
func (l *Ledger) MonthlyReport(ctx context.Context, month, year int) (*MonthlyReport, error) {
	if err := validMonth(month, year); err != nil {
		return nil, err
	}
	ctx, span := l.tracer.Start(ctx, "ledger.monthly_report", trace.WithAttributes(
		attribute.Int("report.month", month),
		attribute.Int("report.year", year),
	))
	defer span.End()

	rep := &MonthlyReport{
		Month:      month,
		Year:       year,
		ByCategory: map[Category]Bucket{},
		ByDay:      []DayTotal{},
	}
	days := map[int]*DayTotal{}

	err := l.replayCash(ctx, func(rec CashRecord) {
		if !inMonth(rec.At, month, year) {
			return
		}
		rep.Total += rec.Amount
		rep.Records++

		switch {
		case membershipCategories[rec.Category]:
			rep.Membership.add(rec.Amount)
		case singleEntryCategories[rec.Category]:
			rep.SingleEntry.add(rec.Amount)
		default:
			rep.Other.add(rec.Amount)
		}
		b := rep.ByCategory[rec.Category]
		b.add(rec.Amount)
		rep.ByCategory[rec.Category] = b

		d, ok := days[rec.At.Day()]
		if !ok {
			d = &DayTotal{Day: rec.At.Day()}
			days[d.Day] = d
		}
		d.Amount += rec.Amount
		d.Count++
	}, &rep.Skipped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, d := range days {
		rep.ByDay = append(rep.ByDay, *d)
	}
	sort.Slice(rep.ByDay, func(i, j int) bool { return rep.ByDay[i].Day < rep.ByDay[j].Day })
	for i := range rep.ByDay {
		if rep.PeakDay == nil || rep.ByDay[i].Amount > rep.PeakDay.Amount {
			peak := rep.ByDay[i]
			rep.PeakDay = &peak
		}
	}
	return rep, nil
}

// DailyReport replays both logs and aggregates the records dated on the
// calendar day of date.
func (l *Ledger) DailyReport(ctx context.Context, date time.Time) (*DailyReport, error) {
	day := timezone.Date(date)
	ctx, span := l.tracer.Start(ctx, "ledger.daily_report", trace.WithAttributes(
		attribute.String("report.date", timezone.FormatDate(day)),
	))
	defer span.End()

	rep := &DailyReport{Date: day, ByCategory: map[Category]Bucket{}}

	err := l.replayCash(ctx, func(rec CashRecord) {
		if !timezone.Date(rec.At).Equal(day) {
			return
		}
		rep.CashTotal += rec.Amount
		rep.CashRecords++
		if membershipCategories[rec.Category] {
			rep.MembershipSales++
		}
		b := rep.ByCategory[rec.Category]
		b.add(rec.Amount)
		rep.ByCategory[rec.Category] = b
	}, &rep.Skipped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var entrySkipped []int
	err = l.replayEntries(ctx, func(rec EntryRecord) {
		if !timezone.Date(rec.At).Equal(day) {
			return
		}
		rep.Entries.Total++
		switch rec.Membership {
		case membership.PaymentPaid:
			rep.Entries.PaidMembership++
		case membership.PaymentPending:
			rep.Entries.PendingMembership++
		default:
			rep.Entries.NoMembership++
		}
	}, &entrySkipped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rep.Skipped = append(rep.Skipped, entrySkipped...)
	return rep, nil
}

// EntryHistogram replays the entry log for one month. The caller says
// which weekday the 1st fell on (0 is Monday); every other day is placed
// by offset from it.
func (l *Ledger) EntryHistogram(ctx context.Context, month, year, weekdayOfFirst int) (*EntryHistogram, error) {
	if err := validMonth(month, year); err != nil {
		return nil, err
	}
	if weekdayOfFirst < 0 || weekdayOfFirst > 6 {
		return nil, fmt.Errorf("%w: weekday %d must be between 0 and 6", gymerr.ErrInvalidFormat, weekdayOfFirst)
	}
	ctx, span := l.tracer.Start(ctx, "ledger.entry_histogram", trace.WithAttributes(
		attribute.Int("report.month", month),
		attribute.Int("report.year", year),
	))
	defer span.End()

	h := &EntryHistogram{Month: month, Year: year}
	for i, name := range WeekdayNames {
		h.ByWeekday[i].Weekday = name
	}

	err := l.replayEntries(ctx, func(rec EntryRecord) {
		if !inMonth(rec.At, month, year) {
			return
		}
		h.Total++
		h.ByWeekday[(rec.At.Day()-1+weekdayOfFirst)%7].Count++
		h.ByHour[rec.At.Hour()]++
	}, &h.Skipped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return h, nil
}
