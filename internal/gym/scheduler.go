// internal/gym/scheduler.go
package gym

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"gymnexus/internal/metrics"
	"gymnexus/internal/timezone"
)

const nightlyJob = "nightly_report"

// Scheduler runs the end-of-day job: the daily cash and entry report
// plus the list of memberships expiring soon or due for renewal.
type Scheduler struct {
	service Service
	cron    *cron.Cron
	loc     *time.Location
	now     func() time.Time
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// NightlySummary is what one nightly run found.
type NightlySummary struct {
	Date          time.Time `json:"date"`
	CashTotal     int64     `json:"cash_total"`
	CashRecords   int       `json:"cash_records"`
	Entries       int       `json:"entries"`
	SkippedLines  int       `json:"skipped_lines"`
	Expiring      []int     `json:"expiring"`
	DueForRenewal []int     `json:"due_for_renewal"`
}

// NewScheduler registers the nightly job under spec, a standard five
// field cron expression evaluated in loc. An empty spec registers
// nothing and Start becomes a no-op.
func NewScheduler(service Service, spec string, loc *time.Location, logger logrus.FieldLogger, m *metrics.Metrics) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Scheduler{
		service: service,
		cron:    cron.New(cron.WithLocation(loc)),
		loc:     loc,
		now:     time.Now,
		logger:  logger.WithField("job", nightlyJob),
		metrics: m,
	}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNightly(context.Background()); err != nil {
			s.logger.WithError(err).Error("nightly report failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunNightly produces today's summary and logs it.
func (s *Scheduler) RunNightly(ctx context.Context) (_ *NightlySummary, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.JobRun(nightlyJob, err == nil)
		}
	}()

	today := timezone.Date(s.now().In(s.loc))
	daily, err := s.service.DailyReport(ctx, today)
	if err != nil {
		return nil, err
	}

	sum := &NightlySummary{
		Date:          today,
		CashTotal:     daily.CashTotal,
		CashRecords:   daily.CashRecords,
		Entries:       daily.Entries.Total,
		SkippedLines:  len(daily.Skipped),
		Expiring:      []int{},
		DueForRenewal: []int{},
	}
	for _, st := range s.service.ExpiringMemberships(ctx) {
		sum.Expiring = append(sum.Expiring, st.ClientID)
	}
	for _, st := range s.service.DueForRenewal(ctx) {
		sum.DueForRenewal = append(sum.DueForRenewal, st.ClientID)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"date":            timezone.FormatDate(today),
		"cash_total":      sum.CashTotal,
		"cash_records":    sum.CashRecords,
		"entries":         sum.Entries,
		"expiring":        len(sum.Expiring),
		"due_for_renewal": len(sum.DueForRenewal),
	})
	if sum.SkippedLines > 0 {
		entry.WithField("skipped_lines", sum.SkippedLines).Warn("nightly report skipped malformed ledger lines")
	} else {
		entry.Info("nightly report")
	}
	return sum, nil
}
