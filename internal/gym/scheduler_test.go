package gym

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/metrics"
)

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	f := newFixture(t)
	logger, _ := test.NewNullLogger()

	_, err := NewScheduler(f.svc, "every night", time.UTC, logger, metrics.New())
	assert.Error(t, err)

	s, err := NewScheduler(f.svc, "", time.UTC, logger, metrics.New())
	require.NoError(t, err)
	s.Start()
	s.Stop(context.Background())
}

func TestNewScheduler_Defaults(t *testing.T) {
	f := newFixture(t)

	s, err := NewScheduler(f.svc, "", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Local, s.loc)

	sum, err := s.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.CashRecords)
}

func TestRunNightly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	logger, hook := test.NewNullLogger()

	ana, _ := f.svc.RegisterClient(ctx, "Ana", "1001", "")
	luis, _ := f.svc.RegisterClient(ctx, "Luis", "1002", "")
	_, err := f.svc.CreateMembership(ctx, ana.ID, MembershipRequest{Start: date(2025, 6, 10), Paid: true})
	require.NoError(t, err)
	_, err = f.svc.CreateMembership(ctx, luis.ID, MembershipRequest{Start: date(2025, 6, 3), Paid: true})
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, ana.ID, "")
	require.NoError(t, err)

	s, err := NewScheduler(f.svc, "0 23 * * *", time.UTC, logger, metrics.New())
	require.NoError(t, err)
	s.now = f.clock.now

	sum, err := s.RunNightly(ctx)
	require.NoError(t, err)
	assert.Equal(t, *date(2025, 7, 5), sum.Date)
	assert.Equal(t, int64(100000), sum.CashTotal)
	assert.Equal(t, 2, sum.CashRecords)
	assert.Equal(t, 1, sum.Entries)
	assert.Equal(t, []int{ana.ID}, sum.Expiring, "ana ends on 2025-07-10")
	assert.Equal(t, []int{luis.ID}, sum.DueForRenewal, "luis ended on 2025-07-03")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "nightly report", entry.Message)
	assert.Equal(t, nightlyJob, entry.Data["job"])
}
