// internal/gym/implementation.go
package gym

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/clients"
	"gymnexus/internal/gymerr"
	"gymnexus/internal/ledger"
	"gymnexus/internal/membership"
	"gymnexus/internal/metrics"
	"gymnexus/internal/pricing"
	"gymnexus/internal/timezone"
	"gymnexus/internal/training"
)

// service implements the Service interface. One mutex serializes every
// operation; the registry, the directory and the ledger appends are not
// designed for concurrent callers.
type service struct {
	mu sync.Mutex

	settings  Settings
	registry  *clients.Registry
	directory *training.Directory
	ledger    *ledger.Ledger
	prices    pricing.Service

	now     func() time.Time
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// NewService creates a gym with an empty registry and directory.
func NewService(settings Settings, l *ledger.Ledger, prices pricing.Service, opts ...Option) (Service, error) {
	if settings.MaxClients <= 0 {
		return nil, fmt.Errorf("%w: client capacity %d", gymerr.ErrInvalidFormat, settings.MaxClients)
	}
	if settings.Policy.Days <= 0 {
		settings.Policy = membership.DefaultPolicy()
	}
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}

	s := &service{
		settings:  settings,
		registry:  clients.NewRegistry(settings.MaxClients),
		directory: training.NewDirectory(settings.Specialties, settings.SessionSeats).
			Limit(settings.MaxTrainers, settings.MaxSessions),
		ledger:    l,
		prices:    prices,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
		tracer:    otel.Tracer("gymnexus/gym"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s, nil
}

func kindOf(err error) string {
	return gymerr.Kind(err)
}

func (s *service) today() time.Time {
	return timezone.Date(s.now())
}

// done records the outcome of an operation.
func (s *service) done(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = kindOf(err)
	}
	s.metrics.Operation(op, outcome)
}

func (s *service) Info(ctx context.Context) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Info{
		ID:                s.settings.ID,
		Name:              s.settings.Name,
		Address:           s.settings.Address,
		Phone:             s.settings.Phone,
		Email:             s.settings.Email,
		Capacity:          s.registry.Capacity(),
		LiveClients:       s.registry.Live(),
		HistoricalClients: s.registry.Historical(),
		Trainers:          len(s.directory.Trainers()),
		Sessions:          len(s.directory.Sessions()),
		Specialties:       s.directory.Specialties(),
		Balance:           s.ledger.Balance(),
	}
}

// RegisterClient adds a client dated today.
func (s *service) RegisterClient(ctx context.Context, name, externalID, phone string) (_ *clients.Client, err error) {
	defer func() { s.done("register_client", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Create(name, externalID, phone, s.today())
	if err != nil {
		return nil, err
	}
	s.metrics.SetLiveClients(s.registry.Live())
	s.logger.WithFields(logrus.Fields{
		"client_id":   c.ID,
		"external_id": c.ExternalID,
	}).Info("client registered")

	out := c.Clone()
	return &out, nil
}

func (s *service) Client(ctx context.Context, id int) (*clients.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	out := c.Clone()
	return &out, nil
}

// FindClient returns the first match. Use FindClientsByName to see every
// client sharing a name.
func (s *service) FindClient(ctx context.Context, by clients.Criterion, value string) (*clients.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Find(by, value)
	if err != nil {
		return nil, err
	}
	out := c.Clone()
	return &out, nil
}

func (s *service) FindClientsByName(ctx context.Context, name string) []clients.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneClients(s.registry.FindByName(name))
}

func (s *service) Clients(ctx context.Context) []clients.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneClients(s.registry.All())
}

func cloneClients(in []*clients.Client) []clients.Client {
	out := make([]clients.Client, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}

func (s *service) UpdateClient(ctx context.Context, id int, name, phone *string) (_ *clients.Client, err error) {
	defer func() { s.done("update_client", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Update(id, name, phone)
	if err != nil {
		return nil, err
	}
	out := c.Clone()
	return &out, nil
}

// DeleteClient removes a client once the caller has confirmed. The
// membership goes first, then every roster seat, then the slot itself,
// so a failure part way leaves no roster pointing at an empty slot.
// Roster failures are collected and do not stop the deletion.
func (s *service) DeleteClient(ctx context.Context, id int, confirmed bool) (_ *ClientDeletion, err error) {
	defer func() { s.done("delete_client", err) }()
	_, span := s.tracer.Start(ctx, "gym.delete_client", trace.WithAttributes(attribute.Int("client.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return &ClientDeletion{Deleted: false}, nil
	}

	snapshot := c.Clone()
	out := &ClientDeletion{Client: &snapshot}

	if m, err := s.registry.DetachMembership(id); err == nil {
		out.RemovedMembership = m
	} else if !errors.Is(err, gymerr.ErrNotFound) {
		out.Failures = append(out.Failures, failure("membership", err))
	}

	for _, sid := range s.directory.SessionsWith(id) {
		if _, err := s.directory.CancelEnrollment(sid, id); err != nil {
			out.Failures = append(out.Failures, failure("session "+strconv.Itoa(sid), err))
			continue
		}
		s.registry.LeaveSession(id, sid)
		out.LeftSessions = append(out.LeftSessions, sid)
	}

	if err := s.registry.Remove(id); err != nil {
		span.RecordError(err)
		return out, err
	}
	out.Deleted = true
	s.metrics.SetLiveClients(s.registry.Live())

	entry := s.logger.WithFields(logrus.Fields{
		"client_id":     id,
		"left_sessions": len(out.LeftSessions),
	})
	if len(out.Failures) > 0 {
		entry.WithField("failures", len(out.Failures)).Warn("client deleted with cascade failures")
	} else {
		entry.Info("client deleted")
	}
	return out, nil
}

// CreateMembership attaches a new membership. A paid membership is
// charged at the current membership price; if that charge cannot be
// recorded the membership is detached again.
func (s *service) CreateMembership(ctx context.Context, clientID int, req MembershipRequest) (_ *MembershipResult, err error) {
	defer func() { s.done("create_membership", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Get(clientID)
	if err != nil {
		return nil, err
	}
	if c.Membership != nil {
		return nil, fmt.Errorf("%w: client %d already has a membership", gymerr.ErrAlreadyExists, clientID)
	}

	m, adj := s.settings.Policy.New(s.today(), req.Start, req.End, req.Paid)
	if err := s.registry.AttachMembership(clientID, m); err != nil {
		return nil, err
	}
	s.warnAdjustment(clientID, adj)

	out := &MembershipResult{ClientID: clientID, Adjustment: adj}
	if req.Paid {
		rec, err := s.charge(ctx, pricing.ItemMembership, ledger.CategoryMembershipSale)
		if err != nil {
			if _, derr := s.registry.DetachMembership(clientID); derr != nil {
				s.logger.WithError(derr).WithField("client_id", clientID).Error("failed to compensate membership sale")
			}
			return nil, err
		}
		out.Charge = rec
	}
	out.Membership = *m

	s.logger.WithFields(logrus.Fields{
		"client_id": clientID,
		"paid":      m.Paid,
		"end":       timezone.FormatDate(m.End),
	}).Info("membership created")
	return out, nil
}

// PayMembership marks the membership paid and records the payment. It
// returns false when the membership was already paid.
func (s *service) PayMembership(ctx context.Context, clientID int) (_ bool, err error) {
	defer func() { s.done("pay_membership", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.membershipOf(clientID)
	if err != nil {
		return false, err
	}
	if !m.Pay() {
		return false, nil
	}
	if _, err := s.charge(ctx, pricing.ItemMembership, ledger.CategoryMembershipPayment); err != nil {
		m.Paid = false
		return false, err
	}
	s.logger.WithField("client_id", clientID).Info("membership paid")
	return true, nil
}

// RenewMembership opens a fresh window on an expired paid membership and
// charges the renewal. Unpaid or still active memberships are left alone.
func (s *service) RenewMembership(ctx context.Context, clientID int, start, end *time.Time) (_ *RenewalResult, err error) {
	defer func() { s.done("renew_membership", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.membershipOf(clientID)
	if err != nil {
		return nil, err
	}
	previous := *m

	renewed, adj := s.settings.Policy.Renew(m, s.today(), start, end)
	out := &RenewalResult{Renewed: renewed}
	out.ClientID = clientID
	if !renewed {
		out.Membership = *m
		return out, nil
	}
	s.warnAdjustment(clientID, adj)

	rec, err := s.charge(ctx, pricing.ItemMembership, ledger.CategoryMembershipRenewal)
	if err != nil {
		*m = previous
		return nil, err
	}
	out.Membership = *m
	out.Adjustment = adj
	out.Charge = rec

	s.logger.WithFields(logrus.Fields{
		"client_id": clientID,
		"end":       timezone.FormatDate(m.End),
	}).Info("membership renewed")
	return out, nil
}

func (s *service) RemoveMembership(ctx context.Context, clientID int) (err error) {
	defer func() { s.done("remove_membership", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.registry.DetachMembership(clientID); err != nil {
		return err
	}
	s.logger.WithField("client_id", clientID).Info("membership removed")
	return nil
}

func (s *service) MembershipStatus(ctx context.Context, clientID int) (*MembershipStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Get(clientID)
	if err != nil {
		return nil, err
	}
	st := s.status(c, s.today())
	return &st, nil
}

// DueForRenewal lists paid memberships whose window has run out.
func (s *service) DueForRenewal(ctx context.Context) []MembershipStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	out := []MembershipStatus{}
	for _, c := range s.registry.All() {
		if c.Membership != nil && c.Membership.DueForRenewal(today) {
			out = append(out, s.status(c, today))
		}
	}
	return out
}

// ExpiringMemberships lists memberships inside the expiring window.
func (s *service) ExpiringMemberships(ctx context.Context) []MembershipStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	out := []MembershipStatus{}
	for _, c := range s.registry.All() {
		if s.settings.Policy.Validity(c.Membership, today) == membership.ValidityExpiring {
			out = append(out, s.status(c, today))
		}
	}
	return out
}

func (s *service) status(c *clients.Client, today time.Time) MembershipStatus {
	st := MembershipStatus{
		ClientID:   c.ID,
		Name:       c.Name,
		ExternalID: c.ExternalID,
		Payment:    membership.Payment(c.Membership),
		Validity:   s.settings.Policy.Validity(c.Membership, today),
	}
	if m := c.Membership; m != nil {
		days := m.DaysRemaining(today)
		start, end := m.Start, m.End
		st.DaysRemaining = &days
		st.Start = &start
		st.End = &end
		st.DueForRenewal = m.DueForRenewal(today)
	}
	return st
}

func (s *service) membershipOf(clientID int) (*membership.Membership, error) {
	c, err := s.registry.Get(clientID)
	if err != nil {
		return nil, err
	}
	if c.Membership == nil {
		return nil, fmt.Errorf("%w: client %d has no membership", gymerr.ErrNotFound, clientID)
	}
	return c.Membership, nil
}

func (s *service) warnAdjustment(clientID int, adj *membership.Adjustment) {
	if adj == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"client_id":     clientID,
		"supplied_end":  timezone.FormatDate(adj.SuppliedEnd),
		"supplied_days": adj.SuppliedDays,
		"end":           timezone.FormatDate(adj.End),
	}).Warn("membership end date recomputed")
}

// charge appends a cash record for the current price of item.
func (s *service) charge(ctx context.Context, item pricing.Item, category ledger.Category) (*ledger.CashRecord, error) {
	price, err := s.prices.Price(ctx, item)
	if err != nil {
		return nil, err
	}
	rec, err := s.ledger.AppendCash(ctx, price, category)
	if err != nil {
		return nil, err
	}
	s.metrics.CashAppended(string(category), price)
	return &rec, nil
}
