// internal/gym/service.go
package gym

import (
	"context"
	"io"
	"time"

	"gymnexus/internal/clients"
	"gymnexus/internal/ledger"
	"gymnexus/internal/pricing"
	"gymnexus/internal/training"
)

// Service is the request/response surface of one gym. Every call runs to
// completion before the next one starts.
type Service interface {
	Info(ctx context.Context) Info

	RegisterClient(ctx context.Context, name, externalID, phone string) (*clients.Client, error)
	Client(ctx context.Context, id int) (*clients.Client, error)
	FindClient(ctx context.Context, by clients.Criterion, value string) (*clients.Client, error)
	FindClientsByName(ctx context.Context, name string) []clients.Client
	Clients(ctx context.Context) []clients.Client
	UpdateClient(ctx context.Context, id int, name, phone *string) (*clients.Client, error)
	DeleteClient(ctx context.Context, id int, confirmed bool) (*ClientDeletion, error)

	CreateMembership(ctx context.Context, clientID int, req MembershipRequest) (*MembershipResult, error)
	PayMembership(ctx context.Context, clientID int) (bool, error)
	RenewMembership(ctx context.Context, clientID int, start, end *time.Time) (*RenewalResult, error)
	RemoveMembership(ctx context.Context, clientID int) error
	MembershipStatus(ctx context.Context, clientID int) (*MembershipStatus, error)
	DueForRenewal(ctx context.Context) []MembershipStatus
	ExpiringMemberships(ctx context.Context) []MembershipStatus

	CreateTrainer(ctx context.Context, name, specialty, phone string) (*training.Trainer, error)
	Trainers(ctx context.Context) []training.Trainer
	UpdateTrainer(ctx context.Context, id int, specialty, phone *string) (*training.Trainer, error)
	DeleteTrainer(ctx context.Context, id int) (*TrainerDeletion, error)

	CreateSession(ctx context.Context, trainerID int, date time.Time, maxSeats int) (*SessionView, error)
	Session(ctx context.Context, id int) (*SessionView, error)
	Sessions(ctx context.Context) []SessionView
	DeleteSession(ctx context.Context, id int) (*training.Session, error)
	Enroll(ctx context.Context, sessionID, clientID int) (bool, error)
	CancelEnrollment(ctx context.Context, sessionID, clientID int) (bool, error)

	CheckIn(ctx context.Context, clientID int, reason string) (*ledger.EntryRecord, error)
	SellSingleEntry(ctx context.Context, clientID *int, reason string) (*SingleEntrySale, error)
	Deposit(ctx context.Context, amount int64) (*ledger.CashRecord, error)
	Balance(ctx context.Context) int64

	MonthlyReport(ctx context.Context, month, year int) (*ledger.MonthlyReport, error)
	DailyReport(ctx context.Context, date time.Time) (*ledger.DailyReport, error)
	EntryHistogram(ctx context.Context, month, year, weekdayOfFirst int) (*ledger.EntryHistogram, error)

	Prices(ctx context.Context) pricing.Prices
	UpdatePrice(ctx context.Context, pin string, item pricing.Item, amount int64) (*pricing.Change, error)

	ImportClients(ctx context.Context, r io.Reader) (*ImportResult, error)
	Export(ctx context.Context) *Snapshot
	Restore(ctx context.Context, snap *Snapshot) (*RestoreResult, error)
}
