// internal/gym/domain.go
package gym

import (
	"time"

	"github.com/google/uuid"

	"gymnexus/internal/clients"
	"gymnexus/internal/config"
	"gymnexus/internal/ledger"
	"gymnexus/internal/membership"
	"gymnexus/internal/training"
)

// Settings fixes the identity and limits of one gym instance.
type Settings struct {
	ID           uuid.UUID
	Name         string
	Address      string
	Phone        string
	Email        string
	MaxClients   int
	MaxTrainers  int
	MaxSessions  int
	SessionSeats int
	Specialties  []string
	Policy       membership.Policy
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Name:         cfg.Gym.Name,
		Address:      cfg.Gym.Address,
		Phone:        cfg.Gym.Phone,
		Email:        cfg.Gym.Email,
		MaxClients:   cfg.Limits.MaxClients,
		MaxTrainers:  cfg.Limits.MaxTrainers,
		MaxSessions:  cfg.Limits.MaxSessions,
		SessionSeats: cfg.Limits.SessionSeats,
		Specialties:  cfg.Specialties,
		Policy: membership.Policy{
			Days:           cfg.Limits.MembershipDays,
			ExpiringWithin: cfg.Limits.ExpiringWithin,
		},
	}
}

// Info summarizes the gym.
type Info struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Address           string    `json:"address"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	Capacity          int       `json:"capacity"`
	LiveClients       int       `json:"live_clients"`
	HistoricalClients int       `json:"historical_clients"`
	Trainers          int       `json:"trainers"`
	Sessions          int       `json:"sessions"`
	Specialties       []string  `json:"specialties"`
	Balance           int64     `json:"balance"`
}

// Failure is one item of a cascade or batch that could not be processed.
// Line is set for import rows, Ref for everything else.
type Failure struct {
	Line    int    `json:"line,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func failure(ref string, err error) Failure {
	return Failure{Ref: ref, Kind: kindOf(err), Message: err.Error()}
}

// ClientDeletion reports what deleting a client touched. Deleted is false
// when the caller did not confirm.
type ClientDeletion struct {
	Deleted           bool                   `json:"deleted"`
	Client            *clients.Client        `json:"client,omitempty"`
	RemovedMembership *membership.Membership `json:"removed_membership,omitempty"`
	LeftSessions      []int                  `json:"left_sessions,omitempty"`
	Failures          []Failure              `json:"failures,omitempty"`
}

// MembershipRequest describes a new membership. Nil dates take defaults.
type MembershipRequest struct {
	Start *time.Time
	End   *time.Time
	Paid  bool
}

// MembershipResult is a created or renewed membership. Adjustment is set
// when the supplied end date was recomputed; Charge when cash was taken.
type MembershipResult struct {
	ClientID   int                    `json:"client_id"`
	Membership membership.Membership  `json:"membership"`
	Adjustment *membership.Adjustment `json:"adjustment,omitempty"`
	Charge     *ledger.CashRecord     `json:"charge,omitempty"`
}

// RenewalResult is returned by RenewMembership. Renewed is false when the
// membership was unpaid or still active; nothing changes then.
type RenewalResult struct {
	Renewed bool `json:"renewed"`
	MembershipResult
}

type MembershipStatus struct {
	ClientID      int                     `json:"client_id"`
	Name          string                  `json:"name"`
	ExternalID    string                  `json:"external_id"`
	Payment       membership.PaymentState `json:"payment"`
	Validity      membership.Validity     `json:"validity"`
	DaysRemaining *int                    `json:"days_remaining,omitempty"`
	Start         *time.Time              `json:"start,omitempty"`
	End           *time.Time              `json:"end,omitempty"`
	DueForRenewal bool                    `json:"due_for_renewal"`
}

// SessionView is a session together with its seat counts and trainer.
type SessionView struct {
	training.Session
	TrainerName    string `json:"trainer_name"`
	SeatsTaken     int    `json:"seats_taken"`
	SeatsAvailable int    `json:"seats_available"`
}

// TrainerDeletion lists the sessions removed with a trainer and the
// clients who lost a seat.
type TrainerDeletion struct {
	training.TrainerDeletion
	AffectedClients []int `json:"affected_clients,omitempty"`
}

// SingleEntrySale is the cash record of a single entry and, when a client
// was named, the entry it produced.
type SingleEntrySale struct {
	Charge ledger.CashRecord   `json:"charge"`
	Entry  *ledger.EntryRecord `json:"entry,omitempty"`
}
