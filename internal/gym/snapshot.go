// internal/gym/snapshot.go
package gym

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymnexus/internal/clients"
	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
	"gymnexus/internal/timezone"
)

// Snapshot is a point-in-time export of the gym's identity and clients.
// Trainers, sessions and the ledger are not part of it.
type Snapshot struct {
	Gym        SnapshotGym      `json:"gym"`
	ExportedAt time.Time        `json:"exported_at"`
	Counts     SnapshotCounts   `json:"counts"`
	Clients    []SnapshotClient `json:"clients"`
}

type SnapshotGym struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Phone   string    `json:"phone"`
	Email   string    `json:"email"`
}

type SnapshotCounts struct {
	Capacity   int `json:"capacity"`
	Live       int `json:"live"`
	Historical int `json:"historical"`
	Trainers   int `json:"trainers"`
	Sessions   int `json:"sessions"`
}

type SnapshotClient struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	ExternalID   string              `json:"external_id"`
	Phone        string              `json:"phone,omitempty"`
	RegisteredAt string              `json:"registered_at"`
	Membership   *SnapshotMembership `json:"membership"`
}

type SnapshotMembership struct {
	Paid  bool   `json:"paid"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// RestoreResult reports how many snapshot clients came back. Warnings
// name memberships whose end date was recomputed.
type RestoreResult struct {
	Restored int       `json:"restored"`
	Failures []Failure `json:"failures,omitempty"`
	Warnings []Failure `json:"warnings,omitempty"`
}

func (s *service) Export(ctx context.Context) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Gym: SnapshotGym{
			ID:      s.settings.ID,
			Name:    s.settings.Name,
			Address: s.settings.Address,
			Phone:   s.settings.Phone,
			Email:   s.settings.Email,
		},
		ExportedAt: s.now().Truncate(time.Second),
		Counts: SnapshotCounts{
			Capacity:   s.registry.Capacity(),
			Live:       s.registry.Live(),
			Historical: s.registry.Historical(),
			Trainers:   len(s.directory.Trainers()),
			Sessions:   len(s.directory.Sessions()),
		},
		Clients: []SnapshotClient{},
	}
	for _, c := range s.registry.All() {
		sc := SnapshotClient{
			ID:           c.ID,
			Name:         c.Name,
			ExternalID:   c.ExternalID,
			Phone:        c.Phone,
			RegisteredAt: timezone.FormatDate(c.RegisteredAt),
		}
		if m := c.Membership; m != nil {
			sc.Membership = &SnapshotMembership{
				Paid:  m.Paid,
				Start: timezone.FormatDate(m.Start),
				End:   timezone.FormatDate(m.End),
			}
		}
		snap.Clients = append(snap.Clients, sc)
	}
	return snap
}

// Restore loads a snapshot into a gym that has never registered a
// client. Ids are kept and the historical counter resumes after the
// highest id the snapshot had issued.
func (s *service) Restore(ctx context.Context, snap *Snapshot) (_ *RestoreResult, err error) {
	defer func() { s.done("restore", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry.Historical() > 0 {
		return nil, fmt.Errorf("%w: gym already has clients", gymerr.ErrAlreadyExists)
	}

	today := timezone.Date(s.now())
	res := &RestoreResult{}
	for _, sc := range snap.Clients {
		ref := "client " + strconv.Itoa(sc.ID)
		c, adj, err := s.snapshotClient(sc, today)
		if err == nil {
			_, err = s.registry.Restore(c)
		}
		if err != nil {
			res.Failures = append(res.Failures, failure(ref, err))
			continue
		}
		if adj != nil {
			res.Warnings = append(res.Warnings, Failure{Ref: ref, Kind: "Adjusted", Message: adj.String()})
		}
		res.Restored++
	}
	s.registry.AdvanceHistorical(snap.Counts.Historical)
	if snap.Gym.ID != uuid.Nil {
		s.settings.ID = snap.Gym.ID
	}
	s.metrics.SetLiveClients(s.registry.Live())

	s.logger.WithFields(logrus.Fields{
		"restored": res.Restored,
		"failed":   len(res.Failures),
		"adjusted": len(res.Warnings),
	}).Info("snapshot restored")
	return res, nil
}

// snapshotClient rebuilds a client, passing any membership window back
// through the policy so a tampered end date is recomputed.
func (s *service) snapshotClient(sc SnapshotClient, today time.Time) (clients.Client, *membership.Adjustment, error) {
	c := clients.Client{
		ID:         sc.ID,
		Name:       sc.Name,
		ExternalID: sc.ExternalID,
		Phone:      sc.Phone,
	}
	registered, err := timezone.ParseDate(sc.RegisteredAt)
	if err != nil {
		return c, nil, err
	}
	c.RegisteredAt = registered

	if sc.Membership == nil {
		return c, nil, nil
	}
	start, err := timezone.ParseDate(sc.Membership.Start)
	if err != nil {
		return c, nil, err
	}
	end, err := timezone.ParseDate(sc.Membership.End)
	if err != nil {
		return c, nil, err
	}
	m, adj := s.settings.Policy.New(today, &start, &end, sc.Membership.Paid)
	c.Membership = m
	return c, adj, nil
}

// WriteSnapshot encodes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", gymerr.ErrMalformedRecord, err)
	}
	return &snap, nil
}
