// internal/training/directory.go
package training

import (
	"fmt"
	"strings"
	"time"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/timezone"
	"gymnexus/internal/validate"
)

// Directory holds trainers and their special sessions. Deleting a trainer
// deletes every session that trainer runs, so a session never points at a
// trainer that no longer exists.
//
// Directory is not safe for concurrent use; the gym facade serializes
// access to it.
type Directory struct {
	specialties  []string
	defaultSeats int
	maxTrainers  int
	maxSessions  int

	trainers    []*Trainer
	sessions    []*Session
	lastTrainer int
	lastSession int
}

// NewDirectory creates a directory accepting the given specialties.
// Sessions created without an explicit capacity get defaultSeats.
func NewDirectory(specialties []string, defaultSeats int) *Directory {
	return &Directory{
		specialties:  append([]string(nil), specialties...),
		defaultSeats: defaultSeats,
	}
}

// Limit caps how many trainers and sessions may exist at once. Zero
// leaves that count unbounded.
func (d *Directory) Limit(trainers, sessions int) *Directory {
	d.maxTrainers, d.maxSessions = trainers, sessions
	return d
}

func (d *Directory) Specialties() []string {
	return append([]string(nil), d.specialties...)
}

func (d *Directory) canonicalSpecialty(s string) (string, error) {
	for _, known := range d.specialties {
		if strings.EqualFold(known, strings.TrimSpace(s)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not one of %s", gymerr.ErrInvalidSpecialty, s, strings.Join(d.specialties, ", "))
}

// CreateTrainer adds a trainer with one of the configured specialties.
func (d *Directory) CreateTrainer(name, specialty, phone string) (*Trainer, error) {
	if !validate.IsAlpha(name) {
		return nil, fmt.Errorf("%w: trainer name %q must contain letters only", gymerr.ErrInvalidFormat, name)
	}
	if phone != "" && !validate.IsNumber(phone) {
		return nil, fmt.Errorf("%w: phone %q must contain digits only", gymerr.ErrInvalidFormat, phone)
	}
	spec, err := d.canonicalSpecialty(specialty)
	if err != nil {
		return nil, err
	}
	if d.maxTrainers > 0 && len(d.trainers) >= d.maxTrainers {
		return nil, fmt.Errorf("%w: %d trainers already registered", gymerr.ErrCapacityExceeded, d.maxTrainers)
	}

	d.lastTrainer++
	t := &Trainer{
		ID:        d.lastTrainer,
		Name:      name,
		Specialty: spec,
		Phone:     phone,
	}
	d.trainers = append(d.trainers, t)
	return t, nil
}

func (d *Directory) Trainer(id int) (*Trainer, error) {
	for _, t := range d.trainers {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: trainer %d", gymerr.ErrNotFound, id)
}

func (d *Directory) Trainers() []*Trainer {
	return append([]*Trainer(nil), d.trainers...)
}

// UpdateTrainer changes a trainer's specialty and/or phone. Sessions keep
// the specialty they were created with.
func (d *Directory) UpdateTrainer(id int, specialty, phone *string) (*Trainer, error) {
	t, err := d.Trainer(id)
	if err != nil {
		return nil, err
	}
	var spec string
	if specialty != nil {
		if spec, err = d.canonicalSpecialty(*specialty); err != nil {
			return nil, err
		}
	}
	if phone != nil && *phone != "" && !validate.IsNumber(*phone) {
		return nil, fmt.Errorf("%w: phone %q must contain digits only", gymerr.ErrInvalidFormat, *phone)
	}

	if specialty != nil {
		t.Specialty = spec
	}
	if phone != nil {
		t.Phone = *phone
	}
	return t, nil
}

// DeleteTrainer removes the trainer and every session it runs. The
// removed sessions are returned, rosters intact, so the caller can clear
// each enrolled client's view.
func (d *Directory) DeleteTrainer(id int) (*TrainerDeletion, error) {
	idx := -1
	for i, t := range d.trainers {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: trainer %d", gymerr.ErrNotFound, id)
	}

	out := &TrainerDeletion{Trainer: *d.trainers[idx]}
	kept := d.sessions[:0]
	for _, s := range d.sessions {
		if s.TrainerID == id {
			out.DeletedSessions = append(out.DeletedSessions, s.Clone())
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(d.sessions); i++ {
		d.sessions[i] = nil
	}
	d.sessions = kept
	d.trainers = append(d.trainers[:idx], d.trainers[idx+1:]...)
	return out, nil
}

// CreateSession schedules a session run by an existing trainer. A
// maxSeats of zero selects the configured default.
func (d *Directory) CreateSession(trainerID int, date time.Time, maxSeats int) (*Session, error) {
	t, err := d.Trainer(trainerID)
	if err != nil {
		return nil, err
	}
	if maxSeats == 0 {
		maxSeats = d.defaultSeats
	}
	if maxSeats < 0 {
		return nil, fmt.Errorf("%w: session capacity %d", gymerr.ErrInvalidFormat, maxSeats)
	}
	if d.maxSessions > 0 && len(d.sessions) >= d.maxSessions {
		return nil, fmt.Errorf("%w: %d sessions already scheduled", gymerr.ErrCapacityExceeded, d.maxSessions)
	}

	d.lastSession++
	s := &Session{
		ID:        d.lastSession,
		TrainerID: t.ID,
		Specialty: t.Specialty,
		Date:      timezone.Date(date),
		MaxSeats:  maxSeats,
		Roster:    []int{},
	}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *Directory) Session(id int) (*Session, error) {
	for _, s := range d.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: session %d", gymerr.ErrNotFound, id)
}

func (d *Directory) Sessions() []*Session {
	return append([]*Session(nil), d.sessions...)
}

// Enroll appends clientID to the session roster. A full roster or a
// client already on it leaves the roster untouched and returns false
// with ErrCapacityFull or ErrAlreadyEnrolled.
func (d *Directory) Enroll(sessionID, clientID int) (bool, error) {
	s, err := d.Session(sessionID)
	if err != nil {
		return false, err
	}
	if len(s.Roster) >= s.MaxSeats {
		return false, fmt.Errorf("%w: session %d has %d/%d seats taken", gymerr.ErrCapacityFull, s.ID, len(s.Roster), s.MaxSeats)
	}
	if s.Has(clientID) {
		return false, fmt.Errorf("%w: client %d in session %d", gymerr.ErrAlreadyEnrolled, clientID, s.ID)
	}
	s.Roster = append(s.Roster, clientID)
	return true, nil
}

// CancelEnrollment removes clientID from the roster, keeping the order of
// the remaining clients.
func (d *Directory) CancelEnrollment(sessionID, clientID int) (bool, error) {
	s, err := d.Session(sessionID)
	if err != nil {
		return false, err
	}
	i := s.indexOf(clientID)
	if i < 0 {
		return false, fmt.Errorf("%w: client %d in session %d", gymerr.ErrNotEnrolled, clientID, s.ID)
	}
	s.Roster = append(s.Roster[:i], s.Roster[i+1:]...)
	return true, nil
}

// DeleteSession removes a session and returns it with the roster it had.
func (d *Directory) DeleteSession(id int) (*Session, error) {
	for i, s := range d.sessions {
		if s.ID != id {
			continue
		}
		removed := s.Clone()
		s.Roster = s.Roster[:0]
		d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
		return &removed, nil
	}
	return nil, fmt.Errorf("%w: session %d", gymerr.ErrNotFound, id)
}

// SessionsWith returns the ids of every session whose roster holds
// clientID.
func (d *Directory) SessionsWith(clientID int) []int {
	var out []int
	for _, s := range d.sessions {
		if s.Has(clientID) {
			out = append(out, s.ID)
		}
	}
	return out
}
