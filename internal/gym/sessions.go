// internal/gym/sessions.go
package gym

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gymnexus/internal/training"
)

func (s *service) CreateTrainer(ctx context.Context, name, specialty, phone string) (_ *training.Trainer, err error) {
	defer func() { s.done("create_trainer", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.directory.CreateTrainer(name, specialty, phone)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"trainer_id": t.ID,
		"specialty":  t.Specialty,
	}).Info("trainer created")
	out := *t
	return &out, nil
}

func (s *service) Trainers(ctx context.Context) []training.Trainer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []training.Trainer{}
	for _, t := range s.directory.Trainers() {
		out = append(out, *t)
	}
	return out
}

func (s *service) UpdateTrainer(ctx context.Context, id int, specialty, phone *string) (_ *training.Trainer, err error) {
	defer func() { s.done("update_trainer", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.directory.UpdateTrainer(id, specialty, phone)
	if err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

// DeleteTrainer removes the trainer together with every session it runs
// and clears those sessions from the enrolled clients.
func (s *service) DeleteTrainer(ctx context.Context, id int) (_ *TrainerDeletion, err error) {
	defer func() { s.done("delete_trainer", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	del, err := s.directory.DeleteTrainer(id)
	if err != nil {
		return nil, err
	}

	out := &TrainerDeletion{TrainerDeletion: *del}
	seen := map[int]bool{}
	for _, sess := range del.DeletedSessions {
		for _, cid := range sess.Roster {
			s.registry.LeaveSession(cid, sess.ID)
			if !seen[cid] {
				seen[cid] = true
				out.AffectedClients = append(out.AffectedClients, cid)
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"trainer_id":       id,
		"deleted_sessions": len(del.DeletedSessions),
		"affected_clients": len(out.AffectedClients),
	}).Info("trainer deleted")
	return out, nil
}

func (s *service) CreateSession(ctx context.Context, trainerID int, date time.Time, maxSeats int) (_ *SessionView, err error) {
	defer func() { s.done("create_session", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.directory.CreateSession(trainerID, date, maxSeats)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"trainer_id": trainerID,
		"max_seats":  sess.MaxSeats,
	}).Info("session created")
	view := s.view(sess)
	return &view, nil
}

func (s *service) Session(ctx context.Context, id int) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.directory.Session(id)
	if err != nil {
		return nil, err
	}
	view := s.view(sess)
	return &view, nil
}

func (s *service) Sessions(ctx context.Context) []SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []SessionView{}
	for _, sess := range s.directory.Sessions() {
		out = append(out, s.view(sess))
	}
	return out
}

func (s *service) view(sess *training.Session) SessionView {
	v := SessionView{
		Session:        sess.Clone(),
		SeatsTaken:     sess.Taken(),
		SeatsAvailable: sess.Available(),
	}
	if t, err := s.directory.Trainer(sess.TrainerID); err == nil {
		v.TrainerName = t.Name
	}
	return v
}

// DeleteSession removes a session and drops it from every enrolled
// client's view. The removed session is returned with its last roster.
func (s *service) DeleteSession(ctx context.Context, id int) (_ *training.Session, err error) {
	defer func() { s.done("delete_session", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.directory.DeleteSession(id)
	if err != nil {
		return nil, err
	}
	for _, cid := range removed.Roster {
		s.registry.LeaveSession(cid, id)
	}
	s.logger.WithFields(logrus.Fields{
		"session_id": id,
		"roster":     len(removed.Roster),
	}).Info("session deleted")
	return removed, nil
}

// Enroll seats a registered client. A full roster or a repeated
// enrolment returns false with the reason.
func (s *service) Enroll(ctx context.Context, sessionID, clientID int) (_ bool, err error) {
	defer func() { s.done("enroll", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.registry.Get(clientID); err != nil {
		return false, err
	}
	ok, err := s.directory.Enroll(sessionID, clientID)
	if !ok {
		return false, err
	}
	if err := s.registry.JoinSession(clientID, sessionID); err != nil {
		return false, err
	}
	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"client_id":  clientID,
	}).Info("client enrolled")
	return true, nil
}

func (s *service) CancelEnrollment(ctx context.Context, sessionID, clientID int) (_ bool, err error) {
	defer func() { s.done("cancel_enrollment", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.directory.CancelEnrollment(sessionID, clientID)
	if !ok {
		return false, err
	}
	s.registry.LeaveSession(clientID, sessionID)
	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"client_id":  clientID,
	}).Info("enrolment cancelled")
	return true, nil
}
