// internal/training/domain.go
package training

import "time"

// Trainer represents a gym trainer.
type Trainer struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone,omitempty"`
}

// Session is a trainer-led special session with a bounded roster.
type Session struct {
	ID        int       `json:"id"`
	TrainerID int       `json:"trainer_id"`
	Specialty string    `json:"specialty"`
	Date      time.Time `json:"date"`
	MaxSeats  int       `json:"max_seats"`
	Roster    []int     `json:"roster"`
}

func (s *Session) Taken() int     { return len(s.Roster) }
func (s *Session) Available() int { return s.MaxSeats - len(s.Roster) }

func (s *Session) Has(clientID int) bool {
	return s.indexOf(clientID) >= 0
}

func (s *Session) indexOf(clientID int) int {
	for i, id := range s.Roster {
		if id == clientID {
			return i
		}
	}
	return -1
}

// Clone returns a copy with its own roster.
func (s *Session) Clone() Session {
	out := *s
	out.Roster = append([]int{}, s.Roster...)
	return out
}

// TrainerDeletion reports what deleting a trainer took with it.
type TrainerDeletion struct {
	Trainer         Trainer   `json:"trainer"`
	DeletedSessions []Session `json:"deleted_sessions"`
}
