// internal/clients/registry.go
package clients

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
	"gymnexus/internal/validate"
)

// Registry is a fixed-capacity slot table of clients. Deleted clients
// leave an empty slot behind that the next registration reuses, lowest
// index first. Client ids come from a historical counter that only
// grows, so an id is never handed out twice.
//
// Registry is not safe for concurrent use; the gym facade serializes
// access to it.
type Registry struct {
	slots      []*Client
	free       []int // empty slot indices, ascending
	bySlot     map[int]int
	live       int
	historical int
}

// NewRegistry creates a registry with room for capacity live clients.
func NewRegistry(capacity int) *Registry {
	r := &Registry{
		slots:  make([]*Client, capacity),
		free:   make([]int, capacity),
		bySlot: make(map[int]int, capacity),
	}
	for i := range r.free {
		r.free[i] = i
	}
	return r
}

func (r *Registry) Capacity() int   { return len(r.slots) }
func (r *Registry) Live() int       { return r.live }
func (r *Registry) Historical() int { return r.historical }

// Create registers a client. The name is stored lower-cased. phone may be
// empty.
func (r *Registry) Create(name, externalID, phone string, registeredAt time.Time) (*Client, error) {
	if err := r.checkNew(name, externalID, phone); err != nil {
		return nil, err
	}

	c := &Client{
		ID:           r.historical + 1,
		Name:         strings.ToLower(name),
		ExternalID:   externalID,
		Phone:        phone,
		RegisteredAt: registeredAt,
	}
	r.place(c)
	r.historical = c.ID
	return c, nil
}

// Restore places a client under its existing id, as recorded in a
// snapshot. The historical counter moves past the restored id.
func (r *Registry) Restore(c Client) (*Client, error) {
	if c.ID <= 0 {
		return nil, fmt.Errorf("%w: client id %d", gymerr.ErrInvalidFormat, c.ID)
	}
	if _, ok := r.bySlot[c.ID]; ok {
		return nil, fmt.Errorf("%w: client id %d already in use", gymerr.ErrDuplicateClient, c.ID)
	}
	if err := r.checkNew(c.Name, c.ExternalID, c.Phone); err != nil {
		return nil, err
	}

	restored := c.Clone()
	restored.Name = strings.ToLower(c.Name)
	restored.Sessions = nil
	r.place(&restored)
	if restored.ID > r.historical {
		r.historical = restored.ID
	}
	return &restored, nil
}

// AdvanceHistorical moves the historical counter up to n so ids issued
// before a snapshot was taken are not handed out again. It never moves
// the counter backwards.
func (r *Registry) AdvanceHistorical(n int) {
	if n > r.historical {
		r.historical = n
	}
}

func (r *Registry) checkNew(name, externalID, phone string) error {
	if r.live >= len(r.slots) {
		return fmt.Errorf("%w: registry holds %d clients", gymerr.ErrCapacityExceeded, len(r.slots))
	}
	if !validate.IsAlpha(name) {
		return fmt.Errorf("%w: name %q must contain letters only", gymerr.ErrInvalidFormat, name)
	}
	if !validate.IsNumber(externalID) {
		return fmt.Errorf("%w: external id %q must contain digits only", gymerr.ErrInvalidFormat, externalID)
	}
	if phone != "" && !validate.IsNumber(phone) {
		return fmt.Errorf("%w: phone %q must contain digits only", gymerr.ErrInvalidFormat, phone)
	}
	if existing := r.findExternal(externalID); existing != nil {
		return fmt.Errorf("%w: external id %s belongs to client %d", gymerr.ErrDuplicateClient, externalID, existing.ID)
	}
	return nil
}

func (r *Registry) place(c *Client) {
	slot := r.free[0]
	r.free = r.free[1:]
	r.slots[slot] = c
	r.bySlot[c.ID] = slot
	r.live++
}

// Get returns the live client with the given id.
func (r *Registry) Get(id int) (*Client, error) {
	slot, ok := r.bySlot[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", gymerr.ErrNotFound, id)
	}
	return r.slots[slot], nil
}

// Find scans the table for the first client matching value. Name matching
// is case-insensitive and returns the first match in slot order; use
// FindByName when duplicates matter.
func (r *Registry) Find(by Criterion, value string) (*Client, error) {
	switch by {
	case ByID:
		id, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: client id %q", gymerr.ErrInvalidFormat, value)
		}
		return r.Get(id)
	case ByExternalID:
		if c := r.findExternal(value); c != nil {
			return c, nil
		}
		return nil, fmt.Errorf("%w: client with external id %s", gymerr.ErrNotFound, value)
	case ByName:
		if matches := r.FindByName(value); len(matches) > 0 {
			return matches[0], nil
		}
		return nil, fmt.Errorf("%w: client named %q", gymerr.ErrNotFound, value)
	default:
		return nil, fmt.Errorf("%w: unknown search criterion %q", gymerr.ErrInvalidFormat, by)
	}
}

// FindByName returns every live client whose name matches, in slot order.
func (r *Registry) FindByName(name string) []*Client {
	var out []*Client
	for _, c := range r.slots {
		if c != nil && strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) findExternal(externalID string) *Client {
	for _, c := range r.slots {
		if c != nil && c.ExternalID == externalID {
			return c
		}
	}
	return nil
}

// All returns the live clients in slot order.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, r.live)
	for _, c := range r.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Update changes the name and/or phone of a client. Nil leaves a field
// untouched; an empty phone clears it.
func (r *Registry) Update(id int, name, phone *string) (*Client, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if name != nil && !validate.IsAlpha(*name) {
		return nil, fmt.Errorf("%w: name %q must contain letters only", gymerr.ErrInvalidFormat, *name)
	}
	if phone != nil && *phone != "" && !validate.IsNumber(*phone) {
		return nil, fmt.Errorf("%w: phone %q must contain digits only", gymerr.ErrInvalidFormat, *phone)
	}

	if name != nil {
		c.Name = strings.ToLower(*name)
	}
	if phone != nil {
		c.Phone = *phone
	}
	return c, nil
}

// AttachMembership gives the client m. A client owns at most one
// membership; an existing one is never overwritten.
func (r *Registry) AttachMembership(id int, m *membership.Membership) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if c.Membership != nil {
		return fmt.Errorf("%w: client %d already has a membership", gymerr.ErrAlreadyExists, id)
	}
	c.Membership = m
	return nil
}

// DetachMembership removes and returns the client's membership.
func (r *Registry) DetachMembership(id int) (*membership.Membership, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Membership == nil {
		return nil, fmt.Errorf("%w: client %d has no membership", gymerr.ErrNotFound, id)
	}
	m := c.Membership
	c.Membership = nil
	return m, nil
}

// Remove empties the client's slot. The live count drops; the historical
// counter does not.
func (r *Registry) Remove(id int) error {
	slot, ok := r.bySlot[id]
	if !ok {
		return fmt.Errorf("%w: client %d", gymerr.ErrNotFound, id)
	}
	r.slots[slot] = nil
	delete(r.bySlot, id)
	r.live--

	i := sort.SearchInts(r.free, slot)
	r.free = append(r.free, 0)
	copy(r.free[i+1:], r.free[i:])
	r.free[i] = slot
	return nil
}

// JoinSession records sessionID in the client's own view of enrolments.
func (r *Registry) JoinSession(id, sessionID int) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	for _, s := range c.Sessions {
		if s == sessionID {
			return nil
		}
	}
	c.Sessions = append(c.Sessions, sessionID)
	return nil
}

// LeaveSession drops sessionID from the client's view. Missing clients
// are ignored so session teardown never fails on an already deleted client.
func (r *Registry) LeaveSession(id, sessionID int) {
	c, err := r.Get(id)
	if err != nil {
		return
	}
	for i, s := range c.Sessions {
		if s == sessionID {
			c.Sessions = append(c.Sessions[:i], c.Sessions[i+1:]...)
			return
		}
	}
}
