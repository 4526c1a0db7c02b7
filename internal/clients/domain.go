// internal/clients/domain.go
package clients

import (
	"time"

	"gymnexus/internal/membership"
)

// Client represents a registered gym client.
type Client struct {
	ID           int                    `json:"id"`
	Name         string                 `json:"name"`
	ExternalID   string                 `json:"external_id"`
	Phone        string                 `json:"phone,omitempty"`
	RegisteredAt time.Time              `json:"registered_at"`
	Membership   *membership.Membership `json:"membership,omitempty"`
	Sessions     []int                  `json:"sessions,omitempty"`
}

// Clone returns a deep copy that callers may hold without aliasing the
// registry's slot.
func (c *Client) Clone() Client {
	out := *c
	if c.Membership != nil {
		m := *c.Membership
		out.Membership = &m
	}
	if c.Sessions != nil {
		out.Sessions = append([]int(nil), c.Sessions...)
	}
	return out
}

// Criterion selects the field Find matches on.
type Criterion string

const (
	ByID         Criterion = "id"
	ByName       Criterion = "name"
	ByExternalID Criterion = "external_id"
)
