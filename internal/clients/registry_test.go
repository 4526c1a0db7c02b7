package clients

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
)

var registered = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestCreate(t *testing.T) {
	r := NewRegistry(3)

	c, err := r.Create("Ana", "1001", "3001234567", registered)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, "ana", c.Name)
	assert.Equal(t, 1, r.Live())
	assert.Equal(t, 1, r.Historical())

	c, err = r.Create("Luis", "1002", "", registered)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ID)
	assert.Empty(t, c.Phone)
}

func TestCreate_Validation(t *testing.T) {
	r := NewRegistry(3)

	_, err := r.Create("Ana Maria", "1001", "", registered)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	_, err = r.Create("Ana", "10O1", "", registered)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	_, err = r.Create("Ana", "1001", "300-123", registered)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)

	assert.Equal(t, 0, r.Live())
	assert.Equal(t, 0, r.Historical(), "failed creates must not consume ids")
}

func TestCreate_DuplicateAndCapacity(t *testing.T) {
	r := NewRegistry(2)

	_, err := r.Create("Ana", "1001", "", registered)
	require.NoError(t, err)
	_, err = r.Create("Otra", "1001", "", registered)
	assert.ErrorIs(t, err, gymerr.ErrDuplicateClient)

	_, err = r.Create("Luis", "1002", "", registered)
	require.NoError(t, err)
	_, err = r.Create("Eva", "1003", "", registered)
	assert.ErrorIs(t, err, gymerr.ErrCapacityExceeded)
	assert.Equal(t, 2, r.Live())
}

func TestFind(t *testing.T) {
	r := NewRegistry(5)
	ana, _ := r.Create("Ana", "1001", "", registered)
	_, _ = r.Create("Luis", "1002", "", registered)
	ana2, _ := r.Create("ANA", "1003", "", registered)

	c, err := r.Find(ByID, strconv.Itoa(ana.ID))
	require.NoError(t, err)
	assert.Equal(t, "1001", c.ExternalID)

	c, err = r.Find(ByExternalID, "1002")
	require.NoError(t, err)
	assert.Equal(t, "luis", c.Name)

	c, err = r.Find(ByName, "aNa")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, c.ID, "name search returns the first match")

	all := r.FindByName("Ana")
	require.Len(t, all, 2)
	assert.Equal(t, ana2.ID, all[1].ID)

	_, err = r.Find(ByExternalID, "9999")
	assert.ErrorIs(t, err, gymerr.ErrNotFound)
	_, err = r.Find(ByID, "x")
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
	_, err = r.Find(Criterion("phone"), "1")
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)
}

func TestRemove_ReusesSlotNotID(t *testing.T) {
	r := NewRegistry(3)
	a, _ := r.Create("Ana", "1001", "", registered)
	b, _ := r.Create("Luis", "1002", "", registered)
	_, _ = r.Create("Eva", "1003", "", registered)

	require.NoError(t, r.Remove(a.ID))
	require.NoError(t, r.Remove(b.ID))
	assert.Equal(t, 1, r.Live())
	assert.Equal(t, 3, r.Historical())

	_, err := r.Find(ByExternalID, "1001")
	assert.ErrorIs(t, err, gymerr.ErrNotFound)

	again, err := r.Create("Ana", "1001", "", registered)
	require.NoError(t, err)
	assert.Equal(t, 4, again.ID)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, again.ID, all[0].ID, "the lowest empty slot is filled first")

	assert.ErrorIs(t, r.Remove(a.ID), gymerr.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	r := NewRegistry(2)
	c, _ := r.Create("Ana", "1001", "300", registered)

	name := "Anita"
	_, err := r.Update(c.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "anita", c.Name)
	assert.Equal(t, "300", c.Phone)

	bad := "12ab"
	_, err = r.Update(c.ID, nil, &bad)
	assert.ErrorIs(t, err, gymerr.ErrInvalidFormat)

	empty := ""
	_, err = r.Update(c.ID, nil, &empty)
	require.NoError(t, err)
	assert.Empty(t, c.Phone)
}

func TestMembershipOwnership(t *testing.T) {
	r := NewRegistry(2)
	c, _ := r.Create("Ana", "1001", "", registered)
	m, _ := membership.DefaultPolicy().New(registered, nil, nil, false)

	require.NoError(t, r.AttachMembership(c.ID, m))
	assert.ErrorIs(t, r.AttachMembership(c.ID, m), gymerr.ErrAlreadyExists)

	got, err := r.DetachMembership(c.ID)
	require.NoError(t, err)
	assert.Same(t, m, got)
	_, err = r.DetachMembership(c.ID)
	assert.ErrorIs(t, err, gymerr.ErrNotFound)
}

func TestSessionView(t *testing.T) {
	r := NewRegistry(2)
	c, _ := r.Create("Ana", "1001", "", registered)

	require.NoError(t, r.JoinSession(c.ID, 4))
	require.NoError(t, r.JoinSession(c.ID, 4))
	require.NoError(t, r.JoinSession(c.ID, 7))
	assert.Equal(t, []int{4, 7}, c.Sessions)

	r.LeaveSession(c.ID, 4)
	assert.Equal(t, []int{7}, c.Sessions)
	r.LeaveSession(99, 7)
}

func TestRestore(t *testing.T) {
	r := NewRegistry(3)
	restored, err := r.Restore(Client{ID: 9, Name: "Ana", ExternalID: "1001", RegisteredAt: registered})
	require.NoError(t, err)
	assert.Equal(t, "ana", restored.Name)
	assert.Equal(t, 9, r.Historical())

	_, err = r.Restore(Client{ID: 9, Name: "Luis", ExternalID: "1002"})
	assert.ErrorIs(t, err, gymerr.ErrDuplicateClient)

	next, err := r.Create("Luis", "1002", "", registered)
	require.NoError(t, err)
	assert.Equal(t, 10, next.ID)

	r.AdvanceHistorical(15)
	r.AdvanceHistorical(3)
	assert.Equal(t, 15, r.Historical())
	next, err = r.Create("Eva", "1003", "", registered)
	require.NoError(t, err)
	assert.Equal(t, 16, next.ID)
}

func TestClone(t *testing.T) {
	r := NewRegistry(1)
	c, _ := r.Create("Ana", "1001", "", registered)
	m, _ := membership.DefaultPolicy().New(registered, nil, nil, false)
	require.NoError(t, r.AttachMembership(c.ID, m))
	require.NoError(t, r.JoinSession(c.ID, 1))

	cp := c.Clone()
	cp.Membership.Paid = true
	cp.Sessions[0] = 42
	assert.False(t, c.Membership.Paid)
	assert.Equal(t, []int{1}, c.Sessions)
}

// Ids strictly increase across any interleaving of creates and deletes,
// and the live count tracks successful creates exactly.
func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		r := NewRegistry(capacity)
		issued := map[int]bool{}
		maxID := 0
		var liveIDs []int

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(liveIDs) > 0 && rapid.Bool().Draw(t, "delete") {
				idx := rapid.IntRange(0, len(liveIDs)-1).Draw(t, "victim")
				require.NoError(t, r.Remove(liveIDs[idx]))
				liveIDs = append(liveIDs[:idx], liveIDs[idx+1:]...)
				continue
			}

			before := r.Live()
			c, err := r.Create("Cliente", strconv.Itoa(1000+i), "", registered)
			if before == capacity {
				require.ErrorIs(t, err, gymerr.ErrCapacityExceeded)
				continue
			}
			require.NoError(t, err)
			assert.Greater(t, c.ID, maxID)
			assert.False(t, issued[c.ID])
			assert.Equal(t, before+1, r.Live())
			issued[c.ID] = true
			maxID = c.ID
			liveIDs = append(liveIDs, c.ID)
		}
		assert.Equal(t, len(liveIDs), r.Live())
		assert.Equal(t, maxID, r.Historical())
	})
}
