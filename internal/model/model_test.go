package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart(t *testing.T) {
	empty := NewCart("c-1", nil)
	assert.True(t, empty.IsEmpty())
	assert.NotNil(t, empty.Items)
	assert.Equal(t, int64(0), empty.Total())
	assert.Equal(t, 0, empty.ItemsCount())

	cart := NewCart("c-1", []CartItem{
		{ProviderID: "p-1", Quantity: 2, UnitPrice: 1500},
		{ProviderID: "p-1", Quantity: 1, UnitPrice: 4000},
	})
	assert.Equal(t, "p-1", cart.ProviderID)
	assert.Equal(t, int64(7000), cart.Total())
	assert.Equal(t, 3, cart.ItemsCount())
}

func TestRequestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to RequestStatus
		ok       bool
	}{
		{RequestStatusActive, RequestStatusInProgress, true},
		{RequestStatusActive, RequestStatusClosed, true},
		{RequestStatusActive, RequestStatusCancelled, true},
		{RequestStatusInProgress, RequestStatusClosed, true},
		{RequestStatusInProgress, RequestStatusActive, false},
		{RequestStatusInProgress, RequestStatusCancelled, false},
		{RequestStatusClosed, RequestStatusActive, false},
		{RequestStatusCancelled, RequestStatusClosed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.ElementsMatch(t, []RequestStatus{RequestStatusActive, RequestStatusInProgress}, RequestSourcesFor(RequestStatusClosed))
	assert.Equal(t, []RequestStatus{RequestStatusActive}, RequestSourcesFor(RequestStatusCancelled))
	assert.False(t, RequestStatus("archived").Valid())
}

func TestResponseStatusTransitions(t *testing.T) {
	for _, from := range []ResponseStatus{ResponseStatusPending, ResponseStatusViewed} {
		assert.False(t, from.IsTerminal())
		assert.True(t, from.CanTransitionTo(ResponseStatusViewed))
		assert.True(t, from.CanTransitionTo(ResponseStatusAccepted))
		assert.True(t, from.CanTransitionTo(ResponseStatusRejected))
		assert.False(t, from.CanTransitionTo(ResponseStatusPending))
	}
	for _, from := range []ResponseStatus{ResponseStatusAccepted, ResponseStatusRejected} {
		assert.True(t, from.IsTerminal())
		for _, to := range []ResponseStatus{ResponseStatusPending, ResponseStatusViewed, ResponseStatusAccepted, ResponseStatusRejected} {
			assert.False(t, from.CanTransitionTo(to))
		}
	}

	assert.Equal(t, []ResponseStatus{ResponseStatusPending, ResponseStatusViewed}, ResponseSourcesFor(ResponseStatusAccepted))
	assert.Empty(t, ResponseSourcesFor(ResponseStatusPending))

	_, ok := ParseResponseStatus("withdrawn")
	assert.False(t, ok)
	s, ok := ParseResponseStatus("viewed")
	assert.True(t, ok)
	assert.Equal(t, ResponseStatusViewed, s)
}

func TestCanonicalPair(t *testing.T) {
	p1, p2 := CanonicalPair("b", "a")
	assert.Equal(t, "a", p1)
	assert.Equal(t, "b", p2)

	q1, q2 := CanonicalPair("a", "b")
	assert.Equal(t, p1, q1)
	assert.Equal(t, p2, q2)

	c := &Conversation{Participant1ID: "a", Participant2ID: "b"}
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("c"))
}

func TestJSONMap(t *testing.T) {
	v, err := JSONMap{"response_id": "r-1"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"response_id":"r-1"}`, v.(string))

	nilValue, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)

	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"price":4500}`)))
	assert.Equal(t, float64(4500), m["price"])

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
	assert.Error(t, m.Scan(42))
}

func TestNotificationMessage(t *testing.T) {
	msg := &NotificationMessage{EventID: "e-1", UserID: "u-1", Type: NotificationResponseAccepted, Title: "t"}
	n := msg.ToNotification()
	assert.Equal(t, "e-1", n.ID)
	assert.Equal(t, "u-1", n.UserID)
	assert.False(t, n.Read)
}
