package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_NotifiesInOrder(t *testing.T) {
	store := NewStore()
	var got []string
	store.Subscribe(func(e Event) { got = append(got, "first:"+string(e.Type)) })
	store.Subscribe(func(e Event) { got = append(got, "second:"+string(e.Type)) })

	store.set(&Session{UserID: "u1"})
	store.set(&Session{UserID: "u1", AccessToken: "new"})
	store.clear()

	assert.Equal(t, []string{
		"first:SIGNED_IN", "second:SIGNED_IN",
		"first:TOKEN_REFRESHED", "second:TOKEN_REFRESHED",
		"first:SIGNED_OUT", "second:SIGNED_OUT",
	}, got)
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	store := NewStore()
	calls := 0
	unsubscribe := store.Subscribe(func(Event) { calls++ })

	store.set(&Session{UserID: "u1"})
	unsubscribe()
	unsubscribe()
	store.clear()

	assert.Equal(t, 1, calls)
}

func TestStore_ClearWhenSignedOutIsSilent(t *testing.T) {
	store := NewStore()
	calls := 0
	store.Subscribe(func(Event) { calls++ })
	store.clear()
	assert.Zero(t, calls)
}

func TestStore_SessionIsACopy(t *testing.T) {
	store := NewStore()
	original := &Session{UserID: "u1", Email: "a@b.co"}
	store.set(original)
	original.Email = "changed"

	got := store.Session()
	require.NotNil(t, got)
	assert.Equal(t, "a@b.co", got.Email)

	got.Email = "mutated"
	assert.Equal(t, "a@b.co", store.Session().Email)
}

func TestStore_ListenerMayReadStore(t *testing.T) {
	store := NewStore()
	var seen *Session
	store.Subscribe(func(Event) { seen = store.Session() })
	store.set(&Session{UserID: "u1"})
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}
