package dialog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/dialog"
)

func TestMemorySessionStore(t *testing.T) {
	store := dialog.NewMemorySessionStore()
	ctx := context.Background()

	session, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, session)

	put := &dialog.Session{UserID: 1, State: dialog.AddingEventDate, EventName: "Dentist"}
	require.NoError(t, store.Put(ctx, put))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, dialog.AddingEventDate, got.State)
	assert.Equal(t, "Dentist", got.EventName)

	// Get returns a copy: mutating it must not leak into the store.
	got.EventName = "changed"
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", again.EventName)

	require.NoError(t, store.Delete(ctx, 1))
	gone, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
