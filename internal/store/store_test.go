package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chats-be/internal/database"
	"chats-be/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return New(db)
}

func TestIsParticipant(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	alice := models.User{Username: "alice", PasswordHash: "x"}
	bob := models.User{Username: "bob", PasswordHash: "x"}
	require.NoError(t, s.DB.Create(&alice).Error)
	require.NoError(t, s.DB.Create(&bob).Error)
	conv := models.Conversation{Participants: []models.User{alice}}
	require.NoError(t, s.DB.Create(&conv).Error)

	ok, err := s.IsParticipant(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsParticipant(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsParticipant(ctx, conv.ID+100, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserLookups(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	alice := models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, s.DB.Create(&alice).Error)

	u, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	users, missing, err := s.UsersByIDs(ctx, []uint{alice.ID, 42})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, []uint{42}, missing)
}
