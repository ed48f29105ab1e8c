package services

import (
	"testing"

	app_errors "presence-hub/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteAddIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFavoriteService(db)

	require.NoError(t, svc.Add("alice", "bob"))
	require.NoError(t, svc.Add("alice", "bob"))

	favorites, err := svc.ListFavorites("alice")
	require.NoError(t, err)
	assert.Len(t, favorites, 1)
	assert.Contains(t, favorites, "bob")
}

func TestFavoriteEdgeIsDirected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFavoriteService(db)

	require.NoError(t, svc.Add("alice", "bob"))

	isFav, err := svc.IsFavorite("alice", "bob")
	require.NoError(t, err)
	assert.True(t, isFav)

	isFav, err = svc.IsFavorite("bob", "alice")
	require.NoError(t, err)
	assert.False(t, isFav, "favorites are one-directional")
}

func TestFavoriteRemove(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFavoriteService(db)

	require.NoError(t, svc.Add("alice", "bob"))
	require.NoError(t, svc.Remove("alice", "bob"))

	isFav, err := svc.IsFavorite("alice", "bob")
	require.NoError(t, err)
	assert.False(t, isFav)
}

func TestFavoriteRemoveMissingEdge(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFavoriteService(db)

	err := svc.Remove("alice", "bob")
	require.Error(t, err)
	assert.Equal(t, app_errors.ErrFavoriteNotFound, err)
}

func TestListFavoritesScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFavoriteService(db)

	require.NoError(t, svc.Add("alice", "bob"))
	require.NoError(t, svc.Add("alice", "carol"))
	require.NoError(t, svc.Add("bob", "dave"))

	favorites, err := svc.ListFavorites("alice")
	require.NoError(t, err)
	assert.Len(t, favorites, 2)
	assert.Contains(t, favorites, "bob")
	assert.Contains(t, favorites, "carol")
	assert.NotContains(t, favorites, "dave")
}
