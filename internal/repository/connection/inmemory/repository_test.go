package inmemory

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/connection"
)

func TestAddAndLookup(t *testing.T) {
	repo := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, repo.Add(conn, "m1"))

	got, err := repo.GetConn("m1")
	require.NoError(t, err)
	assert.Same(t, conn, got)

	assert.ErrorIs(t, repo.Add(conn, "m2"), connection.ErrAlreadyExists)
	assert.ErrorIs(t, repo.Add(&websocket.Conn{}, "m1"), connection.ErrAlreadyExists)
}

func TestRemove(t *testing.T) {
	repo := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, repo.Add(conn, "m1"))

	got, err := repo.RemoveByMemberId("m1")
	require.NoError(t, err)
	assert.Same(t, conn, got)

	_, err = repo.GetConn("m1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	_, err = repo.RemoveByMemberId("m1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	// both indexes are clear, so the conn and the id are reusable
	require.NoError(t, repo.Add(conn, "m1"))
}
