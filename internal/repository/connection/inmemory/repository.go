package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/connection"
)

// repo maps participant ids to their websocket connections. It never
// closes a connection itself; lifecycle belongs to the controller, which
// keeps disconnect handling idempotent.
type repo struct {
	mu         sync.RWMutex
	byConn     map[*websocket.Conn]string
	byMemberId map[string]*websocket.Conn
}

func NewRepo() *repo {
	return &repo{
		byConn:     make(map[*websocket.Conn]string),
		byMemberId: make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, memberId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byConn[conn] != "" || r.byMemberId[memberId] != nil {
		return connection.ErrAlreadyExists
	}

	r.byConn[conn] = memberId
	r.byMemberId[memberId] = conn

	return nil
}

func (r *repo) RemoveByMemberId(memberId string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byMemberId[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.byConn, conn)
	delete(r.byMemberId, memberId)

	return conn, nil
}

func (r *repo) GetConn(memberId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byMemberId[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
