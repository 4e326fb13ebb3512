package inmemory

import (
	"context"
	"sync"

	"github.com/cinesync/server/internal/repository/room"
)

type entry struct {
	mu  sync.RWMutex
	val room.Room
}

// repo is the room state store. Each room lives behind its own lock, so
// mutations to one room serialize while distinct rooms proceed in
// parallel. The table lock is held in read mode for the duration of any
// per-room operation, which keeps Delete from racing an in-flight
// mutation: the table lock is always taken before the entry lock.
type repo struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]*entry),
	}
}

// Upsert joins a room to an existing record or creates it. When the id is
// unknown, create builds the initial record. When it exists, update runs
// against a working copy that is committed only if update returns nil.
func (r *repo) Upsert(_ context.Context, roomId string, create func() room.Room, update func(*room.Room) error) (room.Room, bool, error) {
	r.mu.RLock()
	e, ok := r.rooms[roomId]
	if ok {
		defer r.mu.RUnlock()
		return e.apply(update)
	}
	r.mu.RUnlock()

	r.mu.Lock()
	// re-check, another conn may have created the room meanwhile
	if e, ok := r.rooms[roomId]; ok {
		defer r.mu.Unlock()
		return e.apply(update)
	}

	e = &entry{val: create()}
	r.rooms[roomId] = e
	// the entry becomes reachable once the table lock drops, so the
	// snapshot must be taken before that
	snapshot := e.val.Clone()
	r.mu.Unlock()

	return snapshot, true, nil
}

func (e *entry) apply(update func(*room.Room) error) (room.Room, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.val.Clone()
	if err := update(&working); err != nil {
		return room.Room{}, false, err
	}
	e.val = working

	return working.Clone(), false, nil
}

// Mutate applies fn to a working copy of the record and commits it only if
// fn returns nil, so a rejected mutation leaves the room untouched.
func (r *repo) Mutate(_ context.Context, roomId string, fn func(*room.Room) error) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[roomId]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.val.Clone()
	if err := fn(&working); err != nil {
		return room.Room{}, err
	}
	e.val = working

	return working.Clone(), nil
}

func (r *repo) Snapshot(_ context.Context, roomId string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[roomId]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.val.Clone(), nil
}

// DeleteIfEmpty tears the room down once its last member is gone. The
// membership check runs under both locks, so a join that slipped in
// between the caller's mutation and this call keeps the room alive.
func (r *repo) DeleteIfEmpty(_ context.Context, roomId string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomId]
	if !ok {
		return false, nil
	}

	e.mu.RLock()
	empty := len(e.val.Members) == 0
	e.mu.RUnlock()

	if !empty {
		return false, nil
	}

	delete(r.rooms, roomId)
	return true, nil
}

func (r *repo) List(_ context.Context) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]room.Room, 0, len(r.rooms))
	for _, e := range r.rooms {
		e.mu.RLock()
		rooms = append(rooms, e.val.Clone())
		e.mu.RUnlock()
	}

	return rooms, nil
}
