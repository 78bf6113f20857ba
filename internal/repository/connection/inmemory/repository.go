// Package inmemory maps live websocket connections to member ids. Owned by
// the relay process; entries die with their connection.
package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/repository/connection"
)

type repo struct {
	mu       sync.RWMutex
	byConn   map[*websocket.Conn]string
	byMember map[string]*websocket.Conn
}

func NewRepo() *repo {
	return &repo{
		byConn:   make(map[*websocket.Conn]string),
		byMember: make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byConn[conn] != "" || r.byMember[memberID] != nil {
		return connection.ErrAlreadyExists
	}

	r.byConn[conn] = memberID
	r.byMember[memberID] = conn

	return nil
}

// RemoveByConn unregisters the connection and returns the member id it was
// bound to.
func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberID, ok := r.byConn[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.byConn, conn)
	delete(r.byMember, memberID)

	return memberID, nil
}

func (r *repo) GetMemberID(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberID, ok := r.byConn[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return memberID, nil
}

func (r *repo) GetConn(memberID string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byMember[memberID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
