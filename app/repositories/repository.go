package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Repository owns a Badger database and hands out the stores built on it.
type Repository struct {
	db     *badger.DB
	mutex  sync.RWMutex
	dbPath string
	closed bool

	posts *BadgerPostRepository
	users *BadgerUserRepository
}

// NewRepository opens the database at path. An empty path opens an
// in-memory database.
func NewRepository(path string, maxAttempts int) (*Repository, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Repository{
		db:     db,
		dbPath: path,
		posts:  NewBadgerPostRepository(db, maxAttempts),
		users:  NewBadgerUserRepository(db),
	}, nil
}

func (r *Repository) Posts() *BadgerPostRepository { return r.posts }

func (r *Repository) Users() *BadgerUserRepository { return r.users }

// DB exposes the underlying handle for maintenance commands.
func (r *Repository) DB() *badger.DB { return r.db }

// Ping reports whether the database is still open.
func (r *Repository) Ping(ctx context.Context) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.closed || r.db.IsClosed() {
		return unavailable(errors.New("badger database is closed"))
	}
	return ctx.Err()
}

func (r *Repository) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

// Clear drops every key. Intended for tests and the db clean command.
func (r *Repository) Clear() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.db.DropAll()
}
