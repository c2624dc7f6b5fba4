package storage

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// DialFunc opens and verifies a client.
type DialFunc func(ctx context.Context) (*mongo.Client, error)

// Manager owns the single shared Mongo connection. It connects lazily,
// collapses concurrent connects into one dial and forgets everything after
// a failed dial so the next call retries.
type Manager struct {
	dbName string
	dial   DialFunc
	log    *zap.Logger

	mu      sync.Mutex
	state   State
	client  *mongo.Client
	db      *mongo.Database
	pending *attempt
}

type attempt struct {
	done chan struct{}
	db   *mongo.Database
	err  error
}

func (a *attempt) wait(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-a.done:
		return a.db, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func NewManager(dbName string, dial DialFunc, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{dbName: dbName, dial: dial, log: log.Named("db")}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect returns the database handle, dialing if no connection exists.
// Callers arriving while a dial is in flight wait for that dial. The dial
// itself is not cancelled by any single caller's ctx.
func (m *Manager) Connect(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	if m.state == StateOpen {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	a := m.pending
	if a == nil {
		a = &attempt{done: make(chan struct{})}
		m.pending = a
		m.state = StateConnecting
		go m.run(context.WithoutCancel(ctx), a)
	}
	m.mu.Unlock()

	return a.wait(ctx)
}

func (m *Manager) run(ctx context.Context, a *attempt) {
	m.log.Info("connecting to MongoDB", zap.String("database", m.dbName))
	client, err := m.dial(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateClosed
		m.client = nil
		m.db = nil
		m.log.Error("MongoDB connection failed", zap.Error(err))
	} else {
		m.client = client
		m.db = client.Database(m.dbName)
		m.state = StateOpen
		a.db = m.db
		m.log.Info("connected to MongoDB", zap.String("database", m.dbName))
	}
	a.err = err
	m.pending = nil
	m.mu.Unlock()

	close(a.done)
}

// Database returns the cached handle, connecting on demand.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	if m.state == StateOpen {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	m.log.Warn("database requested before a connection was established; connecting")
	return m.Connect(ctx)
}

// Collection is a shortcut for Database(ctx).Collection(name).
func (m *Manager) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := m.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Close disconnects the client. An in-flight dial is waited for first.
// Closing a closed manager is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if a := m.pending; a != nil {
		m.mu.Unlock()
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
	}
	client := m.client
	m.client = nil
	m.db = nil
	m.state = StateClosed
	m.mu.Unlock()

	if client == nil {
		m.log.Debug("no active MongoDB connection to close")
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("storage: disconnect: %w", err)
	}
	m.log.Info("MongoDB connection closed")
	return nil
}
