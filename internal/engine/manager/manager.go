// Package manager owns connection lifecycle: establishing connections
// through registered drivers, pooling leases, automatic reconnection with
// backoff, periodic health checking and saved connection profiles.
package manager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
)

// ErrConnectionNotFound is returned when no managed connection has the
// requested ID.
var ErrConnectionNotFound = errors.New("connection not found")

// ManagedConnection is one live connection under management. Conn is the
// primary session wrapped in a Reconnector; Pool hands out additional
// leases for concurrent work against the same database.
type ManagedConnection struct {
	ID          string
	Config      driver.Config
	Conn        driver.Connection
	Pool        *Pool
	ConnectedAt time.Time
}

// Options tunes a Manager.
type Options struct {
	Registry  *driver.Registry
	Logger    *logger.Logger
	Reconnect ReconnectConfig
	// Profiles is optional; when set, Connect can resolve saved profiles
	// and SaveProfile persists configs.
	Profiles *ProfileStore
}

// Manager tracks every open connection by ID. All methods are safe for
// concurrent use.
type Manager struct {
	registry  *driver.Registry
	log       *logger.Logger
	reconnect ReconnectConfig
	profiles  *ProfileStore

	mu    sync.RWMutex
	conns map[string]*ManagedConnection
}

// New creates a Manager. A nil registry falls back to the package default
// registry.
func New(opts Options) *Manager {
	registry := opts.Registry
	if registry == nil {
		registry = driver.DefaultRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	rc := opts.Reconnect
	if rc.MaxAttempts == 0 && rc.Backoff == (Backoff{}) {
		rc = DefaultReconnectConfig()
	}
	return &Manager{
		registry:  registry,
		log:       log,
		reconnect: rc,
		profiles:  opts.Profiles,
		conns:     make(map[string]*ManagedConnection),
	}
}

// Connect establishes a connection for cfg and returns its engine ID. On
// failure nothing is registered and the typed error describes the cause. A
// connect attempt that exceeds the configured connect timeout surfaces
// ErrConnectTimeout.
func (m *Manager) Connect(ctx context.Context, cfg driver.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	drv, err := m.registry.MustGet(cfg.Database)
	if err != nil {
		return "", err
	}

	if cfg.ID == "" {
		cfg = cfg.WithID(uuid.NewString())
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveConnectTimeout())
	defer cancel()

	raw, err := drv.Connect(dialCtx, cfg)
	if err != nil {
		if dialCtx.Err() != nil && ctx.Err() == nil {
			err = driver.NewConnectionError(cfg.Database, cfg.Host, cfg.EffectivePort(), driver.ErrConnectTimeout)
		}
		m.log.Error("connect failed", err,
			logger.F("database", string(cfg.Database)),
			logger.F("name", cfg.Name))
		return "", err
	}

	mc := &ManagedConnection{
		ID:          cfg.ID,
		Config:      cfg,
		Conn:        NewReconnector(raw, m.reconnect, m.log),
		Pool:        NewPool(drv, cfg, m.log),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.conns[mc.ID] = mc
	m.mu.Unlock()

	m.log.Info("connected",
		logger.F("connection_id", mc.ID),
		logger.F("database", string(cfg.Database)),
		logger.F("name", cfg.Name))
	return mc.ID, nil
}

// ConnectProfile loads a saved profile by name and connects it.
func (m *Manager) ConnectProfile(ctx context.Context, name string) (string, error) {
	if m.profiles == nil {
		return "", errors.New("no profile store configured")
	}
	cfg, err := m.profiles.Get(name)
	if err != nil {
		return "", err
	}
	return m.Connect(ctx, cfg)
}

// TestConnection checks that cfg is usable without registering anything.
func (m *Manager) TestConnection(ctx context.Context, cfg driver.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	drv, err := m.registry.MustGet(cfg.Database)
	if err != nil {
		return err
	}
	testCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveConnectTimeout())
	defer cancel()
	return drv.TestConnection(testCtx, cfg)
}

// Get returns the managed connection with the given ID.
func (m *Manager) Get(id string) (*ManagedConnection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.conns[id]
	return mc, ok
}

// Acquire leases a pooled connection for the given managed connection.
func (m *Manager) Acquire(ctx context.Context, id string) (*Lease, error) {
	mc, ok := m.Get(id)
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return mc.Pool.Acquire(ctx)
}

// Remove evicts a connection from management and closes it. The map entry
// is removed before any close work so concurrent callers observe the
// connection gone exactly once; the second Remove of the same ID returns
// ErrConnectionNotFound.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	mc, ok := m.conns[id]
	if ok {
		delete(m.conns, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrConnectionNotFound
	}

	err := errors.Join(mc.Pool.Close(), mc.Conn.Close())
	m.log.Info("disconnected", logger.F("connection_id", id))
	return err
}

// List returns all managed connections sorted by ID.
func (m *Manager) List() []*ManagedConnection {
	m.mu.RLock()
	out := make([]*ManagedConnection, 0, len(m.conns))
	for _, mc := range m.conns {
		out = append(out, mc)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown removes and closes every connection.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for _, mc := range m.List() {
		if err := m.Remove(mc.ID); err != nil && !errors.Is(err, ErrConnectionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Profiles returns the profile store, nil when none is configured.
func (m *Manager) Profiles() *ProfileStore {
	return m.profiles
}
