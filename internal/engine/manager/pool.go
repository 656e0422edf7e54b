package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
)

// Pool is a bounded lease pool of connections to one database. A semaphore
// bounds concurrent leases at MaxSize; idle connections are reused LIFO so
// warm connections stay warm and cold ones age out.
type Pool struct {
	drv    driver.Driver
	cfg    driver.Config
	limits driver.PoolConfig
	log    *logger.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	idle      []*pooledConn
	closed    bool
	created   int64
	destroyed int64
	inUse     int
}

type pooledConn struct {
	conn      driver.Connection
	createdAt time.Time
	lastUsed  time.Time
}

// PoolStats is a point-in-time snapshot of pool state.
type PoolStats struct {
	Idle      int
	InUse     int
	MaxSize   int
	Created   int64
	Destroyed int64
}

// NewPool creates a pool for the given config. No connections are opened
// until Prewarm or the first Acquire.
func NewPool(drv driver.Driver, cfg driver.Config, log *logger.Logger) *Pool {
	limits := cfg.EffectivePool()
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{
		drv:    drv,
		cfg:    cfg,
		limits: limits,
		log:    log.WithConnection(cfg.ID),
		sem:    semaphore.NewWeighted(int64(limits.MaxSize)),
	}
}

// Prewarm opens MinSize connections and parks them idle.
func (p *Pool) Prewarm(ctx context.Context) error {
	for i := 0; i < p.limits.MinSize; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			return err
		}
		now := time.Now()
		p.mu.Lock()
		p.idle = append(p.idle, &pooledConn{conn: conn, createdAt: now, lastUsed: now})
		p.mu.Unlock()
	}
	return nil
}

// Acquire leases a connection. It waits up to the configured acquire
// timeout for a slot, then returns ErrPoolExhausted. Idle connections are
// validated with a ping before handoff; stale or dead ones are destroyed
// and replaced rather than leased out.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, driver.ErrClosed
	}
	p.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, p.limits.AcquireTimeout)
	defer cancel()

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, driver.ErrCancelled
		}
		return nil, driver.ErrPoolExhausted
	}

	for {
		pc := p.popIdle()
		if pc == nil {
			break
		}
		if p.expired(pc) {
			p.destroy(pc)
			continue
		}
		if err := p.validate(ctx, pc.conn); err != nil {
			p.log.Debug("idle connection failed validation, destroying", logger.F("error", err.Error()))
			p.destroy(pc)
			continue
		}
		pc.lastUsed = time.Now()
		p.markInUse(1)
		return &Lease{pool: p, pc: pc}, nil
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	now := time.Now()
	p.markInUse(1)
	return &Lease{pool: p, pc: &pooledConn{conn: conn, createdAt: now, lastUsed: now}}, nil
}

// Evict destroys the idle connection with the given ID if present. Leased
// connections are not touched; their lease returns them for validation on
// release.
func (p *Pool) Evict(connID string) bool {
	p.mu.Lock()
	for i, pc := range p.idle {
		if pc.conn.ID() == connID {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			p.mu.Unlock()
			p.destroy(pc)
			return true
		}
	}
	p.mu.Unlock()
	return false
}

// Stats returns a snapshot of pool state.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Idle:      len(p.idle),
		InUse:     p.inUse,
		MaxSize:   p.limits.MaxSize,
		Created:   p.created,
		Destroyed: p.destroyed,
	}
}

// Close drains idle connections and rejects further acquires. Outstanding
// leases stay usable; their connections are destroyed on release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, pc := range idle {
		if err := pc.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		p.mu.Lock()
		p.destroyed++
		p.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (p *Pool) dial(ctx context.Context) (driver.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.EffectiveConnectTimeout())
	defer cancel()

	conn, err := p.drv.Connect(dialCtx, p.cfg)
	if err != nil {
		if dialCtx.Err() != nil && ctx.Err() == nil {
			return nil, driver.NewConnectionError(p.cfg.Database, p.cfg.Host, p.cfg.EffectivePort(), driver.ErrConnectTimeout)
		}
		return nil, err
	}
	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	return conn, nil
}

func (p *Pool) validate(ctx context.Context, conn driver.Connection) error {
	if !conn.IsConnected() {
		return driver.ErrClosed
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return conn.Ping(pingCtx)
}

func (p *Pool) expired(pc *pooledConn) bool {
	now := time.Now()
	if p.limits.MaxLifetime > 0 && now.Sub(pc.createdAt) > p.limits.MaxLifetime {
		return true
	}
	if p.limits.IdleTimeout > 0 && now.Sub(pc.lastUsed) > p.limits.IdleTimeout {
		return true
	}
	return false
}

func (p *Pool) popIdle() *pooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	pc := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return pc
}

func (p *Pool) destroy(pc *pooledConn) {
	_ = pc.conn.Close()
	p.mu.Lock()
	p.destroyed++
	p.mu.Unlock()
}

func (p *Pool) markInUse(delta int) {
	p.mu.Lock()
	p.inUse += delta
	p.mu.Unlock()
}

// Lease is one checked-out connection. Exactly one of Release or Discard
// must be called; both are idempotent after the first call.
type Lease struct {
	pool *Pool
	pc   *pooledConn
	done bool
	mu   sync.Mutex
}

// Conn returns the leased connection.
func (l *Lease) Conn() driver.Connection {
	return l.pc.conn
}

// Release returns the connection to the pool. Dead connections and leases
// released after pool close are destroyed instead.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.mu.Unlock()

	p := l.pool
	l.pc.lastUsed = time.Now()

	p.mu.Lock()
	returnable := !p.closed && l.pc.conn.IsConnected()
	if returnable {
		p.idle = append(p.idle, l.pc)
	}
	p.inUse--
	p.mu.Unlock()

	if !returnable {
		p.destroy(l.pc)
	}
	p.sem.Release(1)
}

// Discard destroys the leased connection instead of returning it. Callers
// use this after errors that poison the session.
func (l *Lease) Discard() {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.mu.Unlock()

	p := l.pool
	p.markInUse(-1)
	p.destroy(l.pc)
	p.sem.Release(1)
}
