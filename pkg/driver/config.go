package driver

import (
	"time"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

// TLSMode controls transport encryption for network-attached backends.
type TLSMode string

const (
	TLSDisabled TLSMode = "disable"
	TLSPrefer   TLSMode = "prefer"
	TLSRequire  TLSMode = "require"
	TLSVerifyCA TLSMode = "verify-ca"
)

// PoolConfig bounds the per-connection lease pool.
type PoolConfig struct {
	// MinSize connections are kept warm; zero disables pre-warming.
	MinSize int `json:"min_size" yaml:"min_size"`
	// MaxSize bounds concurrent leases. Zero falls back to DefaultPoolSize.
	MaxSize int `json:"max_size" yaml:"max_size"`
	// AcquireTimeout bounds the wait for a free lease before
	// ErrPoolExhausted.
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
	// IdleTimeout retires connections idle longer than this.
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	// MaxLifetime retires connections older than this regardless of use.
	MaxLifetime time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
}

// TimeoutConfig bounds connection establishment and statement execution.
type TimeoutConfig struct {
	Connect   time.Duration `json:"connect" yaml:"connect"`
	Statement time.Duration `json:"statement" yaml:"statement"`
}

// Defaults applied by the engine when a config leaves them zero.
const (
	DefaultPoolSize       = 10
	DefaultAcquireTimeout = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Config describes one database connection. It is a plain immutable value;
// the With* helpers return modified copies so a Config handed to the engine
// never changes underneath it.
type Config struct {
	// ID identifies the connection within the engine. Assigned by the
	// manager when empty.
	ID string `json:"id" yaml:"id"`
	// Name is the human-facing profile name.
	Name string `json:"name" yaml:"name"`

	Database dbcapabilities.DatabaseID `json:"database" yaml:"database"`

	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	// DatabaseName is the target database, or the file path for
	// file-backed engines.
	DatabaseName string `json:"database_name,omitempty" yaml:"database_name,omitempty"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`

	TLS         TLSMode `json:"tls,omitempty" yaml:"tls,omitempty"`
	TLSCertFile string  `json:"tls_cert_file,omitempty" yaml:"tls_cert_file,omitempty"`
	TLSKeyFile  string  `json:"tls_key_file,omitempty" yaml:"tls_key_file,omitempty"`
	TLSCAFile   string  `json:"tls_ca_file,omitempty" yaml:"tls_ca_file,omitempty"`

	Pool     PoolConfig    `json:"pool" yaml:"pool"`
	Timeouts TimeoutConfig `json:"timeouts" yaml:"timeouts"`

	// Params carries backend-specific options (sslmode, charset, redis db
	// index) not covered by the typed fields.
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// WithID returns a copy with the connection ID set.
func (c Config) WithID(id string) Config {
	c.ID = id
	return c
}

// WithPassword returns a copy with the password set.
func (c Config) WithPassword(password string) Config {
	c.Password = password
	return c
}

// WithParam returns a copy with one backend-specific option set.
func (c Config) WithParam(key, value string) Config {
	params := make(map[string]string, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = v
	}
	params[key] = value
	c.Params = params
	return c
}

// Param returns a backend-specific option.
func (c Config) Param(key string) (string, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// Redacted returns a copy safe for logging and persistence: the password is
// blanked.
func (c Config) Redacted() Config {
	c.Password = ""
	return c
}

// EffectivePort returns the configured port or the backend default.
func (c Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if cap, ok := dbcapabilities.Get(c.Database); ok {
		return cap.DefaultPort
	}
	return 0
}

// EffectivePool returns the pool limits with defaults applied.
func (c Config) EffectivePool() PoolConfig {
	pool := c.Pool
	if pool.MaxSize <= 0 {
		pool.MaxSize = DefaultPoolSize
	}
	if pool.MinSize < 0 {
		pool.MinSize = 0
	}
	if pool.MinSize > pool.MaxSize {
		pool.MinSize = pool.MaxSize
	}
	if pool.AcquireTimeout <= 0 {
		pool.AcquireTimeout = DefaultAcquireTimeout
	}
	return pool
}

// EffectiveConnectTimeout returns the connect timeout with the default
// applied.
func (c Config) EffectiveConnectTimeout() time.Duration {
	if c.Timeouts.Connect > 0 {
		return c.Timeouts.Connect
	}
	return DefaultConnectTimeout
}

// Validate checks the fields every backend requires. Backend-specific
// validation happens in the adapters.
func (c Config) Validate() error {
	cap, ok := dbcapabilities.Get(c.Database)
	if !ok {
		return NewConfigError(c.Database, "database", "unknown database type")
	}
	if cap.NetworkAttached {
		if c.Host == "" {
			return NewConfigError(c.Database, "host", "host is required")
		}
	} else if c.DatabaseName == "" {
		return NewConfigError(c.Database, "database_name", "file path is required")
	}
	if c.Pool.MinSize > c.Pool.MaxSize && c.Pool.MaxSize > 0 {
		return NewConfigError(c.Database, "pool", "min_size exceeds max_size")
	}
	return nil
}
