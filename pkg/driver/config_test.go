package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
)

func TestConfigWithHelpersReturnCopies(t *testing.T) {
	base := Config{
		Database: dbcapabilities.PostgreSQL,
		Host:     "localhost",
		Params:   map[string]string{"sslmode": "disable"},
	}

	modified := base.WithID("c1").WithParam("application_name", "zqlz")
	assert.Empty(t, base.ID)
	assert.NotContains(t, base.Params, "application_name")
	assert.Equal(t, "c1", modified.ID)

	v, ok := modified.Param("sslmode")
	assert.True(t, ok)
	assert.Equal(t, "disable", v)
}

func TestConfigRedacted(t *testing.T) {
	cfg := Config{Database: dbcapabilities.MySQL, Host: "h", Password: "hunter2"}
	red := cfg.Redacted()
	assert.Empty(t, red.Password)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestConfigEffectivePort(t *testing.T) {
	cfg := Config{Database: dbcapabilities.PostgreSQL, Host: "h"}
	assert.Equal(t, 5432, cfg.EffectivePort())

	cfg.Port = 15432
	assert.Equal(t, 15432, cfg.EffectivePort())
}

func TestConfigEffectivePoolDefaults(t *testing.T) {
	cfg := Config{Database: dbcapabilities.PostgreSQL}
	pool := cfg.EffectivePool()
	assert.Equal(t, DefaultPoolSize, pool.MaxSize)
	assert.Equal(t, DefaultAcquireTimeout, pool.AcquireTimeout)

	cfg.Pool = PoolConfig{MinSize: 5, MaxSize: 2, AcquireTimeout: time.Second}
	pool = cfg.EffectivePool()
	assert.Equal(t, 2, pool.MaxSize)
	assert.Equal(t, 2, pool.MinSize, "min clamps to max")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid network", Config{Database: dbcapabilities.PostgreSQL, Host: "h"}, false},
		{"missing host", Config{Database: dbcapabilities.PostgreSQL}, true},
		{"valid file", Config{Database: dbcapabilities.SQLite, DatabaseName: "/tmp/a.db"}, false},
		{"missing path", Config{Database: dbcapabilities.SQLite}, true},
		{"unknown type", Config{Database: "oracle", Host: "h"}, true},
		{"bad pool", Config{Database: dbcapabilities.MySQL, Host: "h", Pool: PoolConfig{MinSize: 9, MaxSize: 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
