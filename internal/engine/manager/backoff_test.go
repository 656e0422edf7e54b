package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 30 * time.Second, Multiplier: 2.0}

	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 400*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(3))
}

func TestBackoffCapsAtMax(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2.0}

	assert.Equal(t, 2*time.Second, b.Delay(10))
	assert.Equal(t, 2*time.Second, b.Delay(63), "large attempt counts must not overflow")
}

func TestBackoffJitterStaysWithinBounds(t *testing.T) {
	b := Backoff{Initial: 1 * time.Second, Max: 30 * time.Second, Multiplier: 2.0, Jitter: true}

	for i := 0; i < 100; i++ {
		d := b.Delay(1) // nominal 2s
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}

func TestBackoffZeroValueUsesDefaults(t *testing.T) {
	var b Backoff
	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))

	def := DefaultBackoff()
	assert.Equal(t, 100*time.Millisecond, def.Initial)
	assert.Equal(t, 30*time.Second, def.Max)
	assert.Equal(t, 2.0, def.Multiplier)
	assert.True(t, def.Jitter)
}
