package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf).WithConnection("c-123")
	log.Info("connected", F("host", "localhost"), F("port", 5432))

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "test", event["component"])
	assert.Equal(t, "c-123", event["connection_id"])
	assert.Equal(t, "connected", event["message"])
	assert.Equal(t, "localhost", event["host"])
	assert.EqualValues(t, 5432, event["port"])
}

func TestErrorAttachesErr(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("test", &buf)
	log.Error("ping failed", assert.AnError)

	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Info("ignored")
		Nop().Error("ignored", nil)
	})
}
