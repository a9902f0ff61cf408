package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(&buf)

	LogError(l, "orders", "CreateOrder", "persist order", map[string]string{"invoice": "INV-1"}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "orders", entry["module"])
	assert.Equal(t, "CreateOrder", entry["funcName"])
	assert.Equal(t, "error", entry["level"])
	assert.NotNil(t, entry["data"])
}

func TestSetupFallsBackToInfo(t *testing.T) {
	l := Setup("chatty")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l = Setup("debug")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	Setup("info")
}
