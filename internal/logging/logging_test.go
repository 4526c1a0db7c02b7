package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "info", "json")
	require.NoError(t, err)

	logger.WithField("client_id", 7).Info("client registered")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "client registered", entry["msg"])
	assert.Equal(t, float64(7), entry["client_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWithOutput_Errors(t *testing.T) {
	_, err := NewWithOutput(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = NewWithOutput(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)

	logger, err := NewWithOutput(&bytes.Buffer{}, "WARN", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}
