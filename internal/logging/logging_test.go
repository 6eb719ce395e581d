package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{JSON: true, Service: "tss-signer", Version: "dev", UID: true, Output: &buf})
	log.Info().Msg("hello")
	log.Debug().Msg("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "tss-signer", entry["service"])
	assert.Equal(t, "dev", entry["version"])
	assert.NotEmpty(t, entry["uid"])
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Debug: true, Output: &buf})
	log.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
