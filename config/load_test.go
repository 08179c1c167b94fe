package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, `{"EncoderThreads": 2, "MetricsPort": 9100}`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.EncoderThreads)
	assert.Equal(t, 9100, c.MetricsPort)
	assert.Equal(t, 24, c.EncoderSlices)
	assert.Equal(t, 1000, c.ReadTimeoutMs)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, `{"Bogus": 1}`))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, `{"PrintInterval": 0}`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
