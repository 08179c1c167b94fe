package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateFFmpegFromEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0755))
	t.Setenv(FFmpegEnv, p)

	got, err := LocateFFmpeg()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLocateFFmpegMissingEnvBinary(t *testing.T) {
	t.Setenv(FFmpegEnv, filepath.Join(t.TempDir(), "nope"))
	_, err := LocateFFmpeg()
	assert.Error(t, err)
}
