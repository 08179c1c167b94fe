package util

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// FFmpegEnv overrides the ffmpeg binary location.
const FFmpegEnv = "FFMPEG"

// LocateFFmpeg finds the ffmpeg binary, preferring $FFMPEG over $PATH.
func LocateFFmpeg() (string, error) {
	if p := os.Getenv(FFmpegEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", errors.Wrapf(err, "%s points at a missing binary", FFmpegEnv)
		}
		return p, nil
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", errors.Wrap(err, "ffmpeg not found in $PATH")
	}
	return p, nil
}
