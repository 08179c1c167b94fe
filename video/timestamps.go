package video

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// TimestampLog holds one system and one device timestamp per accepted frame.
type TimestampLog struct {
	System []time.Time
	// Device capture times in milliseconds.
	Device []float64
}

func (l *TimestampLog) Append(system time.Time, device float64) {
	l.System = append(l.System, system)
	l.Device = append(l.Device, device)
}

// Truncate keeps only the first n entries.
func (l *TimestampLog) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(l.Device) {
		l.System = l.System[:n]
		l.Device = l.Device[:n]
	}
}

func (l *TimestampLog) Len() int {
	return len(l.Device)
}

// FrameRate is the number of frames over the system clock span they cover.
func (l *TimestampLog) FrameRate() float64 {
	if len(l.System) < 2 {
		return 0
	}
	lo, hi := l.System[0], l.System[0]
	for _, t := range l.System {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	span := hi.Sub(lo).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(l.System)) / span
}

// WriteDevice writes the device timestamps to path, one "%f" value per line.
func (l *TimestampLog) WriteDevice(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create timestamp log")
	}
	w := bufio.NewWriter(f)
	for _, ts := range l.Device {
		fmt.Fprintf(w, "%f\n", ts)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write timestamp log")
	}
	return f.Close()
}
