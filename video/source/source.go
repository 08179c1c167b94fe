package source

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrTimeout is returned by ReadFrameSet when no frames arrived before the
	// deadline. It is not a failure; the caller should retry.
	ErrTimeout = errors.New("timed out waiting for frames")

	// ErrDeviceUnavailable is returned by Open when the device cannot provide
	// a requested stream.
	ErrDeviceUnavailable = errors.New("device unavailable")

	ErrClosed = errors.New("source is closed")
)

// ReadFault wraps an OS or hardware level error raised while streaming.
type ReadFault struct {
	Err error
}

func (f *ReadFault) Error() string {
	return fmt.Sprintf("device read fault: %v", f.Err)
}

func (f *ReadFault) Unwrap() error {
	return f.Err
}

type StreamKind int

const (
	Depth StreamKind = iota
	IR
)

func (k StreamKind) String() string {
	switch k {
	case Depth:
		return "depth"
	case IR:
		return "ir"
	}
	return fmt.Sprintf("StreamKind(%d)", int(k))
}

// Profile is a resolved video stream configuration.
type Profile struct {
	Kind          StreamKind
	Width, Height int
	FPS           int
}

// RawFrame holds one sensor image as delivered by the device: little-endian
// 16-bit samples in row-major order.
type RawFrame struct {
	Width, Height int

	// Timestamp is the device capture time in milliseconds.
	Timestamp float64

	// Scale converts depth samples to millimeters. Unused for IR.
	Scale float32

	Data []byte
}

// Samples decodes the raw bytes. A trailing odd byte is ignored.
func (f *RawFrame) Samples() []uint16 {
	out := make([]uint16, len(f.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(f.Data[i*2:])
	}
	return out
}

// Bundle is a synchronized set of frames from one device cycle. Either frame
// may be missing.
type Bundle struct {
	Depth *RawFrame
	IR    *RawFrame
}

// FrameSet is one acquisition cycle. Ownership passes to whoever receives it.
type FrameSet struct {
	Depth *RawFrame
	IR    *RawFrame

	// Received is the system clock time the bundle was returned.
	Received time.Time
}

// Device is the camera SDK collaborator.
type Device interface {
	// DefaultProfile selects the default video profile for the sensor kind.
	DefaultProfile(kind StreamKind) (Profile, error)

	// Start begins streaming the given profiles.
	Start(profiles []Profile) error

	// WaitForFrames blocks up to timeout. A nil bundle with a nil error means
	// the deadline passed without frames.
	WaitForFrames(timeout time.Duration) (*Bundle, error)

	Stop() error
}

// Source owns an open device for the duration of a session.
type Source struct {
	dev      Device
	profiles map[StreamKind]Profile

	closed bool
	l      sync.Mutex
}

// Open resolves the default profile of every requested kind and starts the
// device.
func Open(dev Device, kinds ...StreamKind) (*Source, error) {
	s := &Source{
		dev:      dev,
		profiles: make(map[StreamKind]Profile),
	}
	var ps []Profile
	for _, k := range kinds {
		p, err := dev.DefaultProfile(k)
		if err != nil {
			return nil, errors.Wrapf(ErrDeviceUnavailable, "no %v profile: %v", k, err)
		}
		s.profiles[k] = p
		ps = append(ps, p)
	}
	if err := dev.Start(ps); err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "start: %v", err)
	}
	for _, p := range ps {
		log.WithField("stream", p.Kind).Infof("Streaming %dx%d @ %d fps", p.Width, p.Height, p.FPS)
	}
	return s, nil
}

// Profile returns the resolved profile for kind.
func (s *Source) Profile(kind StreamKind) (Profile, bool) {
	p, ok := s.profiles[kind]
	return p, ok
}

// ReadFrameSet waits up to timeout for the next bundle. The returned FrameSet
// may be incomplete.
func (s *Source) ReadFrameSet(timeout time.Duration) (*FrameSet, error) {
	s.l.Lock()
	closed := s.closed
	s.l.Unlock()
	if closed {
		return nil, ErrClosed
	}

	b, err := s.dev.WaitForFrames(timeout)
	if err != nil {
		return nil, &ReadFault{Err: err}
	}
	if b == nil {
		return nil, ErrTimeout
	}
	return &FrameSet{
		Depth:    b.Depth,
		IR:       b.IR,
		Received: time.Now(),
	}, nil
}

// Close stops the device. Subsequent calls do nothing.
func (s *Source) Close() error {
	s.l.Lock()
	defer s.l.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dev.Stop()
}
