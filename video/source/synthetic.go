package source

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type SyntheticOptions struct {
	Width, Height int
	FPS           int

	// Depth is the raw depth sample value; multiplied by DepthScale on read.
	Depth      uint16
	DepthScale float32

	// IR is the base infrared value. With IRRamp the value grows by one per
	// pixel so every frame spans a range.
	IR     uint16
	IRRamp bool

	// If non-zero, WaitForFrames fails after this many bundles.
	FaultAfter int

	// If non-zero, every Nth bundle has no IR frame.
	DropIREvery int

	// If non-zero, every Nth wait times out.
	TimeoutEvery int

	// Unavailable lists sensor kinds the device pretends not to have.
	Unavailable []StreamKind
}

func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Width:      640,
		Height:     576,
		FPS:        30,
		Depth:      5000,
		DepthScale: 1,
		IR:         1000,
		IRRamp:     true,
	}
}

// Synthetic is a software device producing frames at a fixed cadence.
type Synthetic struct {
	opts SyntheticOptions

	started bool
	start   time.Time
	next    time.Time
	waits   int
	bundles int

	l sync.Mutex
}

func NewSynthetic(opts SyntheticOptions) *Synthetic {
	return &Synthetic{opts: opts}
}

func (s *Synthetic) DefaultProfile(kind StreamKind) (Profile, error) {
	for _, k := range s.opts.Unavailable {
		if k == kind {
			return Profile{}, errors.Errorf("no %v sensor", kind)
		}
	}
	return Profile{Kind: kind, Width: s.opts.Width, Height: s.opts.Height, FPS: s.opts.FPS}, nil
}

func (s *Synthetic) Start(profiles []Profile) error {
	s.l.Lock()
	defer s.l.Unlock()
	if s.started {
		return errors.New("synthetic device already started")
	}
	if s.opts.FPS <= 0 {
		return errors.Errorf("invalid frame rate %d", s.opts.FPS)
	}
	s.started = true
	s.start = time.Now()
	s.next = s.start
	return nil
}

func (s *Synthetic) WaitForFrames(timeout time.Duration) (*Bundle, error) {
	s.l.Lock()
	defer s.l.Unlock()
	if !s.started {
		return nil, errors.New("synthetic device not started")
	}
	s.waits++
	if s.opts.TimeoutEvery > 0 && s.waits%s.opts.TimeoutEvery == 0 {
		return nil, nil
	}
	if s.opts.FaultAfter > 0 && s.bundles >= s.opts.FaultAfter {
		return nil, errors.New("input/output error")
	}

	wait := time.Until(s.next)
	if wait > timeout {
		time.Sleep(timeout)
		return nil, nil
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	frameDur := time.Second / time.Duration(s.opts.FPS)
	ts := float64(s.next.Sub(s.start)) / float64(time.Millisecond)
	s.next = s.next.Add(frameDur)
	s.bundles++

	b := &Bundle{
		Depth: s.frame(s.opts.Depth, false, ts),
	}
	b.Depth.Scale = s.opts.DepthScale
	if s.opts.DropIREvery == 0 || s.bundles%s.opts.DropIREvery != 0 {
		b.IR = s.frame(s.opts.IR, s.opts.IRRamp, ts)
		b.IR.Scale = 1
	}
	return b, nil
}

func (s *Synthetic) frame(v uint16, ramp bool, ts float64) *RawFrame {
	n := s.opts.Width * s.opts.Height
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		x := v
		if ramp {
			x = v + uint16(i%4096)
		}
		binary.LittleEndian.PutUint16(data[i*2:], x)
	}
	return &RawFrame{
		Width:     s.opts.Width,
		Height:    s.opts.Height,
		Timestamp: ts,
		Data:      data,
	}
}

func (s *Synthetic) Stop() error {
	s.l.Lock()
	defer s.l.Unlock()
	s.started = false
	return nil
}
