package sink

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"depthcam/metrics"
	"depthcam/video/process"
)

const (
	StreamDepth = "depth"
	StreamIR    = "ir"
)

type EncoderOptions struct {
	DepthPath string
	IRPath    string
	SaveIR    bool

	// QueueDepth bounds the pending frame pairs. Put blocks when it is full.
	QueueDepth int

	Open PipeOpener
}

type framePair struct {
	depth, ir process.Image16
}

// Encoder is the worker streaming transformed frames into one encoder pipe
// per saved stream. Pipes are opened on the first frame and closed once the
// input is closed.
type Encoder struct {
	opts EncoderOptions

	in   chan framePair
	done chan bool

	err     error
	closed  bool
	written int
	l       sync.Mutex
}

func NewEncoder(opts EncoderOptions) *Encoder {
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 1
	}
	e := &Encoder{
		opts: opts,
		in:   make(chan framePair, opts.QueueDepth),
		done: make(chan bool),
	}
	go e.loop()
	return e
}

func (e *Encoder) loop() {
	defer close(e.done)

	pipes := make(map[string]FramePipe)
	var order []string

	write := func(stream, path string, img process.Image16) error {
		p, ok := pipes[stream]
		if !ok {
			var err error
			p, err = e.opts.Open(stream, path, img.Width, img.Height)
			if err != nil {
				return err
			}
			pipes[stream] = p
			order = append(order, stream)
		}
		if err := p.Write(img); err != nil {
			return err
		}
		metrics.EncodedFrames.WithLabelValues(stream).Inc()
		metrics.EncodedBytes.WithLabelValues(stream).Add(float64(len(img.Pix) * 2))
		return nil
	}

	for p := range e.in {
		metrics.EncoderQueue.Set(float64(len(e.in)))
		if e.Err() != nil {
			// Keep draining so the producer never blocks on a failed sink.
			continue
		}
		if err := write(StreamDepth, e.opts.DepthPath, p.depth); err != nil {
			e.fail(StreamDepth, err)
			continue
		}
		e.l.Lock()
		e.written++
		e.l.Unlock()
		if e.opts.SaveIR {
			if err := write(StreamIR, e.opts.IRPath, p.ir); err != nil {
				e.fail(StreamIR, err)
			}
		}
	}

	for _, stream := range order {
		if err := pipes[stream].Close(); err != nil {
			e.fail(stream, err)
		}
	}
	log.Infof("Encoder closed %d pipes", len(order))
}

func (e *Encoder) fail(stream string, err error) {
	e.l.Lock()
	defer e.l.Unlock()
	log.WithField("stream", stream).Errorf("Encoder failure: %v", err)
	if e.err == nil {
		e.err = &EncoderFault{Stream: stream, Err: err}
	}
}

// Err returns the first fault raised by the worker, if any.
func (e *Encoder) Err() error {
	e.l.Lock()
	defer e.l.Unlock()
	return e.err
}

// Written is the number of depth frames handed to the depth pipe. Frames
// queued behind a fault are discarded and not counted.
func (e *Encoder) Written() int {
	e.l.Lock()
	defer e.l.Unlock()
	return e.written
}

// Put queues one acquisition cycle. It blocks while the queue is full and
// returns the worker's fault once one has occurred.
func (e *Encoder) Put(depth, ir process.Image16) error {
	e.l.Lock()
	closed, err := e.closed, e.err
	e.l.Unlock()
	if closed {
		return ErrSinkClosed
	}
	if err != nil {
		return err
	}
	e.in <- framePair{depth: depth, ir: ir}
	return nil
}

// Close signals the end of input, waits for every pipe to be finalized and
// returns the first fault.
func (e *Encoder) Close() error {
	e.l.Lock()
	if e.closed {
		e.l.Unlock()
		<-e.done
		return e.Err()
	}
	e.closed = true
	e.l.Unlock()

	close(e.in)
	<-e.done
	return e.Err()
}

// IsFault reports whether err is an EncoderFault.
func IsFault(err error) bool {
	var f *EncoderFault
	return errors.As(err, &f)
}
