package video

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthcam/notify"
	"depthcam/video/process"
	"depthcam/video/sink"
	"depthcam/video/source"
)

// memPipe keeps encoded frames in memory.
type memPipe struct {
	frames []process.Image16
	closes int
	l      sync.Mutex
}

func (p *memPipe) Write(img process.Image16) error {
	p.l.Lock()
	defer p.l.Unlock()
	if p.closes > 0 {
		return sink.ErrPipeClosed
	}
	p.frames = append(p.frames, img)
	return nil
}

func (p *memPipe) Close() error {
	p.l.Lock()
	defer p.l.Unlock()
	p.closes++
	return nil
}

type memEncoders struct {
	pipes map[string]*memPipe
	l     sync.Mutex
}

func (m *memEncoders) Open(stream, path string, width, height int) (sink.FramePipe, error) {
	m.l.Lock()
	defer m.l.Unlock()
	if m.pipes == nil {
		m.pipes = make(map[string]*memPipe)
	}
	p := &memPipe{}
	m.pipes[stream] = p
	return p, nil
}

type nullDisplay struct {
	closes int
	l      sync.Mutex
}

func (d *nullDisplay) Show(img process.Image8) bool { return false }

func (d *nullDisplay) Close() {
	d.l.Lock()
	defer d.l.Unlock()
	d.closes++
}

type captureListener struct {
	started  int
	progress int
	results  []notify.Result
	l        sync.Mutex
}

func (c *captureListener) SessionStarted(s notify.SessionInfo) {
	c.l.Lock()
	defer c.l.Unlock()
	c.started++
}

func (c *captureListener) Progress(s notify.Status) {
	c.l.Lock()
	defer c.l.Unlock()
	c.progress++
}

func (c *captureListener) SessionFinished(r notify.Result) error {
	c.l.Lock()
	defer c.l.Unlock()
	c.results = append(c.results, r)
	return nil
}

type harness struct {
	fs       *Filesystem
	encoders *memEncoders
	display  *nullDisplay
	listener *captureListener
}

func newHarness(t *testing.T) *harness {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return &harness{
		fs:       fs,
		encoders: &memEncoders{},
		display:  &nullDisplay{},
		listener: &captureListener{},
	}
}

func (h *harness) recorder(p Params, dev source.Device) *Recorder {
	n := &notify.Notifier{}
	n.Add(h.listener)
	return NewRecorder(p, RecorderOptions{
		Filesystem:    h.fs,
		Device:        dev,
		Open:          h.encoders.Open,
		NewDisplay:    func(*Session) sink.Display { return h.display },
		ReadTimeout:   100 * time.Millisecond,
		QueueDepth:    64,
		PrintInterval: 5,
		Progress:      io.Discard,
		Notifier:      n,
	})
}

func syntheticOptions() source.SyntheticOptions {
	o := source.DefaultSyntheticOptions()
	o.Width, o.Height = 32, 24
	o.FPS = 30
	o.Depth = 5000
	o.IR = 1000
	o.IRRamp = false
	return o
}

func readTimestamps(t *testing.T, path string) []float64 {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []float64
	s := bufio.NewScanner(f)
	for s.Scan() {
		v, err := strconv.ParseFloat(s.Text(), 64)
		require.NoError(t, err)
		out = append(out, v)
	}
	require.NoError(t, s.Err())
	return out
}

func TestRecorderOneSecondSession(t *testing.T) {
	h := newHarness(t)
	r := h.recorder(Params{
		SubjectName: "mouse1",
		SessionName: "baseline",
		Duration:    time.Second,
		FrameRate:   30,
		SaveIR:      true,
		Preview:     true,
		DisplayTime: true,
	}, source.NewSynthetic(syntheticOptions()))

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stopped, r.State())
	assert.False(t, sum.StoppedEarly)
	assert.InDelta(t, 30, sum.Frames, 3)

	depth := h.encoders.pipes[sink.StreamDepth]
	ir := h.encoders.pipes[sink.StreamIR]
	require.NotNil(t, depth)
	require.NotNil(t, ir)
	assert.Len(t, depth.frames, sum.Frames)
	assert.Len(t, ir.frames, sum.Frames)
	assert.Equal(t, 1, depth.closes)
	assert.Equal(t, 1, ir.closes)
	for _, f := range depth.frames {
		assert.Equal(t, uint16(5000), f.Pix[0])
		assert.Equal(t, uint16(5000), f.Pix[len(f.Pix)-1])
	}
	// A constant IR frame normalizes to a constant.
	for _, f := range ir.frames {
		assert.Equal(t, f.Pix[0], f.Pix[len(f.Pix)-1])
	}

	ts := readTimestamps(t, sum.Session.Paths.DepthTimestamps)
	assert.Len(t, ts, sum.Frames)
	for i := 1; i < len(ts); i++ {
		assert.Greater(t, ts[i], ts[i-1])
	}

	assert.Equal(t, (sum.Frames+1)/2, sum.Previewed)
	assert.Equal(t, 1, h.display.closes)
	assert.Greater(t, sum.FrameRate, 0.0)

	_, err = os.Stat(sum.Session.Paths.Metadata)
	assert.NoError(t, err)

	assert.Equal(t, 1, h.listener.started)
	assert.Equal(t, sum.Frames/5, h.listener.progress)
	require.Len(t, h.listener.results, 1)
	assert.Equal(t, sum.Frames, h.listener.results[0].Frames)
	assert.Empty(t, h.listener.results[0].Err)
}

func TestRecorderDepthOnlyNoPreview(t *testing.T) {
	h := newHarness(t)
	r := h.recorder(Params{Duration: 200 * time.Millisecond}, source.NewSynthetic(syntheticOptions()))

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, h.encoders.pipes[sink.StreamIR])
	assert.Len(t, h.encoders.pipes[sink.StreamDepth].frames, sum.Frames)
	assert.Zero(t, sum.Previewed)
	assert.Zero(t, h.display.closes)
}

func TestRecorderReadFaultStopsEarly(t *testing.T) {
	const k = 7
	o := syntheticOptions()
	o.FPS = 200
	o.FaultAfter = k

	h := newHarness(t)
	r := h.recorder(Params{Duration: time.Minute, SaveIR: true}, source.NewSynthetic(o))

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.StoppedEarly)
	assert.Equal(t, k, sum.Frames)
	assert.Len(t, h.encoders.pipes[sink.StreamDepth].frames, k)
	assert.Len(t, h.encoders.pipes[sink.StreamIR].frames, k)
	assert.Len(t, readTimestamps(t, sum.Session.Paths.DepthTimestamps), k)
	assert.True(t, h.listener.results[0].StoppedEarly)
}

func TestRecorderSkipsIncompleteAndTimeouts(t *testing.T) {
	o := syntheticOptions()
	o.FPS = 200
	o.DropIREvery = 3
	o.TimeoutEvery = 4
	o.FaultAfter = 30

	h := newHarness(t)
	r := h.recorder(Params{Duration: time.Minute, SaveIR: true, Preview: true}, source.NewSynthetic(o))

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	// 30 bundles, every third without IR.
	assert.Equal(t, 10, sum.Skipped)
	assert.Equal(t, 20, sum.Frames)
	assert.Greater(t, sum.Dropped, 0)
	assert.Equal(t, 10, sum.Previewed)
	assert.Len(t, h.encoders.pipes[sink.StreamDepth].frames, 20)
	assert.Len(t, h.encoders.pipes[sink.StreamIR].frames, 20)
	assert.Len(t, readTimestamps(t, sum.Session.Paths.DepthTimestamps), 20)
}

func TestRecorderDeviceUnavailable(t *testing.T) {
	o := syntheticOptions()
	o.Unavailable = []source.StreamKind{source.Depth}

	h := newHarness(t)
	r := h.recorder(Params{Duration: time.Second, Preview: true}, source.NewSynthetic(o))

	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, source.ErrDeviceUnavailable))
	assert.Equal(t, Stopped, r.State())
	assert.Empty(t, h.encoders.pipes)
	assert.Zero(t, h.listener.started)
	assert.Empty(t, h.listener.results)
}

func TestRecorderEncoderFaultAborts(t *testing.T) {
	h := newHarness(t)
	n := &notify.Notifier{}
	n.Add(h.listener)
	r := NewRecorder(Params{Duration: time.Minute}, RecorderOptions{
		Filesystem: h.fs,
		Device:     source.NewSynthetic(syntheticOptions()),
		Open: func(stream, path string, w, h int) (sink.FramePipe, error) {
			return nil, errors.New("ffmpeg: no such file")
		},
		QueueDepth: 1,
		Progress:   io.Discard,
		Notifier:   n,
	})

	start := time.Now()
	sum, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, sink.IsFault(err))
	assert.Less(t, time.Since(start), 10*time.Second)
	// Nothing reached the depth pipe, so no timestamp is persisted.
	assert.Zero(t, sum.Frames)
	assert.Empty(t, readTimestamps(t, sum.Session.Paths.DepthTimestamps))
	require.Len(t, h.listener.results, 1)
	assert.NotEmpty(t, h.listener.results[0].Err)
}

// slowPipe takes delay per write and fails once failAt frames are stored.
type slowPipe struct {
	memPipe
	delay  time.Duration
	failAt int
}

func (p *slowPipe) Write(img process.Image16) error {
	time.Sleep(p.delay)
	p.l.Lock()
	n := len(p.frames)
	p.l.Unlock()
	if n >= p.failAt {
		return errors.New("broken pipe")
	}
	return p.memPipe.Write(img)
}

func TestRecorderEncoderFaultTruncatesTimestamps(t *testing.T) {
	h := newHarness(t)
	var depth *slowPipe
	o := syntheticOptions()
	o.FPS = 200
	r := NewRecorder(Params{Duration: time.Minute, SaveIR: true}, RecorderOptions{
		Filesystem: h.fs,
		Device:     source.NewSynthetic(o),
		Open: func(stream, path string, w, ht int) (sink.FramePipe, error) {
			if stream == sink.StreamDepth {
				depth = &slowPipe{delay: 20 * time.Millisecond, failAt: 3}
				return depth, nil
			}
			return h.encoders.Open(stream, path, w, ht)
		},
		QueueDepth: 512,
		Progress:   io.Discard,
	})

	sum, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, sink.IsFault(err))
	require.NotNil(t, depth)

	depth.l.Lock()
	written := len(depth.frames)
	depth.l.Unlock()
	assert.Equal(t, 3, written)
	assert.Equal(t, written, sum.Frames)
	assert.Greater(t, sum.Lost, 0)
	assert.Len(t, readTimestamps(t, sum.Session.Paths.DepthTimestamps), written)
}

func TestRecorderContextCancel(t *testing.T) {
	h := newHarness(t)
	r := h.recorder(Params{Duration: time.Minute}, source.NewSynthetic(syntheticOptions()))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	sum, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, sum.StoppedEarly)
	assert.Greater(t, sum.Frames, 0)
	assert.Len(t, readTimestamps(t, sum.Session.Paths.DepthTimestamps), sum.Frames)
}

func TestRecorderRunsOnce(t *testing.T) {
	h := newHarness(t)
	r := h.recorder(Params{Duration: 50 * time.Millisecond}, source.NewSynthetic(syntheticOptions()))
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(42).String())
}
