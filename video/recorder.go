package video

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"depthcam/metrics"
	"depthcam/notify"
	"depthcam/video/process"
	"depthcam/video/sink"
	"depthcam/video/source"
)

const (
	DefaultReadTimeout   = time.Second
	DefaultPrintInterval = 15

	// Only every previewDecimation-th accepted frame is offered to the preview.
	previewDecimation = 2
)

// Params are the immutable settings of one recording.
type Params struct {
	SubjectName string
	SessionName string
	Duration    time.Duration
	FrameRate   int

	SaveIR      bool
	Preview     bool
	DisplayTime bool

	// DepthHeightThreshold is the visualization ceiling in millimeters. It
	// never affects saved data.
	DepthHeightThreshold int
}

// Session is a recording in progress.
type Session struct {
	Params
	Paths *SessionPaths
	Start time.Time
}

func (s *Session) info() notify.SessionInfo {
	return notify.SessionInfo{
		Dir:         s.Paths.Dir,
		SubjectName: s.SubjectName,
		SessionName: s.SessionName,
		Start:       s.Start,
		Duration:    s.Duration,
		SaveIR:      s.SaveIR,
	}
}

type State int32

const (
	Idle State = iota
	Starting
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type RecorderOptions struct {
	Filesystem *Filesystem
	Device     source.Device

	// Open launches the encoder for a stream.
	Open sink.PipeOpener

	// NewDisplay creates the preview display. Preview is disabled when nil.
	NewDisplay func(s *Session) sink.Display

	ReadTimeout   time.Duration
	QueueDepth    int
	PrintInterval int

	// Progress receives the status line when DisplayTime is set.
	Progress io.Writer

	Notifier *notify.Notifier
}

// Summary describes a finished session.
type Summary struct {
	Session *Session

	// Frames is the number of accepted frame sets, equal to the number of
	// persisted timestamps.
	Frames int
	// Previewed is the number of frames offered to the preview.
	Previewed int
	Dropped   int
	Skipped   int
	// Lost is the number of frames accepted from the device but discarded
	// by the encoder after a fault. They are excluded from Frames.
	Lost int

	FrameRate    float64
	StoppedEarly bool
}

// Recorder drives one session: it owns the device, feeds the encoder and
// preview workers and persists timestamps when done.
type Recorder struct {
	params Params
	opts   RecorderOptions
	state  int32
}

func NewRecorder(p Params, o RecorderOptions) *Recorder {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.PrintInterval <= 0 {
		o.PrintInterval = DefaultPrintInterval
	}
	if o.Notifier == nil {
		o.Notifier = &notify.Notifier{}
	}
	return &Recorder{
		params: p,
		opts:   o,
	}
}

func (r *Recorder) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *Recorder) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
	log.Debugf("Recorder state %v", s)
}

// Run records until the duration elapses, ctx is cancelled or the device
// fails. Device failures end the session early without an error; encoder
// failures are returned. In both cases everything captured is persisted.
func (r *Recorder) Run(ctx context.Context) (*Summary, error) {
	if !atomic.CompareAndSwapInt32(&r.state, int32(Idle), int32(Starting)) {
		return nil, errors.New("recorder already used")
	}
	defer r.setState(Stopped)

	start := time.Now()
	paths, err := r.opts.Filesystem.NewSession(start)
	if err != nil {
		return nil, err
	}

	src, err := source.Open(r.opts.Device, source.Depth, source.IR)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	depthProfile, _ := src.Profile(source.Depth)
	irProfile, _ := src.Profile(source.IR)
	if err := WriteMetadata(paths.Metadata, NewMetadata(r.params, depthProfile, irProfile, start)); err != nil {
		return nil, err
	}

	s := &Session{
		Params: r.params,
		Paths:  paths,
		Start:  start,
	}
	log.Infof("Recording to %v for %v", paths.Dir, r.params.Duration)
	log.Debugf("Preview depth height threshold %d mm", r.params.DepthHeightThreshold)
	r.opts.Notifier.SessionStarted(s.info())

	enc := sink.NewEncoder(sink.EncoderOptions{
		DepthPath:  paths.Depth,
		IRPath:     paths.IR,
		SaveIR:     r.params.SaveIR,
		QueueDepth: r.opts.QueueDepth,
		Open:       r.opts.Open,
	})
	var preview *sink.Preview
	if r.params.Preview && r.opts.NewDisplay != nil {
		preview = sink.NewPreview(r.opts.NewDisplay(s))
	}

	sum := &Summary{Session: s}
	tl := &TimestampLog{}

	r.setState(Running)
	runErr := r.acquire(ctx, s, src, enc, preview, tl, sum)

	r.setState(Draining)
	if err := src.Close(); err != nil {
		log.Warnf("Error stopping device: %v", err)
	}

	encErr := enc.Close()
	if written := enc.Written(); written < tl.Len() {
		sum.Lost = tl.Len() - written
		log.Errorf("Encoder discarded %d accepted frames; dropping their timestamps", sum.Lost)
		tl.Truncate(written)
		sum.Frames = written
	}

	tsErr := tl.WriteDevice(paths.DepthTimestamps)
	if tsErr != nil {
		log.Errorf("Failed to persist timestamps: %v", tsErr)
	}
	sum.FrameRate = tl.FrameRate()
	metrics.FrameRate.Set(sum.FrameRate)
	if r.params.DisplayTime {
		NewProgress(r.opts.Progress, start, r.params.Duration).Finish(sum.FrameRate)
	}
	log.Infof("Session average frame rate %.2f fps over %d frames", sum.FrameRate, sum.Frames)

	if preview != nil {
		preview.Close()
	}

	err = firstError(runErr, encErr, tsErr)
	r.opts.Notifier.SessionFinished(r.result(s, sum, err))
	return sum, err
}

func (r *Recorder) acquire(ctx context.Context, s *Session, src *source.Source, enc *sink.Encoder, preview *sink.Preview, tl *TimestampLog, sum *Summary) error {
	progress := NewProgress(r.opts.Progress, s.Start, s.Duration)

	for time.Since(s.Start) < s.Duration {
		if err := ctx.Err(); err != nil {
			log.Warnf("Recording interrupted: %v", err)
			sum.StoppedEarly = true
			return nil
		}

		fs, err := src.ReadFrameSet(r.opts.ReadTimeout)
		if errors.Is(err, source.ErrTimeout) {
			log.Warnf("Dropped frame")
			sum.Dropped++
			metrics.FramesDropped.Inc()
			continue
		}
		if err != nil {
			log.Warnf("Recording stopped early: %v", err)
			sum.StoppedEarly = true
			return nil
		}

		if fs.Depth == nil || fs.IR == nil {
			sum.Skipped++
			metrics.BundlesSkipped.Inc()
			continue
		}

		depth, ir := process.Transform(fs.Depth, fs.IR)
		if err := enc.Put(depth, ir); err != nil {
			return err
		}
		if preview != nil && sum.Frames%previewDecimation == 0 {
			preview.Put(ir)
			sum.Previewed++
		}
		tl.Append(fs.Received, fs.Depth.Timestamp)
		sum.Frames++
		metrics.FramesAccepted.Inc()

		if sum.Frames%r.opts.PrintInterval == 0 {
			fps := tl.FrameRate()
			metrics.FrameRate.Set(fps)
			if s.DisplayTime {
				progress.Report(time.Now(), fps)
			}
			r.opts.Notifier.Progress(notify.Status{
				Dir:       s.Paths.Dir,
				State:     r.State().String(),
				Elapsed:   time.Since(s.Start),
				Duration:  s.Duration,
				Frames:    sum.Frames,
				Dropped:   sum.Dropped,
				Skipped:   sum.Skipped,
				FrameRate: fps,
			})
		}
	}
	return nil
}

func (r *Recorder) result(s *Session, sum *Summary, err error) notify.Result {
	res := notify.Result{
		SessionInfo:  s.info(),
		End:          time.Now(),
		Frames:       sum.Frames,
		Dropped:      sum.Dropped,
		Skipped:      sum.Skipped,
		Lost:         sum.Lost,
		FrameRate:    sum.FrameRate,
		StoppedEarly: sum.StoppedEarly,
	}
	if err != nil {
		res.Err = err.Error()
	}
	return res
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
