package sink

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"depthcam/video/process"
)

const fakeFFmpegEnv = "DEPTHCAM_FAKE_FFMPEG"

// TestMain lets the test binary stand in for ffmpeg: when fakeFFmpegEnv is
// set it copies stdin to the output path (the last argument).
func TestMain(m *testing.M) {
	switch os.Getenv(fakeFFmpegEnv) {
	case "":
		os.Exit(m.Run())
	case "fail":
		os.Exit(1)
	default:
		out, err := os.Create(os.Args[len(os.Args)-1])
		if err != nil {
			os.Exit(2)
		}
		if _, err := io.Copy(out, os.Stdin); err != nil {
			os.Exit(3)
		}
		if err := out.Close(); err != nil {
			os.Exit(4)
		}
		os.Exit(0)
	}
}

func fakeFFmpeg(t *testing.T, mode string) FFmpegOptions {
	t.Setenv(fakeFFmpegEnv, mode)
	return FFmpegOptions{
		Binary:  os.Args[0],
		FPS:     30,
		Threads: 1,
		Slices:  4,
	}
}

func image16(w, h int, v uint16) process.Image16 {
	img := process.NewImage16(w, h)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// memPipe records frames in memory.
type memPipe struct {
	stream        string
	width, height int

	frames   []process.Image16
	closes   int
	writeErr error
	closeErr error

	// failAfter, if positive, fails every write once that many frames
	// have been stored.
	failAfter int

	l sync.Mutex
}

func (p *memPipe) Write(img process.Image16) error {
	p.l.Lock()
	defer p.l.Unlock()
	if p.closes > 0 {
		return ErrPipeClosed
	}
	if p.writeErr != nil {
		return p.writeErr
	}
	if p.failAfter > 0 && len(p.frames) >= p.failAfter {
		return errors.New("broken pipe")
	}
	if img.Width != p.width || img.Height != p.height {
		return ErrFrameSize
	}
	p.frames = append(p.frames, img)
	return nil
}

func (p *memPipe) Close() error {
	p.l.Lock()
	defer p.l.Unlock()
	p.closes++
	return p.closeErr
}

func (p *memPipe) count() (frames, closes int) {
	p.l.Lock()
	defer p.l.Unlock()
	return len(p.frames), p.closes
}

type memOpener struct {
	pipes map[string]*memPipe
	opens map[string]int

	// prepare, if set, adjusts each new pipe.
	prepare func(p *memPipe)

	l sync.Mutex
}

func newMemOpener() *memOpener {
	return &memOpener{
		pipes: make(map[string]*memPipe),
		opens: make(map[string]int),
	}
}

func (o *memOpener) Open(stream, path string, width, height int) (FramePipe, error) {
	o.l.Lock()
	defer o.l.Unlock()
	p := &memPipe{stream: stream, width: width, height: height}
	if o.prepare != nil {
		o.prepare(p)
	}
	o.pipes[stream] = p
	o.opens[stream]++
	return p, nil
}

func (o *memOpener) pipe(stream string) *memPipe {
	o.l.Lock()
	defer o.l.Unlock()
	return o.pipes[stream]
}
