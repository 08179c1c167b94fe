package sink

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"depthcam/video/process"
)

type FFmpegOptions struct {
	// Binary is the path to ffmpeg.
	Binary string

	FPS     int
	Threads int
	Slices  int
}

// FFmpegPipe streams raw gray16le frames into an ffmpeg process encoding
// lossless FFV1.
type FFmpegPipe struct {
	path          string
	width, height int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr sync.WaitGroup

	closed bool
	l      sync.Mutex
}

func ffmpegArgs(path string, width, height int, o FFmpegOptions) []string {
	fps := strconv.Itoa(o.FPS)
	return []string{
		"-y",
		"-loglevel", "fatal",
		// Headerless frames from stdin.
		"-framerate", fps,
		"-f", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-pix_fmt", "gray16le",
		"-i", "-",
		"-an",
		// Lossless, sliced for parallel encoding, slices protected by CRC.
		"-vcodec", "ffv1",
		"-threads", strconv.Itoa(o.Threads),
		"-slices", strconv.Itoa(o.Slices),
		"-slicecrc", "1",
		"-r", fps,
		path,
	}
}

// NewFFmpegPipe starts ffmpeg writing to path.
func NewFFmpegPipe(path string, width, height int, o FFmpegOptions) (*FFmpegPipe, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrFrameSize, "invalid size %dx%d", width, height)
	}
	c := exec.Command(o.Binary, ffmpegArgs(path, width, height, o)...)

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error getting stdin")
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error getting stderr")
	}
	if err := c.Start(); err != nil {
		return nil, errors.Wrap(err, "error starting ffmpeg")
	}

	f := &FFmpegPipe{
		path:   path,
		width:  width,
		height: height,
		cmd:    c,
		stdin:  stdin,
	}
	f.stderr.Add(1)
	go func() {
		defer f.stderr.Done()
		s := bufio.NewScanner(stderr)
		for s.Scan() {
			log.WithField("path", path).Warnf("ffmpeg: %s", s.Text())
		}
	}()
	log.WithField("path", path).Infof("Started ffmpeg for %dx%d @ %d fps", width, height, o.FPS)
	return f, nil
}

func (f *FFmpegPipe) Write(img process.Image16) error {
	f.l.Lock()
	defer f.l.Unlock()
	if f.closed {
		return ErrPipeClosed
	}
	if img.Width != f.width || img.Height != f.height || len(img.Pix) != f.width*f.height {
		return errors.Wrapf(ErrFrameSize, "got %dx%d, want %dx%d", img.Width, img.Height, f.width, f.height)
	}
	if _, err := f.stdin.Write(img.Bytes()); err != nil {
		return errors.Wrap(err, "error writing to pipe")
	}
	return nil
}

// Close ends the input stream and waits for ffmpeg to finalize the file.
func (f *FFmpegPipe) Close() error {
	f.l.Lock()
	defer f.l.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	f.stdin.Close()
	log.WithField("path", f.path).Infof("Waiting for ffmpeg shutdown.")
	// Stderr must be drained before Wait closes it.
	f.stderr.Wait()
	if err := f.cmd.Wait(); err != nil {
		return errors.Wrapf(err, "ffmpeg exited for %v", f.path)
	}
	log.WithField("path", f.path).Infof("ffmpeg finished")
	return nil
}

// FFmpegOpener returns a PipeOpener that launches ffmpeg for every stream.
func FFmpegOpener(o FFmpegOptions) PipeOpener {
	return func(stream, path string, width, height int) (FramePipe, error) {
		return NewFFmpegPipe(path, width, height, o)
	}
}
