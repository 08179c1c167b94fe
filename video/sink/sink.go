package sink

import (
	"github.com/pkg/errors"

	"depthcam/video/process"
)

var (
	// ErrPipeClosed is returned when writing to a pipe after Close.
	ErrPipeClosed = errors.New("encoder pipe is closed")

	// ErrFrameSize is returned when a frame does not match the size the pipe
	// was opened with.
	ErrFrameSize = errors.New("frame size does not match encoder pipe")

	// ErrSinkClosed is returned by Put after the sink has been closed.
	ErrSinkClosed = errors.New("sink is closed")
)

// EncoderFault is a failure of an encoder process. It is fatal to the session.
type EncoderFault struct {
	Stream string
	Err    error
}

func (f *EncoderFault) Error() string {
	return "encoder fault on " + f.Stream + ": " + f.Err.Error()
}

func (f *EncoderFault) Unwrap() error {
	return f.Err
}

// FramePipe is a streaming handle to an encoder bound to one output file. The
// frame size is fixed when the pipe is opened.
type FramePipe interface {
	// Write sends one frame. It must not be called after Close.
	Write(img process.Image16) error

	// Close finalizes the output. Only the first call has an effect.
	Close() error
}

// PipeOpener opens a FramePipe for the named stream.
type PipeOpener func(stream, path string, width, height int) (FramePipe, error)

// Display renders preview images, such as an on-screen window.
type Display interface {
	// Show renders img and reports whether the viewer asked to quit.
	Show(img process.Image8) (quit bool)

	Close()
}
