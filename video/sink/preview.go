package sink

import (
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"

	"depthcam/metrics"
	"depthcam/util"
	"depthcam/video/process"
)

// previewDepth is small on purpose: the preview only ever wants the newest
// frame.
const previewDepth = 2

// Preview renders IR frames to a Display on its own goroutine. Put never
// blocks; stale frames are discarded.
type Preview struct {
	display Display

	in   chan process.Image16
	done chan bool
	quit *util.Event

	closed bool
	l      sync.Mutex
}

func NewPreview(display Display) *Preview {
	p := &Preview{
		display: display,
		in:      make(chan process.Image16, previewDepth),
		done:    make(chan bool),
		quit:    util.NewEvent(),
	}
	go p.loop()
	return p
}

func (p *Preview) loop() {
	// GUI toolkits expect every call from one thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(p.done)

	for img := range p.in {
		if !p.quit.HasBeenNotified() {
			if p.display.Show(process.LogCompress(img)) {
				log.Infof("Preview closed by viewer; recording continues")
				p.display.Close()
				p.quit.Notify()
			}
		}
		p.drain()
	}

	if !p.quit.HasBeenNotified() {
		p.display.Close()
	}
}

// drain discards anything queued while the last frame was rendered.
func (p *Preview) drain() {
	for {
		select {
		case _, ok := <-p.in:
			if !ok {
				return
			}
			metrics.PreviewDropped.Inc()
		default:
			return
		}
	}
}

// Put offers a frame, replacing the oldest queued frame if the queue is full.
// Frames offered after the viewer quit are discarded without queueing.
func (p *Preview) Put(ir process.Image16) {
	p.l.Lock()
	defer p.l.Unlock()
	if p.closed {
		return
	}
	select {
	case <-p.quit.Done():
		// Dismissed by the viewer; nothing is rendered anymore.
		return
	default:
	}
	for {
		select {
		case p.in <- ir:
			return
		default:
		}
		select {
		case <-p.in:
			metrics.PreviewDropped.Inc()
		default:
		}
	}
}

// Quit is notified when the viewer dismisses the preview.
func (p *Preview) Quit() *util.Event {
	return p.quit
}

// Close stops the worker and closes the display.
func (p *Preview) Close() {
	p.l.Lock()
	if !p.closed {
		p.closed = true
		close(p.in)
	}
	p.l.Unlock()
	<-p.done
}
