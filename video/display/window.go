// Package display renders preview frames with OpenCV's highgui.
package display

import (
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"depthcam/video/process"
)

type WindowOptions struct {
	Name string

	// ShowTime overlays elapsed recording time.
	ShowTime bool
	Start    time.Time
	Duration time.Duration
}

// Window is a sink.Display. The OpenCV window is created by the first Show so
// that it belongs to the rendering goroutine's thread.
type Window struct {
	opts    WindowOptions
	window  *gocv.Window
	sizeSet bool
}

func NewWindow(opts WindowOptions) *Window {
	if opts.Name == "" {
		opts.Name = "ir"
	}
	return &Window{opts: opts}
}

func (w *Window) Show(img process.Image8) bool {
	if w.window == nil {
		w.window = gocv.NewWindow(w.opts.Name)
	}
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8U, img.Pix)
	if err != nil {
		log.Errorf("Error building preview image: %v", err)
		return false
	}
	defer mat.Close()

	if w.opts.ShowTime {
		DrawElapsed(&mat, time.Since(w.opts.Start), w.opts.Duration)
	}
	if !w.sizeSet {
		w.window.ResizeWindow(img.Width, img.Height)
		w.sizeSet = true
	}
	w.window.IMShow(mat)
	return w.window.WaitKey(1)&0xff == 'q'
}

func (w *Window) Close() {
	if w.window != nil {
		w.window.Close()
		w.window = nil
	}
}
