package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
)

// SessionInfo describes a recording when it starts.
type SessionInfo struct {
	Dir         string
	SubjectName string
	SessionName string
	Start       time.Time
	Duration    time.Duration
	SaveIR      bool
}

// Status is a periodic snapshot of a running session.
type Status struct {
	Dir       string
	State     string
	Elapsed   time.Duration
	Duration  time.Duration
	Frames    int
	Dropped   int
	Skipped   int
	FrameRate float64
}

// Result is sent once the session has been drained.
type Result struct {
	SessionInfo

	End          time.Time
	Frames       int
	Dropped      int
	Skipped      int
	Lost         int
	FrameRate    float64
	StoppedEarly bool

	// Err is the failure that aborted the session, if any.
	Err string
}

// Listener receives session lifecycle events. Implementations must not block
// in Progress; it is called from the acquisition loop.
type Listener interface {
	SessionStarted(s SessionInfo)
	Progress(s Status)
	SessionFinished(r Result) error
}

// Notifier fans events out to all registered Listeners.
type Notifier struct {
	Listeners []Listener

	l sync.Mutex
}

func (n *Notifier) listeners() []Listener {
	n.l.Lock()
	defer n.l.Unlock()
	return n.Listeners[:]
}

// Add registers a listener.
func (n *Notifier) Add(l Listener) {
	n.l.Lock()
	defer n.l.Unlock()
	n.Listeners = append(n.Listeners, l)
}

func (n *Notifier) SessionStarted(s SessionInfo) {
	for _, l := range n.listeners() {
		l.SessionStarted(s)
	}
}

func (n *Notifier) Progress(s Status) {
	for _, l := range n.listeners() {
		l.Progress(s)
	}
}

// SessionFinished delivers the result to every listener concurrently and
// waits for all of them.
func (n *Notifier) SessionFinished(r Result) {
	log.Debugf("Session finished: %v", spew.Sdump(r))
	var wg sync.WaitGroup
	for _, l := range n.listeners() {
		wg.Add(1)
		go func(l Listener) {
			defer wg.Done()
			if err := l.SessionFinished(r); err != nil {
				log.Errorf("Failed to deliver session result: %v", err)
			}
		}(l)
	}
	wg.Wait()
}
