package serve

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"depthcam/notify"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second
)

// StatusMessage is the JSON form of the session status.
type StatusMessage struct {
	Dir         string
	SubjectName string `json:",omitempty"`
	SessionName string `json:",omitempty"`
	State       string

	ElapsedSec  float64
	DurationSec float64
	Frames      int
	Dropped     int
	Skipped     int
	FrameRate   float64

	StoppedEarly bool   `json:",omitempty"`
	Error        string `json:",omitempty"`
}

// StatusUpdater is a notify.Listener that keeps the latest session status and
// pushes every update to connected websocket clients.
type StatusUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	notify   chan []byte

	last []byte
	l    sync.Mutex
}

func NewStatusUpdater() *StatusUpdater {
	m := &StatusUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan []byte]bool),
		addc:   make(chan chan []byte),
		delc:   make(chan chan []byte),
		notify: make(chan []byte),
		last:   []byte(`{"State":"idle"}`),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
			case c := <-m.delc:
				delete(m.cs, c)
			case b := <-m.notify:
				for k := range m.cs {
					select {
					case k <- b:
					default:
						// Skip clients not ready for the next update.
					}
				}
			}
		}
	}()
	return m
}

func (m *StatusUpdater) publish(msg *StatusMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to encode status: %v", err)
		return
	}
	m.l.Lock()
	m.last = b
	m.l.Unlock()
	m.notify <- b
}

// Last returns the most recent status as JSON.
func (m *StatusUpdater) Last() []byte {
	m.l.Lock()
	defer m.l.Unlock()
	return m.last
}

func (m *StatusUpdater) SessionStarted(s notify.SessionInfo) {
	m.publish(&StatusMessage{
		Dir:         s.Dir,
		SubjectName: s.SubjectName,
		SessionName: s.SessionName,
		State:       "running",
		DurationSec: s.Duration.Seconds(),
	})
}

func (m *StatusUpdater) Progress(s notify.Status) {
	m.publish(&StatusMessage{
		Dir:         s.Dir,
		State:       s.State,
		ElapsedSec:  s.Elapsed.Seconds(),
		DurationSec: s.Duration.Seconds(),
		Frames:      s.Frames,
		Dropped:     s.Dropped,
		Skipped:     s.Skipped,
		FrameRate:   s.FrameRate,
	})
}

func (m *StatusUpdater) SessionFinished(r notify.Result) error {
	m.publish(&StatusMessage{
		Dir:          r.Dir,
		SubjectName:  r.SubjectName,
		SessionName:  r.SessionName,
		State:        "stopped",
		ElapsedSec:   r.End.Sub(r.Start).Seconds(),
		DurationSec:  r.Duration.Seconds(),
		Frames:       r.Frames,
		Dropped:      r.Dropped,
		Skipped:      r.Skipped,
		FrameRate:    r.FrameRate,
		StoppedEarly: r.StoppedEarly,
		Error:        r.Err,
	})
	return nil
}

// ServeStatus writes the latest status as JSON.
func (m *StatusUpdater) ServeStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(m.Last())
}

// ServeHTTP upgrades to a websocket streaming status updates.
func (m *StatusUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for status stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *StatusUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to status socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from status socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	notifyc := make(chan []byte, 1)
	m.addc <- notifyc
	defer func() { m.delc <- notifyc }()

	// Even though we don't care about incoming messages, we need to read from
	// the socket in order to process control messages.
	closed := make(chan bool)
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, m.Last()); err != nil {
		return
	}

	for {
		select {
		case b := <-notifyc:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
