package serve

import (
	"encoding/json"
	"net/http"

	"depthcam/video"
)

type SessionEntry struct {
	ID        string
	Timestamp int64

	HaveMetadata   bool
	HaveDepth      bool
	HaveIR         bool
	HaveTimestamps bool

	Size int64
}

type SessionsResponse struct {
	Items []*SessionEntry

	ItemsTotalSize int64
	ItemsCount     int
}

func toSessionEntry(r *video.SessionRecord) *SessionEntry {
	return &SessionEntry{
		ID:             r.Name,
		Timestamp:      r.Time.Unix(),
		HaveMetadata:   r.HaveMetadata,
		HaveDepth:      r.HaveDepth,
		HaveIR:         r.HaveIR,
		HaveTimestamps: r.HaveTimestamps,
		Size:           r.Size,
	}
}

// SessionServer lists the recordings found under the output directory.
type SessionServer struct {
	FS *video.Filesystem
}

func (s *SessionServer) BuildResponse() (*SessionsResponse, error) {
	records, err := s.FS.Sessions()
	if err != nil {
		return nil, err
	}
	resp := &SessionsResponse{Items: []*SessionEntry{}}
	for _, r := range records {
		resp.Items = append(resp.Items, toSessionEntry(r))
		resp.ItemsTotalSize += r.Size
	}
	resp.ItemsCount = len(records)
	return resp, nil
}

func (s *SessionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := s.BuildResponse()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	js, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
