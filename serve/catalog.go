package serve

import (
	"encoding/json"
	"net/http"
	"strconv"

	"depthcam/catalog"
)

const defaultCatalogLimit = 50

// SessionCatalog is the query side of catalog.Catalog.
type SessionCatalog interface {
	Recent(limit int) ([]*catalog.SessionRecord, error)
	ForSubject(subject string) ([]*catalog.SessionRecord, error)
}

type CatalogEntry struct {
	Dir         string
	SubjectName string
	SessionName string
	Start       int64
	End         int64

	Frames       int
	Dropped      int
	Skipped      int
	Lost         int
	FrameRate    float64
	StoppedEarly bool
	Error        string `json:",omitempty"`
}

func toCatalogEntry(r *catalog.SessionRecord) *CatalogEntry {
	return &CatalogEntry{
		Dir:          r.Dir,
		SubjectName:  r.SubjectName,
		SessionName:  r.SessionName,
		Start:        r.StartedAt.Unix(),
		End:          r.EndedAt.Unix(),
		Frames:       r.Frames,
		Dropped:      r.Dropped,
		Skipped:      r.Skipped,
		Lost:         r.Lost,
		FrameRate:    r.FrameRate,
		StoppedEarly: r.StoppedEarly,
		Error:        r.Error,
	}
}

// CatalogServer answers /catalog?subject=NAME with every session of a
// subject, or /catalog?limit=N with the latest sessions.
type CatalogServer struct {
	Catalog SessionCatalog
}

func (s *CatalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		recs []*catalog.SessionRecord
		err  error
	)
	q := r.URL.Query()
	if subject := q.Get("subject"); subject != "" {
		recs, err = s.Catalog.ForSubject(subject)
	} else {
		limit := defaultCatalogLimit
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
		}
		recs, err = s.Catalog.Recent(limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := []*CatalogEntry{}
	for _, rec := range recs {
		items = append(items, toCatalogEntry(rec))
	}
	js, err := json.Marshal(items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
