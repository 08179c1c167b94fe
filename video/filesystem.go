package video

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	FileMetadata        = "metadata.json"
	FileDepth           = "depth.avi"
	FileIR              = "ir.avi"
	FileDepthTimestamps = "depth_ts.txt"

	SessionPrefix = "session_"

	// SessionTimeLayout defines the format of session directory names.
	// See https://golang.org/src/time/format.go.
	SessionTimeLayout = "20060102150405"
)

// SessionPaths are the files of one recording.
type SessionPaths struct {
	Dir             string
	Metadata        string
	Depth           string
	IR              string
	DepthTimestamps string
}

func newSessionPaths(dir string) *SessionPaths {
	return &SessionPaths{
		Dir:             dir,
		Metadata:        filepath.Join(dir, FileMetadata),
		Depth:           filepath.Join(dir, FileDepth),
		IR:              filepath.Join(dir, FileIR),
		DepthTimestamps: filepath.Join(dir, FileDepthTimestamps),
	}
}

// SessionRecord is an existing session found on disk.
type SessionRecord struct {
	Name  string
	Time  time.Time
	Paths *SessionPaths

	HaveMetadata   bool
	HaveDepth      bool
	HaveIR         bool
	HaveTimestamps bool

	// Size is the total size of the session's files in bytes.
	Size int64
}

// Filesystem is the base directory holding session directories.
type Filesystem struct {
	BasePath string
}

func NewFilesystem(path string) (*Filesystem, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &Filesystem{
		BasePath: path,
	}, nil
}

// NewSession creates the directory for a recording starting at t. Recordings
// are never appended to, so an already populated directory is an error.
func (f *Filesystem) NewSession(t time.Time) (*SessionPaths, error) {
	dir := filepath.Join(f.BasePath, SessionPrefix+t.Format(SessionTimeLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create session directory")
	}
	p := newSessionPaths(dir)
	if _, err := os.Stat(p.Metadata); err == nil {
		return nil, errors.Errorf("session directory %v is already in use", dir)
	}
	return p, nil
}

// Sessions lists recordings under BasePath, newest first.
func (f *Filesystem) Sessions() ([]*SessionRecord, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		return nil, err
	}

	var records []*SessionRecord
	for _, e := range entries {
		b := e.Name()
		if !e.IsDir() || !strings.HasPrefix(b, SessionPrefix) {
			continue
		}
		t, err := time.ParseInLocation(SessionTimeLayout, strings.TrimPrefix(b, SessionPrefix), time.Local)
		if err != nil {
			continue
		}
		r := &SessionRecord{
			Name:  b,
			Time:  t,
			Paths: newSessionPaths(filepath.Join(f.BasePath, b)),
		}
		for _, c := range []struct {
			path string
			have *bool
		}{
			{r.Paths.Metadata, &r.HaveMetadata},
			{r.Paths.Depth, &r.HaveDepth},
			{r.Paths.IR, &r.HaveIR},
			{r.Paths.DepthTimestamps, &r.HaveTimestamps},
		} {
			if st, err := os.Stat(c.path); err == nil {
				*c.have = true
				r.Size += st.Size()
			}
		}
		records = append(records, r)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Time.After(records[j].Time)
	})
	return records, nil
}
