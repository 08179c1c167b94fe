package video

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"depthcam/video/source"
)

// MetadataTimeLayout is ISO-8601 without a zone, as written by earlier
// acquisition tools.
const MetadataTimeLayout = "2006-01-02T15:04:05"

// Metadata is the fixed schema of metadata.json.
type Metadata struct {
	SubjectName     string
	SessionName     string
	DepthResolution [2]int
	IsLittleEndian  bool
	ColorResolution [2]int
	StartTime       string
}

func NewMetadata(p Params, depth, ir source.Profile, start time.Time) *Metadata {
	return &Metadata{
		SubjectName:     p.SubjectName,
		SessionName:     p.SessionName,
		DepthResolution: [2]int{depth.Width, depth.Height},
		// Frames are piped as gray16le.
		IsLittleEndian:  true,
		ColorResolution: [2]int{ir.Width, ir.Height},
		StartTime:       start.Format(MetadataTimeLayout),
	}
}

// WriteMetadata writes m to path. It refuses to overwrite.
func WriteMetadata(path string, m *Metadata) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create metadata")
	}
	if err := json.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write metadata")
	}
	return f.Close()
}
