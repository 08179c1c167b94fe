// Package catalog records finished sessions in a MySQL database.
package catalog

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"depthcam/notify"
)

// SessionRecord is one finished recording.
type SessionRecord struct {
	gorm.Model

	Dir         string `gorm:"uniqueIndex;size:512"`
	SubjectName string `gorm:"index;size:255"`
	SessionName string `gorm:"size:255"`

	StartedAt   time.Time
	EndedAt     time.Time
	DurationSec float64

	Frames       int
	Dropped      int
	Skipped      int
	Lost         int
	FrameRate    float64
	SaveIR       bool
	StoppedEarly bool
	Error        string `gorm:"size:1024"`
}

// Catalog is a notify.Listener that persists session results.
type Catalog struct {
	db *gorm.DB
}

// Open connects to the MySQL database named by dsn.
func Open(dsn string) (*Catalog, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open catalog database")
	}
	return New(db)
}

// New uses an existing connection, migrating the schema.
func New(db *gorm.DB) (*Catalog, error) {
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate catalog")
	}
	return &Catalog{db: db}, nil
}

func NewRecord(r notify.Result) *SessionRecord {
	return &SessionRecord{
		Dir:          r.Dir,
		SubjectName:  r.SubjectName,
		SessionName:  r.SessionName,
		StartedAt:    r.Start,
		EndedAt:      r.End,
		DurationSec:  r.End.Sub(r.Start).Seconds(),
		Frames:       r.Frames,
		Dropped:      r.Dropped,
		Skipped:      r.Skipped,
		Lost:         r.Lost,
		FrameRate:    r.FrameRate,
		SaveIR:       r.SaveIR,
		StoppedEarly: r.StoppedEarly,
		Error:        r.Err,
	}
}

func (c *Catalog) SessionStarted(s notify.SessionInfo) {}

func (c *Catalog) Progress(s notify.Status) {}

func (c *Catalog) SessionFinished(r notify.Result) error {
	rec := NewRecord(r)
	if err := c.db.Create(rec).Error; err != nil {
		return errors.Wrapf(err, "failed to catalog session %v", r.Dir)
	}
	log.Infof("Cataloged session %v (%d frames)", r.Dir, r.Frames)
	return nil
}

// Recent returns the latest sessions, newest first.
func (c *Catalog) Recent(limit int) ([]*SessionRecord, error) {
	var recs []*SessionRecord
	if err := c.db.Order("started_at desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ForSubject returns every session of a subject, oldest first.
func (c *Catalog) ForSubject(subject string) ([]*SessionRecord, error) {
	var recs []*SessionRecord
	if err := c.db.Where("subject_name = ?", subject).Order("started_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
