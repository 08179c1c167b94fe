package video

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Progress prints a single, continuously rewritten status line.
type Progress struct {
	Out   io.Writer
	Start time.Time
	Total time.Duration

	rate *color.Color
}

func NewProgress(out io.Writer, start time.Time, total time.Duration) *Progress {
	if out == nil {
		out = color.Output
	}
	return &Progress{
		Out:   out,
		Start: start,
		Total: total,
		rate:  color.New(color.FgGreen, color.Bold),
	}
}

func (p *Progress) Report(now time.Time, fps float64) {
	fmt.Fprintf(p.Out, "\rRecorded %d out of %d seconds - Current Frame rate %s",
		int(now.Sub(p.Start).Seconds()), int(p.Total.Seconds()),
		p.rate.Sprintf("%.2f fps", fps))
}

// Finish ends the status line with the session average.
func (p *Progress) Finish(fps float64) {
	fmt.Fprintf(p.Out, "\n - Session Average Frame rate = %s\n", p.rate.Sprintf("%.2f fps", fps))
}
