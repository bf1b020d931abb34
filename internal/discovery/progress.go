package discovery

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"drivedock/internal/blockdev"
	"drivedock/internal/policy"
	"drivedock/pkg/human"
)

// Progress renders the colored per-device lines the operator watches during
// a run. A nil-writer Progress is silent, which is what tests use.
type Progress struct {
	w io.Writer
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

func (p *Progress) printf(c *color.Color, format string, args ...any) {
	if p.w == nil {
		return
	}
	_, _ = c.Fprintf(p.w, format+"\n", args...)
}

func (p *Progress) Banner(backend string) {
	p.printf(color.New(color.FgBlue), "Storage discovery (backend: %s)", backend)
}

func (p *Progress) NoDevices() {
	p.printf(color.New(color.FgYellow), "  no block devices found")
}

func (p *Progress) Skip(dev blockdev.Device, d policy.Decision) {
	if d.Detected != "" {
		p.printf(color.New(color.FgYellow), "  - %s skipped (%s: %s)", dev.Path, d.Reason, d.Detected)
		return
	}
	p.printf(color.New(color.FgYellow), "  - %s skipped (%s)", dev.Path, d.Reason)
}

func (p *Progress) Mounted(rec Record) {
	used := "unknown"
	if rec.UsageKnown {
		used = human.Bytes(rec.Usage.Used)
	}
	p.printf(color.New(color.FgGreen), "  + %s mounted at %s (%s, %s used, %s files)",
		rec.Device.Path, rec.Mountpoint, rec.Device.FSType,
		used, human.Count(rec.Files))
}

func (p *Progress) Failed(rec Record) {
	p.printf(color.New(color.FgRed), "  x %s failed: %s", rec.Device.Path, rec.Diagnostic)
}

func (p *Progress) Warn(format string, args ...any) {
	p.printf(color.New(color.FgYellow), "  ! "+format, args...)
}

func (p *Progress) Summary(r *Report) {
	if p.w == nil {
		return
	}
	fmt.Fprintf(p.w, "\n")
	p.printf(color.New(color.FgBlue, color.Bold), "Discovery complete: mounted=%d failed=%d skipped=%d total=%s elapsed=%s",
		r.Mounted, r.Failed, r.Skipped, human.Bytes(r.TotalBytes), r.Elapsed().Round(time.Millisecond))
}
