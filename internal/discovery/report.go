package discovery

import (
	"time"

	"drivedock/internal/blockdev"
	"drivedock/internal/policy"
	"drivedock/internal/publish"
)

// Outcome is the terminal state a device reaches within one run.
type Outcome string

const (
	OutcomeMounted       Outcome = "mounted"
	OutcomeMountedNoLink Outcome = "mounted_no_link"
	OutcomeFailed        Outcome = "failed"
	OutcomeSkipped       Outcome = "skipped"
)

// Record is the per-device result: either a skip (with reason), a verified
// mount (with usage and publish link), or a failure (with diagnostics).
type Record struct {
	Device     blockdev.Device
	Outcome    Outcome
	SkipReason policy.SkipReason
	Detected   string

	Name       string // mount/publish name, empty for skips
	Mountpoint string
	LinkPath   string
	Options    []string
	Usage      publish.Usage
	UsageKnown bool // false when statfs failed; Usage is then meaningless
	Files      int64
	Dirs       int64
	Diagnostic string // captured mount output on failure
}

// Report accumulates every decision of one discovery run; all run state is
// carried here, never in globals.
type Report struct {
	RunID      string
	Backend    string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []Record

	Mounted       int
	Failed        int
	Skipped       int
	SkipsByReason map[policy.SkipReason]int
	TotalBytes    uint64
}

func newReport(runID, backend string, now time.Time) *Report {
	return &Report{
		RunID:         runID,
		Backend:       backend,
		StartedAt:     now,
		SkipsByReason: map[policy.SkipReason]int{},
	}
}

func (r *Report) add(rec Record) {
	r.Records = append(r.Records, rec)
	switch rec.Outcome {
	case OutcomeMounted, OutcomeMountedNoLink:
		r.Mounted++
		r.TotalBytes += rec.Device.SizeBytes
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
		r.SkipsByReason[rec.SkipReason]++
	}
}

// Elapsed is the wall-clock duration of the run.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
