// Package discovery runs the storage pipeline: enumerate, classify, mount
// read-only, verify, publish, report. Devices are processed strictly in
// enumeration order; a device's failure never aborts the run.
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"drivedock/internal/blockdev"
	"drivedock/internal/marker"
	"drivedock/internal/mountname"
	"drivedock/internal/mounter"
	"drivedock/internal/policy"
	"drivedock/internal/publish"
)

type Runner struct {
	Backend   blockdev.Backend
	Mounter   mounter.Mounter
	Publisher *publish.Publisher
	Markers   *marker.Store
	Progress  *Progress
	Log       zerolog.Logger

	// Fs covers mount-point directory management under MountBase.
	Fs        afero.Fs
	MountBase string

	CountTimeout time.Duration
	CountCap     int64

	now func() time.Time
}

// Run executes one full discovery pass. The returned error is non-nil only
// for environment-level failures (missing prerequisite, no enumeration
// backend); per-device failures are recorded in the report instead.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.now == nil {
		r.now = time.Now
	}
	if err := r.Markers.RequireNetworkReady(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := r.Log.With().Str("run_id", runID).Logger()
	report := newReport(runID, r.Backend.Name(), r.now())

	log.Info().Str("backend", r.Backend.Name()).Msg("storage discovery started")
	r.Progress.Banner(r.Backend.Name())

	devices, err := r.Backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		log.Info().Msg("no block devices found")
		r.Progress.NoDevices()
	}

	namer := mountname.New()
	for _, dev := range devices {
		r.processDevice(ctx, log, report, namer, dev)
	}

	r.publishSystem(log)

	report.FinishedAt = r.now()
	if err := r.Markers.WriteStorageReady(marker.Payload{
		RunID:      report.RunID,
		Mounted:    report.Mounted,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		TotalBytes: report.TotalBytes,
		FinishedAt: report.FinishedAt,
	}); err != nil {
		log.Warn().Err(err).Msg("write storage-ready marker")
		r.Progress.Warn("storage-ready marker not written: %v", err)
	}

	log.Info().
		Int("mounted", report.Mounted).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Uint64("total_bytes", report.TotalBytes).
		Msg("storage discovery finished")
	r.Progress.Summary(report)
	return report, nil
}

func (r *Runner) processDevice(ctx context.Context, log zerolog.Logger, report *Report, namer *mountname.Namer, dev blockdev.Device) {
	decision := policy.Classify(dev)
	if decision.Action == policy.ActionSkip {
		rec := Record{Device: dev, Outcome: OutcomeSkipped, SkipReason: decision.Reason, Detected: decision.Detected}
		report.add(rec)
		ev := log.Info().
			Str("device", dev.Path).
			Str("fstype", dev.FSType).
			Str("outcome", "skipped").
			Str("reason", string(decision.Reason))
		if decision.Detected != "" {
			ev = ev.Str("detected", decision.Detected)
		}
		ev.Msg("device skipped")
		r.Progress.Skip(dev, decision)
		return
	}

	name := namer.Name(dev)
	target := filepath.Join(r.MountBase, name)
	drv := mounter.DriverFor(dev.FSType)
	opts := drv.Options()

	rec := Record{Device: dev, Name: name, Mountpoint: target, Options: opts}

	if err := r.Fs.MkdirAll(target, 0o755); err != nil {
		r.recordFailure(log, report, rec, fmt.Sprintf("create mount point: %v", err))
		return
	}
	if err := r.Mounter.Mount(ctx, dev.Path, target, drv.FSType, opts); err != nil {
		r.cleanupMountpoint(log, target)
		r.recordFailure(log, report, rec, err.Error())
		return
	}
	// A zero exit code is not proof: confirm the target is a live mount.
	if _, err := mounter.Verify(r.Mounter, target); err != nil {
		r.cleanupMountpoint(log, target)
		r.recordFailure(log, report, rec, err.Error())
		return
	}

	if usage, err := r.Publisher.UsageOf(target); err != nil {
		log.Warn().Str("device", dev.Path).Err(err).Msg("usage stat unavailable")
	} else {
		rec.Usage = usage
		rec.UsageKnown = true
	}
	rec.Files, rec.Dirs = publish.CountEntries(ctx, target, r.CountTimeout, r.CountCap)

	rec.Outcome = OutcomeMounted
	if link, err := r.Publisher.LinkMount(name, target); err != nil {
		rec.Outcome = OutcomeMountedNoLink
		log.Warn().Str("device", dev.Path).Err(err).Msg("publish link failed; mount kept")
		r.Progress.Warn("%s mounted but not published: %v", dev.Path, err)
	} else {
		rec.LinkPath = link
	}

	report.add(rec)
	log.Info().
		Str("device", dev.Path).
		Str("fstype", dev.FSType).
		Str("outcome", string(rec.Outcome)).
		Str("mountpoint", target).
		Str("link", rec.LinkPath).
		Uint64("total", rec.Usage.Total).
		Int64("files", rec.Files).
		Msg("device mounted")
	r.Progress.Mounted(rec)
}

func (r *Runner) recordFailure(log zerolog.Logger, report *Report, rec Record, diag string) {
	rec.Outcome = OutcomeFailed
	rec.Diagnostic = diag
	report.add(rec)
	log.Error().
		Str("device", rec.Device.Path).
		Str("fstype", rec.Device.FSType).
		Str("outcome", "failed").
		Str("diagnostic", diag).
		Msg("device mount failed")
	r.Progress.Failed(rec)
}

// cleanupMountpoint removes the now-empty directory left by a failed mount
// attempt, best effort. Remove (not RemoveAll) so a directory that somehow
// has content is left alone.
func (r *Runner) cleanupMountpoint(log zerolog.Logger, target string) {
	if err := r.Fs.Remove(target); err != nil {
		log.Warn().Str("path", target).Err(err).Msg("mount point cleanup failed")
	}
}

func (r *Runner) publishSystem(log zerolog.Logger) {
	published, errs := r.Publisher.PublishSystemPaths()
	for _, err := range errs {
		log.Warn().Err(err).Msg("system path publish failed")
		r.Progress.Warn("%v", err)
	}
	log.Info().Int("published", published).Msg("system paths published")
}
