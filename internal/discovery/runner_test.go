package discovery

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivedock/internal/blockdev"
	"drivedock/internal/marker"
	"drivedock/internal/mounter"
	"drivedock/internal/policy"
	"drivedock/internal/publish"
)

// fakeBackend reports a fixed device set, with mount state re-derived from
// the fake mount table on every call, the way lsblk would see it live.
type fakeBackend struct {
	devices []blockdev.Device
	table   *mounter.Fake
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) List(_ context.Context) ([]blockdev.Device, error) {
	entries, err := b.table.Mounts()
	if err != nil {
		return nil, err
	}
	out := make([]blockdev.Device, len(b.devices))
	copy(out, b.devices)
	for i := range out {
		if out[i].Mountpoint != nil {
			continue
		}
		if mp := mounter.MountpointOf(entries, out[i].Path); mp != "" {
			out[i].Mountpoint = &mp
		}
	}
	return out, nil
}

type testEnv struct {
	runner  *Runner
	fake    *mounter.Fake
	markers *marker.Store
	mount   string
	served  string
}

func newEnv(t *testing.T, devices []blockdev.Device, fake *mounter.Fake) *testEnv {
	t.Helper()
	mountBase := filepath.Join(t.TempDir(), "mnt")
	servedRoot := filepath.Join(t.TempDir(), "srv")

	markers := &marker.Store{Fs: afero.NewMemMapFs(), Dir: "/run/drivedock"}
	require.NoError(t, afero.WriteFile(markers.Fs, filepath.Join(markers.Dir, marker.NetworkReady), nil, 0o644))

	return &testEnv{
		runner: &Runner{
			Backend:      &fakeBackend{devices: devices, table: fake},
			Mounter:      fake,
			Publisher:    publish.New(servedRoot),
			Markers:      markers,
			Progress:     NewProgress(nil),
			Log:          zerolog.Nop(),
			Fs:           afero.NewOsFs(),
			MountBase:    mountBase,
			CountTimeout: time.Second,
			CountCap:     1000,
		},
		fake:    fake,
		markers: markers,
		mount:   mountBase,
		served:  servedRoot,
	}
}

func strPtr(s string) *string { return &s }

func TestRunScenarioA(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sda1", Path: "/dev/sda1", FSType: "ntfs", Label: "WIN", UUID: "AAAA", SizeBytes: 500e9},
		{Name: "sda2", Path: "/dev/sda2", FSType: "ext4", Label: "unknown", Mountpoint: strPtr("/")},
	}
	env := newEnv(t, devices, mounter.NewFake())

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Mounted)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.SkipsByReason[policy.SkipSystem])

	// the mount is live, read-only and non-executable
	entry, err := mounter.Verify(env.fake, filepath.Join(env.mount, "sda1_ntfs_win"))
	require.NoError(t, err)
	assert.True(t, entry.HasOption("ro"))
	assert.True(t, entry.HasOption("noexec"))
	assert.Equal(t, "ntfs-3g", entry.FSType)

	// the served tree exposes drives/sda1_ntfs_win
	link := filepath.Join(env.served, publish.DrivesDir, "sda1_ntfs_win")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.mount, "sda1_ntfs_win"), target)

	// completion marker carries the counts
	payload, err := env.markers.ReadStorageReady()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, payload.RunID)
	assert.Equal(t, 1, payload.Mounted)
	assert.Equal(t, 1, payload.Skipped)
}

func TestRunScenarioBNoFilesystem(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sdc", Path: "/dev/sdc", Label: "unknown", UUID: "unknown"},
	}
	env := newEnv(t, devices, mounter.NewFake())

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Mounted)
	assert.Equal(t, 1, report.SkipsByReason[policy.SkipNoFilesystem])

	// nothing under drives/ for a device without a filesystem
	entries, _ := os.ReadDir(filepath.Join(env.served, publish.DrivesDir))
	assert.Empty(t, entries)
}

func TestRunMountFailureCleansUp(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sdb1", Path: "/dev/sdb1", FSType: "ext4", Label: "BACKUP"},
	}
	fake := mounter.NewFake()
	fake.FailDevices["/dev/sdb1"] = "wrong fs type, bad option, bad superblock"
	env := newEnv(t, devices, fake)

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Records, 1)
	rec := report.Records[0]
	assert.Equal(t, OutcomeFailed, rec.Outcome)
	assert.Contains(t, rec.Diagnostic, "bad superblock")

	// no empty directory survives the failed attempt
	_, err = os.Stat(filepath.Join(env.mount, "sdb1_ext4_backup"))
	assert.True(t, os.IsNotExist(err))

	// and nothing was published
	_, err = os.Lstat(filepath.Join(env.served, publish.DrivesDir, "sdb1_ext4_backup"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSilentNoopFailsVerification(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sdd1", Path: "/dev/sdd1", FSType: "vfat", Label: "CARD"},
	}
	fake := mounter.NewFake()
	fake.SilentNoop["/dev/sdd1"] = true
	env := newEnv(t, devices, fake)

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	// exit code zero is not believed: the device counts as failed
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Records[0].Diagnostic, "not an active mount point")
	_, err = os.Stat(filepath.Join(env.mount, "sdd1_vfat_card"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunIdempotent(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sda1", Path: "/dev/sda1", FSType: "ntfs", Label: "WIN"},
		{Name: "sda2", Path: "/dev/sda2", FSType: "ext4", Label: "unknown", Mountpoint: strPtr("/")},
		{Name: "sda3", Path: "/dev/sda3", FSType: "swap"},
	}
	fake := mounter.NewFake()
	env := newEnv(t, devices, fake)

	first, err := env.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Mounted)

	second, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	// nothing newly mounted; the first run's mount now classifies as
	// already_mounted, everything else identically to the first run
	assert.Equal(t, 0, second.Mounted)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, 1, second.SkipsByReason[policy.SkipMounted])
	assert.Equal(t, first.SkipsByReason[policy.SkipSystem], second.SkipsByReason[policy.SkipSystem])
	assert.Equal(t, first.SkipsByReason[policy.SkipSwap], second.SkipsByReason[policy.SkipSwap])
}

func TestRunPublishFailureKeepsMount(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sdb1", Path: "/dev/sdb1", FSType: "ext4", Label: "DATA"},
	}
	env := newEnv(t, devices, mounter.NewFake())

	// occupy the drives path with a regular file so link creation fails
	require.NoError(t, os.MkdirAll(env.served, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.served, publish.DrivesDir), nil, 0o644))

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Mounted)
	require.Len(t, report.Records, 1)
	assert.Equal(t, OutcomeMountedNoLink, report.Records[0].Outcome)

	// the mount itself is still live
	_, err = mounter.Verify(env.fake, filepath.Join(env.mount, "sdb1_ext4_data"))
	assert.NoError(t, err)
}

func TestRunUsageUnavailable(t *testing.T) {
	devices := []blockdev.Device{
		{Name: "sde1", Path: "/dev/sde1", FSType: "ext4", Label: "COLD"},
	}
	env := newEnv(t, devices, mounter.NewFake())

	// mount-point directories exist only in memory, so statfs against the
	// real path fails the way it would on a wedged mount
	env.runner.Fs = afero.NewMemMapFs()
	var out bytes.Buffer
	env.runner.Progress = NewProgress(&out)

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	rec := report.Records[0]
	assert.Equal(t, OutcomeMounted, rec.Outcome)
	assert.False(t, rec.UsageKnown)
	assert.Equal(t, publish.Usage{}, rec.Usage)

	// the operator sees "unknown", never a zero masquerading as empty
	assert.Contains(t, out.String(), "unknown used")
}

func TestRunPrerequisiteMissing(t *testing.T) {
	env := newEnv(t, nil, mounter.NewFake())
	require.NoError(t, env.markers.Fs.Remove(filepath.Join(env.markers.Dir, marker.NetworkReady)))

	_, err := env.runner.Run(context.Background())
	assert.ErrorIs(t, err, marker.ErrPrerequisite)

	// aborted before any marker was produced
	_, err = env.markers.ReadStorageReady()
	assert.Error(t, err)
}

func TestRunNoDevices(t *testing.T) {
	env := newEnv(t, nil, mounter.NewFake())

	report, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	// zero devices is a valid outcome, the marker is still written
	assert.Equal(t, 0, report.Mounted+report.Failed+report.Skipped)
	payload, err := env.markers.ReadStorageReady()
	require.NoError(t, err)
	assert.Equal(t, 0, payload.Mounted)
}

func TestReportAccumulation(t *testing.T) {
	r := newReport("run-1", "fake", time.Now())
	r.add(Record{Device: blockdev.Device{SizeBytes: 100}, Outcome: OutcomeMounted})
	r.add(Record{Device: blockdev.Device{SizeBytes: 50}, Outcome: OutcomeMountedNoLink})
	r.add(Record{Outcome: OutcomeFailed})
	r.add(Record{Outcome: OutcomeSkipped, SkipReason: policy.SkipSwap})
	r.add(Record{Outcome: OutcomeSkipped, SkipReason: policy.SkipSwap})

	assert.Equal(t, 2, r.Mounted)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 2, r.Skipped)
	assert.Equal(t, uint64(150), r.TotalBytes)
	assert.Equal(t, 2, r.SkipsByReason[policy.SkipSwap])
}
