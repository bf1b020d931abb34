package blockdev

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivedock/pkg/shell"
)

const blkidFixture = `DEVNAME=/dev/sda1
UUID=A1B2-C3D4
TYPE=vfat
LABEL=EFI

DEVNAME=/dev/sdb1
UUID=9E8D7C6B5A493827
TYPE=ntfs
LABEL=DATA

DEVNAME=/dev/loop0
TYPE=squashfs

DEVNAME=/dev/mapper/vg0-snap
TYPE=ext4
`

func TestBlkidList(t *testing.T) {
	sysfs := t.TempDir()
	blockDir := filepath.Join(sysfs, "class", "block", "sdb1")
	require.NoError(t, os.MkdirAll(blockDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blockDir, "size"), []byte("1024\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(blockDir, "partition"), []byte("1\n"), 0o644))

	mounts := map[string]string{"/dev/sda1": "/boot/efi"}
	b := &BlkidBackend{
		Run:       fixedRunner(blkidFixture),
		SysfsRoot: sysfs,
		Lookup:    func(dev string) string { return mounts[dev] },
	}

	devices, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2) // loop and mapper devices filtered out

	sda1 := devices[0]
	assert.Equal(t, "sda1", sda1.Name)
	assert.Equal(t, "part", sda1.Type)
	assert.Equal(t, "vfat", sda1.FSType)
	require.NotNil(t, sda1.Mountpoint)
	assert.Equal(t, "/boot/efi", *sda1.Mountpoint)

	sdb1 := devices[1]
	assert.Equal(t, "part", sdb1.Type)
	assert.Equal(t, "DATA", sdb1.Label)
	assert.Equal(t, uint64(1024*512), sdb1.SizeBytes)
	assert.False(t, sdb1.Mounted())
}

func TestBlkidDevType(t *testing.T) {
	sysfs := t.TempDir()
	mkdev := func(name string, partition bool) {
		dir := filepath.Join(sysfs, "class", "block", name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		if partition {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "partition"), []byte("1\n"), 0o644))
		}
	}
	// a whole disk carrying a filesystem directly, no partition table
	mkdev("sdb", false)
	mkdev("sdb1", true)

	b := &BlkidBackend{SysfsRoot: sysfs}

	// sysfs is authoritative when present
	assert.Equal(t, "disk", b.devType("sdb"))
	assert.Equal(t, "part", b.devType("sdb1"))

	// naming convention fallback for devices sysfs does not know
	assert.Equal(t, "part", b.devType("sdc1"))
	assert.Equal(t, "disk", b.devType("sdc"))
	assert.Equal(t, "disk", b.devType("nvme0n1"))
	assert.Equal(t, "part", b.devType("nvme0n1p2"))
	assert.Equal(t, "disk", b.devType("mmcblk0"))
	assert.Equal(t, "part", b.devType("mmcblk0p1"))
}

func TestBlkidNothingFound(t *testing.T) {
	// blkid exits 2 when no filesystems matched
	b := &BlkidBackend{Run: func(_ context.Context, _ time.Duration, _ string, _ ...string) (shell.Result, error) {
		return shell.Result{Code: 2}, errors.New("exit status 2")
	}}
	devices, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}
