package blockdev

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"drivedock/pkg/shell"
)

// BlkidBackend enumerates via `blkid -o export`. blkid only reports devices
// carrying a filesystem signature and knows nothing about mount state or
// size, so mount points come from Lookup and sizes from sysfs.
type BlkidBackend struct {
	Lookup MountpointFn
	Run    shell.Runner
	// SysfsRoot overrides /sys for tests.
	SysfsRoot string
}

func (b *BlkidBackend) Name() string { return "blkid" }

func (b *BlkidBackend) List(ctx context.Context) ([]Device, error) {
	run := b.Run
	if run == nil {
		run = shell.Run
	}
	res, err := run(ctx, 5*time.Second, "blkid", "-o", "export")
	if err != nil {
		// blkid exits 2 when nothing matched; that is an empty result,
		// not a failure.
		if res.Code == 2 {
			return []Device{}, nil
		}
		return nil, fmt.Errorf("blkid: %w", err)
	}

	out := []Device{}
	for _, stanza := range strings.Split(string(res.Stdout), "\n\n") {
		d, ok := b.parseStanza(stanza)
		if !ok {
			continue
		}
		if mp := b.lookupMount(d.Path); mp != "" {
			d.Mountpoint = &mp
		}
		normalize(&d)
		out = append(out, d)
	}
	return out, nil
}

func (b *BlkidBackend) parseStanza(stanza string) (Device, bool) {
	var d Device
	for _, line := range strings.Split(stanza, "\n") {
		key, val, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "DEVNAME":
			d.Path = val
		case "TYPE":
			d.FSType = val
		case "LABEL":
			d.Label = val
		case "UUID":
			d.UUID = val
		}
	}
	if d.Path == "" {
		return Device{}, false
	}
	name := filepath.Base(d.Path)
	if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "dm-") ||
		strings.Contains(d.Path, "/mapper/") {
		return Device{}, false
	}
	d.Name = name
	d.Type = b.devType(name)
	d.SizeBytes = b.sysfsSize(name)
	return d, true
}

var nvmeStyle = regexp.MustCompile(`^(nvme|mmcblk)`)
var nvmeStylePart = regexp.MustCompile(`p[0-9]+$`)

// devType distinguishes whole disks from partitions. blkid reports both
// wherever a filesystem signature sits, so the type cannot be assumed.
// sysfs is authoritative: a partition's block directory carries a
// "partition" file. Without sysfs, fall back to the naming convention
// (sdb1 vs sdb; nvme0n1p2 vs nvme0n1).
func (b *BlkidBackend) devType(name string) string {
	dir := filepath.Join(b.sysfsRoot(), "class", "block", name)
	if _, err := os.Stat(filepath.Join(dir, "partition")); err == nil {
		return "part"
	}
	if _, err := os.Stat(dir); err == nil {
		return "disk"
	}
	if nvmeStyle.MatchString(name) {
		if nvmeStylePart.MatchString(name) {
			return "part"
		}
		return "disk"
	}
	if n := len(name); n > 0 && name[n-1] >= '0' && name[n-1] <= '9' {
		return "part"
	}
	return "disk"
}

func (b *BlkidBackend) lookupMount(path string) string {
	if b.Lookup == nil {
		return ""
	}
	return b.Lookup(path)
}

func (b *BlkidBackend) sysfsRoot() string {
	if b.SysfsRoot != "" {
		return b.SysfsRoot
	}
	return "/sys"
}

// sysfsSize reads the 512-byte sector count exported by the kernel.
func (b *BlkidBackend) sysfsSize(name string) uint64 {
	raw, err := os.ReadFile(filepath.Join(b.sysfsRoot(), "class", "block", name, "size"))
	if err != nil {
		return 0
	}
	sectors, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0
	}
	return sectors * 512
}
