package blockdev

import "strings"

// Placeholder substituted when a device carries no label or UUID.
const Unknown = "unknown"

// Role classifies what a device is currently doing for the host.
type Role string

const (
	RoleData   Role = "data"
	RoleSystem Role = "system"
	RoleBoot   Role = "boot"
	RoleSwap   Role = "swap"
)

// Device is the normalized block device produced by every backend.
type Device struct {
	Name       string  // kernel name, e.g. sdb1
	Path       string  // /dev/sdb1
	SizeBytes  uint64
	Type       string  // disk, part, rom
	FSType     string  // empty when no filesystem signature was detected
	Label      string  // Unknown when absent
	UUID       string  // Unknown when absent
	Mountpoint *string // nil when not mounted
}

// Role derives the device's current role from its mount point and
// filesystem signature.
func (d Device) Role() Role {
	if d.Mountpoint != nil {
		if *d.Mountpoint == "/" {
			return RoleSystem
		}
		if strings.HasPrefix(*d.Mountpoint, "/boot") {
			return RoleBoot
		}
	}
	if strings.EqualFold(d.FSType, "swap") {
		return RoleSwap
	}
	return RoleData
}

// Mounted reports whether the device is currently mounted anywhere.
func (d Device) Mounted() bool {
	return d.Mountpoint != nil && *d.Mountpoint != ""
}

func normalize(d *Device) {
	if strings.TrimSpace(d.Label) == "" {
		d.Label = Unknown
	}
	if strings.TrimSpace(d.UUID) == "" {
		d.UUID = Unknown
	}
	if d.Name == "" && d.Path != "" {
		if i := strings.LastIndex(d.Path, "/"); i >= 0 {
			d.Name = d.Path[i+1:]
		}
	}
	if d.Path == "" && d.Name != "" {
		d.Path = "/dev/" + d.Name
	}
}

// keep only real disks, partitions and optical media; loop devices and
// device-mapper snapshots never enter the pipeline.
func admissible(devType string) bool {
	switch devType {
	case "disk", "part", "rom":
		return true
	}
	return false
}
