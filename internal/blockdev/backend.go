package blockdev

import (
	"context"
	"errors"
	"fmt"

	"drivedock/internal/config"
	"drivedock/pkg/shell"
)

// ErrNoBackend means no enumeration tool is usable on this host. This is an
// environment-level failure; the run cannot proceed.
var ErrNoBackend = errors.New("no block device enumeration backend available")

// Backend lists candidate block devices. The pipeline is backend-agnostic;
// lsblk, blkid and a static table are selectable at runtime.
type Backend interface {
	Name() string
	List(ctx context.Context) ([]Device, error)
}

// MountpointFn resolves the current mount point of a device path, empty when
// unmounted. Backends that cannot see mount state themselves (blkid, static)
// use it to fill in Device.Mountpoint.
type MountpointFn func(devPath string) string

// Select picks the enumeration backend named in cfg. "auto" prefers lsblk,
// falls back to blkid, and fails with ErrNoBackend when neither tool exists.
func Select(cfg config.Config, lookup MountpointFn) (Backend, error) {
	switch cfg.Backend {
	case "lsblk":
		return &LsblkBackend{}, nil
	case "blkid":
		return &BlkidBackend{Lookup: lookup}, nil
	case "static":
		return &StaticBackend{Devices: cfg.StaticDevices, Lookup: lookup}, nil
	case "auto":
		if shell.Available("lsblk") {
			return &LsblkBackend{}, nil
		}
		if shell.Available("blkid") {
			return &BlkidBackend{Lookup: lookup}, nil
		}
		return nil, ErrNoBackend
	default:
		return nil, fmt.Errorf("unknown enumeration backend %q", cfg.Backend)
	}
}
