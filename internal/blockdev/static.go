package blockdev

import (
	"context"

	"drivedock/internal/config"
)

// StaticBackend serves a hand-maintained device table from the config file.
// It exists for bring-up on hosts where neither lsblk nor blkid behaves, and
// for exercising the pipeline against known hardware.
type StaticBackend struct {
	Devices []config.StaticDevice
	Lookup  MountpointFn
}

func (b *StaticBackend) Name() string { return "static" }

func (b *StaticBackend) List(_ context.Context) ([]Device, error) {
	out := make([]Device, 0, len(b.Devices))
	for _, s := range b.Devices {
		d := Device{
			Path:      s.Path,
			SizeBytes: s.Size,
			Type:      "part",
			FSType:    s.FSType,
			Label:     s.Label,
			UUID:      s.UUID,
		}
		if b.Lookup != nil {
			if mp := b.Lookup(s.Path); mp != "" {
				d.Mountpoint = &mp
			}
		}
		normalize(&d)
		out = append(out, d)
	}
	return out, nil
}
