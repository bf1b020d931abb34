package blockdev

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drivedock/pkg/shell"
)

// Raw JSON representation from lsblk --bytes --json.
type rawTree struct {
	Blockdevices []rawDevice `json:"blockdevices"`
}

type rawDevice struct {
	Name       string      `json:"name"`
	KName      string      `json:"kname"`
	Path       string      `json:"path"`
	Size       any         `json:"size"` // number (bytes) with --bytes, string on older lsblk
	Type       string      `json:"type"`
	FSType     string      `json:"fstype,omitempty"`
	Label      string      `json:"label,omitempty"`
	UUID       string      `json:"uuid,omitempty"`
	Mountpoint *string     `json:"mountpoint,omitempty"`
	Children   []rawDevice `json:"children,omitempty"`
}

// LsblkBackend enumerates via lsblk's JSON output, the preferred source since
// it reports size, filesystem signature and mount state in one call.
type LsblkBackend struct {
	// Run is the exec seam; nil means shell.Run.
	Run shell.Runner
}

func (b *LsblkBackend) Name() string { return "lsblk" }

func (b *LsblkBackend) List(ctx context.Context) ([]Device, error) {
	run := b.Run
	if run == nil {
		run = shell.Run
	}
	args := []string{"--bytes", "--json", "-o", "NAME,KNAME,PATH,SIZE,TYPE,FSTYPE,LABEL,UUID,MOUNTPOINT"}
	res, err := run(ctx, 5*time.Second, "lsblk", args...)
	if err != nil {
		return nil, fmt.Errorf("lsblk: %w", err)
	}
	var tree rawTree
	if err := json.Unmarshal(res.Stdout, &tree); err != nil {
		return nil, fmt.Errorf("lsblk json: %w", err)
	}
	return flatten(tree), nil
}

func flatten(t rawTree) []Device {
	out := []Device{}
	var walk func(rawDevice)
	walk = func(n rawDevice) {
		if admissible(n.Type) {
			d := Device{
				Name:       firstNonEmpty(n.KName, n.Name),
				Path:       n.Path,
				SizeBytes:  normalizeSize(n.Size),
				Type:       n.Type,
				FSType:     n.FSType,
				Label:      n.Label,
				UUID:       n.UUID,
				Mountpoint: n.Mountpoint,
			}
			normalize(&d)
			out = append(out, d)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, bd := range t.Blockdevices {
		walk(bd)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeSize(v any) uint64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case string:
		var n uint64
		_, _ = fmt.Sscanf(t, "%d", &n)
		return n
	case json.Number:
		n, _ := t.Int64()
		if n < 0 {
			return 0
		}
		return uint64(n)
	default:
		return 0
	}
}
