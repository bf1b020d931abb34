// Package status re-derives current storage state from the live OS: the
// kernel mount table and the served tree. It depends on no state from any
// prior discovery run.
package status

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"drivedock/internal/marker"
	"drivedock/internal/mounter"
	"drivedock/internal/publish"
)

// Mount is one live mount under the mount base.
type Mount struct {
	Device   string   `json:"device"`
	Target   string   `json:"target"`
	FSType   string   `json:"fstype"`
	Options  []string `json:"options"`
	ReadOnly bool     `json:"read_only"`
}

// Link is one published entry in the served tree.
type Link struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Broken bool   `json:"broken"`
}

// Snapshot is everything the query tool reports.
type Snapshot struct {
	Mounts     []Mount              `json:"mounts"`
	Drives     []Link               `json:"drives"`
	System     []Link               `json:"system"`
	Partitions []disk.PartitionStat `json:"partitions,omitempty"`
	LastRun    *marker.Payload      `json:"last_run,omitempty"`
}

type Querier struct {
	Mounter    mounter.Mounter
	Markers    *marker.Store
	MountBase  string
	ServedRoot string

	// partitionsFn is the gopsutil seam; nil means disk.Partitions.
	partitionsFn func(all bool) ([]disk.PartitionStat, error)
}

func NewQuerier(m mounter.Mounter, markers *marker.Store, mountBase, servedRoot string) *Querier {
	return &Querier{
		Mounter:      m,
		Markers:      markers,
		MountBase:    mountBase,
		ServedRoot:   servedRoot,
		partitionsFn: disk.Partitions,
	}
}

func (q *Querier) Snapshot() (Snapshot, error) {
	var snap Snapshot

	entries, err := q.Mounter.Mounts()
	if err != nil {
		return snap, err
	}
	prefix := strings.TrimSuffix(q.MountBase, "/") + "/"
	for _, e := range entries {
		if !strings.HasPrefix(e.Target, prefix) {
			continue
		}
		snap.Mounts = append(snap.Mounts, Mount{
			Device:   e.Device,
			Target:   e.Target,
			FSType:   e.FSType,
			Options:  e.Options,
			ReadOnly: e.HasOption("ro"),
		})
	}

	snap.Drives = readLinks(filepath.Join(q.ServedRoot, publish.DrivesDir))
	snap.System = readLinks(filepath.Join(q.ServedRoot, publish.SystemDir))

	if q.partitionsFn != nil {
		if parts, err := q.partitionsFn(false); err == nil {
			snap.Partitions = parts
		}
	}
	if q.Markers != nil {
		if p, err := q.Markers.ReadStorageReady(); err == nil {
			snap.LastRun = &p
		}
	}
	return snap, nil
}

func readLinks(dir string) []Link {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []Link
	for _, e := range entries {
		if e.Type()&os.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(dir, e.Name())
		l := Link{Name: e.Name()}
		if target, err := os.Readlink(path); err == nil {
			l.Target = target
			if _, err := os.Stat(path); err != nil {
				l.Broken = true
			}
		}
		out = append(out, l)
	}
	return out
}
