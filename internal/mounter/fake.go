package mounter

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory mount table for tests. Mount failures can be injected
// per device path.
type Fake struct {
	mu      sync.Mutex
	entries []MountEntry
	// FailDevices maps device path to the diagnostic the mount should fail with.
	FailDevices map[string]string
	// SilentNoop lists device paths whose Mount call succeeds without
	// actually adding a table entry, to exercise verification.
	SilentNoop map[string]bool
}

func NewFake(seed ...MountEntry) *Fake {
	return &Fake{
		entries:     append([]MountEntry{}, seed...),
		FailDevices: map[string]string{},
		SilentNoop:  map[string]bool{},
	}
}

func (f *Fake) Mounts() ([]MountEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MountEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *Fake) Mount(_ context.Context, device, target, fstype string, options []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if diag, ok := f.FailDevices[device]; ok {
		return fmt.Errorf("mount %s: %s", device, diag)
	}
	if f.SilentNoop[device] {
		return nil
	}
	f.entries = append(f.entries, MountEntry{
		Device:  device,
		Target:  target,
		FSType:  fstype,
		Options: append([]string{}, options...),
	})
	return nil
}

func (f *Fake) Unmount(_ context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.Target == target {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("umount %s: not mounted", target)
}
