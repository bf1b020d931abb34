// Package mounter models the kernel mount table as an explicit capability so
// the pipeline can run against a fake table in tests.
package mounter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drivedock/pkg/shell"
)

// ErrNotMounted is returned by verification when a mount command reported
// success but the target never appeared in the mount table.
var ErrNotMounted = errors.New("target is not an active mount point")

// Mounter is the mount-table capability the executor depends on.
type Mounter interface {
	// Mounts returns the current mount table.
	Mounts() ([]MountEntry, error)
	// Mount attaches device at target with the given type and options.
	Mount(ctx context.Context, device, target, fstype string, options []string) error
	// Unmount detaches target.
	Unmount(ctx context.Context, target string) error
}

// ExecMounter drives mount(8)/umount(8) and reads /proc/self/mounts.
type ExecMounter struct {
	// Run is the exec seam; nil means shell.Run.
	Run shell.Runner
	// TablePath overrides /proc/self/mounts for tests.
	TablePath string
}

func (m *ExecMounter) Mounts() ([]MountEntry, error) {
	path := m.TablePath
	if path == "" {
		path = procMountsPath
	}
	return parseMountTable(path)
}

func (m *ExecMounter) Mount(ctx context.Context, device, target, fstype string, options []string) error {
	run := m.Run
	if run == nil {
		run = shell.Run
	}
	args := []string{"-t", fstype, "-o", strings.Join(options, ","), device, target}
	res, err := run(ctx, 30*time.Second, "mount", args...)
	if err != nil {
		if diag := res.Combined(); diag != "" {
			return fmt.Errorf("mount %s: %s: %w", device, diag, err)
		}
		return fmt.Errorf("mount %s: %w", device, err)
	}
	return nil
}

func (m *ExecMounter) Unmount(ctx context.Context, target string) error {
	run := m.Run
	if run == nil {
		run = shell.Run
	}
	res, err := run(ctx, 30*time.Second, "umount", target)
	if err != nil {
		if diag := res.Combined(); diag != "" {
			return fmt.Errorf("umount %s: %s: %w", target, diag, err)
		}
		return fmt.Errorf("umount %s: %w", target, err)
	}
	return nil
}

// Verify checks that target is an active mount point right now. A zero exit
// code from mount(8) is not trusted on its own.
func Verify(m Mounter, target string) (MountEntry, error) {
	entries, err := m.Mounts()
	if err != nil {
		return MountEntry{}, err
	}
	if e, ok := FindByTarget(entries, target); ok {
		return e, nil
	}
	return MountEntry{}, fmt.Errorf("%s: %w", target, ErrNotMounted)
}
