// Package publish exposes verified mounts into the externally served tree as
// symbolic links, and computes per-mount usage statistics.
package publish

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/afero"
)

const (
	// DrivesDir is the served-tree subdirectory holding one link per
	// mounted device.
	DrivesDir = "drives"
	// SystemDir holds the fixed whitelist of live system paths.
	SystemDir = "system"
)

// SystemPath is one entry of the fixed whitelist published outside the
// mount-decision pipeline: these paths are already part of the live
// filesystem.
type SystemPath struct {
	Name string
	Path string
}

var SystemPaths = []SystemPath{
	{Name: "home", Path: "/home"},
	{Name: "root", Path: "/root"},
	{Name: "config", Path: "/etc"},
	{Name: "logs", Path: "/var/log"},
	{Name: "temp", Path: "/tmp"},
	{Name: "media", Path: "/media"},
}

// Usage is the capacity snapshot of one mounted filesystem.
type Usage struct {
	Total uint64 `yaml:"total"`
	Used  uint64 `yaml:"used"`
	Free  uint64 `yaml:"free"`
}

// Publisher maintains the served symlink tree. Filesystem access goes
// through afero and small seams so tests never touch the real tree.
type Publisher struct {
	Fs         afero.Fs
	ServedRoot string

	// seams
	symlink func(oldname, newname string) error
	readlnk func(name string) (string, error)
	lstat   func(name string) (os.FileInfo, error)
	usageFn func(path string) (*disk.UsageStat, error)
}

func New(servedRoot string) *Publisher {
	return &Publisher{
		Fs:         afero.NewOsFs(),
		ServedRoot: servedRoot,
		symlink:    os.Symlink,
		readlnk:    os.Readlink,
		lstat:      os.Lstat,
		usageFn:    disk.Usage,
	}
}

// LinkMount publishes a verified mount under drives/<name>. Re-running over
// an existing, correct link is a no-op; a stale link is replaced.
func (p *Publisher) LinkMount(name, mountPoint string) (string, error) {
	dir := filepath.Join(p.ServedRoot, DrivesDir)
	if err := p.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create drives dir: %w", err)
	}
	link := filepath.Join(dir, name)
	return link, p.ensureLink(mountPoint, link)
}

// PublishSystemPaths links the fixed whitelist under system/. Entries whose
// source path does not exist on this host are skipped; other failures are
// reported so the caller can log them as warnings.
func (p *Publisher) PublishSystemPaths() (published int, errs []error) {
	dir := filepath.Join(p.ServedRoot, SystemDir)
	if err := p.Fs.MkdirAll(dir, 0o755); err != nil {
		return 0, []error{fmt.Errorf("create system dir: %w", err)}
	}
	for _, sp := range SystemPaths {
		if _, err := p.lstat(sp.Path); err != nil {
			continue
		}
		if err := p.ensureLink(sp.Path, filepath.Join(dir, sp.Name)); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", sp.Name, err))
			continue
		}
		published++
	}
	return published, errs
}

// Unpublish removes the drives/<name> link, best effort.
func (p *Publisher) Unpublish(name string) error {
	return p.Fs.Remove(filepath.Join(p.ServedRoot, DrivesDir, name))
}

func (p *Publisher) ensureLink(target, link string) error {
	if fi, err := p.lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			if cur, err := p.readlnk(link); err == nil && cur == target {
				return nil
			}
		}
		if err := p.Fs.Remove(link); err != nil {
			return fmt.Errorf("replace stale link: %w", err)
		}
	}
	if err := p.symlink(target, link); err != nil {
		return fmt.Errorf("symlink: %w", err)
	}
	return nil
}

// UsageOf reports capacity/used/available for a mounted path. Failure here
// is never fatal to the run; callers substitute the zero value.
func (p *Publisher) UsageOf(path string) (Usage, error) {
	st, err := p.usageFn(path)
	if err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	return Usage{Total: st.Total, Used: st.Used, Free: st.Free}, nil
}
