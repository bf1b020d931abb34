package mounter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const procMountsPath = "/proc/self/mounts"

// MountEntry is one line of the kernel mount table.
type MountEntry struct {
	Device  string
	Target  string
	FSType  string
	Options []string
}

// HasOption reports whether the entry ended up with the given mount option.
func (e MountEntry) HasOption(opt string) bool {
	for _, o := range e.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// parseMountTable reads a mounts(5)-format file.
func parseMountTable(path string) ([]MountEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var entries []MountEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		entries = append(entries, MountEntry{
			Device:  unescapeField(fields[0]),
			Target:  unescapeField(fields[1]),
			FSType:  fields[2],
			Options: strings.Split(fields[3], ","),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// mounts(5) escapes whitespace octally: space \040, tab \011, newline \012.
func unescapeField(s string) string {
	s = strings.ReplaceAll(s, `\040`, " ")
	s = strings.ReplaceAll(s, `\011`, "\t")
	s = strings.ReplaceAll(s, `\012`, "\n")
	s = strings.ReplaceAll(s, `\134`, `\`)
	return s
}

// FindByTarget returns the entry mounted at target, if any.
func FindByTarget(entries []MountEntry, target string) (MountEntry, bool) {
	for _, e := range entries {
		if e.Target == target {
			return e, true
		}
	}
	return MountEntry{}, false
}

// MountpointOf returns where device is mounted, empty when it is not.
func MountpointOf(entries []MountEntry, device string) string {
	for _, e := range entries {
		if e.Device == device {
			return e.Target
		}
	}
	return ""
}
