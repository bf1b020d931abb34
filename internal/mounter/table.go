package mounter

import "strings"

// Baseline options applied to every mount, no exceptions: never writable,
// never executable, never device-node-capable.
var Baseline = []string{"ro", "noexec", "nosuid", "nodev"}

// Driver is the concrete mount type plus the supplemental options one
// filesystem family needs on top of the baseline.
type Driver struct {
	FSType string
	Extra  []string
}

// autoDriver is the explicit fallback for filesystems we have no entry for:
// let mount(8) detect the type, baseline options only.
var autoDriver = Driver{FSType: "auto"}

var drivers = map[string]Driver{
	"ntfs":    {FSType: "ntfs-3g", Extra: []string{"umask=022", "windows_names", "recover"}},
	"exfat":   {FSType: "exfat", Extra: []string{"umask=022"}},
	"vfat":    {FSType: "vfat", Extra: []string{"umask=022"}},
	"fat16":   {FSType: "vfat", Extra: []string{"umask=022"}},
	"fat32":   {FSType: "vfat", Extra: []string{"umask=022"}},
	"msdos":   {FSType: "vfat", Extra: []string{"umask=022"}},
	"ext2":    {FSType: "ext2"},
	"ext3":    {FSType: "ext3"},
	"ext4":    {FSType: "ext4"},
	"xfs":     {FSType: "xfs", Extra: []string{"nouuid"}},
	"btrfs":   {FSType: "btrfs", Extra: []string{"subvol=/"}},
	"hfsplus": {FSType: "hfsplus"},
	"iso9660": {FSType: "iso9660"},
	"udf":     {FSType: "udf"},
}

// DriverFor selects the mount driver for a detected filesystem type.
func DriverFor(fstype string) Driver {
	if d, ok := drivers[strings.ToLower(strings.TrimSpace(fstype))]; ok {
		return d
	}
	return autoDriver
}

// Options returns the full option list for a driver: baseline first, then
// the driver's supplemental options.
func (d Driver) Options() []string {
	out := make([]string, 0, len(Baseline)+len(d.Extra))
	out = append(out, Baseline...)
	out = append(out, d.Extra...)
	return out
}
