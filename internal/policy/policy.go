package policy

import (
	"strings"

	"drivedock/internal/blockdev"
)

type Action string

const (
	ActionMount Action = "mount"
	ActionSkip  Action = "skip"
)

type SkipReason string

const (
	SkipSystem       SkipReason = "system"
	SkipMounted      SkipReason = "already_mounted"
	SkipSwap         SkipReason = "swap"
	SkipNoFilesystem SkipReason = "no_filesystem"
)

// Decision is the classification verdict for one device.
type Decision struct {
	Device blockdev.Device
	Action Action
	Reason SkipReason
	// Detected carries a signature we recognized but will not act on
	// (LUKS, LVM, md-raid members).
	Detected string
}

// Container signatures: present on the device, but not a mountable
// filesystem. Reported, never acted upon.
var memberSignatures = map[string]string{
	"crypto_luks":       "LUKS container",
	"lvm2_member":       "LVM physical volume",
	"linux_raid_member": "md-raid member",
}

// Classify applies the ordered predicate chain; first match wins. It is a
// pure function of the device value, so repeated runs over unchanged state
// yield identical decisions.
func Classify(d blockdev.Device) Decision {
	switch {
	case d.Mounted() && (d.Role() == blockdev.RoleSystem || d.Role() == blockdev.RoleBoot):
		return Decision{Device: d, Action: ActionSkip, Reason: SkipSystem}
	case d.Mounted():
		return Decision{Device: d, Action: ActionSkip, Reason: SkipMounted}
	case d.Role() == blockdev.RoleSwap:
		return Decision{Device: d, Action: ActionSkip, Reason: SkipSwap}
	case strings.TrimSpace(d.FSType) == "":
		return Decision{Device: d, Action: ActionSkip, Reason: SkipNoFilesystem}
	default:
		if sig, ok := memberSignatures[strings.ToLower(d.FSType)]; ok {
			return Decision{Device: d, Action: ActionSkip, Reason: SkipNoFilesystem, Detected: sig}
		}
		return Decision{Device: d, Action: ActionMount}
	}
}
