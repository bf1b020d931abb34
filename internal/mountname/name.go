package mountname

import (
	"fmt"
	"strings"

	"drivedock/internal/blockdev"
)

// Namer issues mount/publish names for one discovery run. Names are a
// deterministic function of (device name, fstype, label); when two devices
// would collide the later one, in enumeration order, gets a numeric suffix.
type Namer struct {
	issued map[string]int
}

func New() *Namer {
	return &Namer{issued: map[string]int{}}
}

// Name derives {device}_{fstype}_{label}, lowercased, with every character
// outside [a-z0-9_-] replaced by underscore.
func (n *Namer) Name(d blockdev.Device) string {
	base := fmt.Sprintf("%s_%s_%s", sanitize(d.Name), sanitize(d.FSType), sanitize(d.Label))
	n.issued[base]++
	if c := n.issued[base]; c > 1 {
		return fmt.Sprintf("%s_%d", base, c)
	}
	return base
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return blockdev.Unknown
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
