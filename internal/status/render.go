package status

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"drivedock/pkg/human"
)

// Render writes the plain-text status report.
func Render(w io.Writer, s Snapshot) {
	blue := color.New(color.FgBlue, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	_, _ = blue.Fprintf(w, "Mounted drives (%d)\n", len(s.Mounts))
	for _, m := range s.Mounts {
		mode := "ro"
		c := green
		if !m.ReadOnly {
			mode = "rw"
			c = red
		}
		_, _ = c.Fprintf(w, "  %s  %s  %s [%s]\n", m.Device, m.Target, m.FSType, mode)
	}

	_, _ = blue.Fprintf(w, "Published drives (%d)\n", len(s.Drives))
	for _, l := range s.Drives {
		if l.Broken {
			_, _ = red.Fprintf(w, "  %s -> %s (broken)\n", l.Name, l.Target)
		} else {
			fmt.Fprintf(w, "  %s -> %s\n", l.Name, l.Target)
		}
	}

	_, _ = blue.Fprintf(w, "System paths (%d)\n", len(s.System))
	for _, l := range s.System {
		fmt.Fprintf(w, "  %s -> %s\n", l.Name, l.Target)
	}

	if s.LastRun != nil {
		_, _ = blue.Fprintln(w, "Last discovery run")
		fmt.Fprintf(w, "  run %s: mounted=%d failed=%d skipped=%d total=%s (%s)\n",
			s.LastRun.RunID, s.LastRun.Mounted, s.LastRun.Failed, s.LastRun.Skipped,
			human.Bytes(s.LastRun.TotalBytes), s.LastRun.FinishedAt.Format("2006-01-02 15:04:05"))
	}
}
