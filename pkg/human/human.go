package human

import "fmt"

// Bytes renders a byte count with a binary-unit suffix.
func Bytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Count renders a bounded entry count; negative values are the sentinel for
// counts that timed out or hit the cap.
func Count(n int64) string {
	if n < 0 {
		return "many"
	}
	return fmt.Sprintf("%d", n)
}
