package stats

import (
	"fmt"
	"time"
)

const (
	// Unit multipliers (1024-based).
	kb = 1024
	mb = kb * 1024
	gb = mb * 1024
)

// FormatRate formats a bytes-per-second rate, selecting the unit by
// powers of 1024 and always showing two decimal digits.
func FormatRate(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= gb:
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/gb)
	case bytesPerSec >= mb:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/mb)
	case bytesPerSec >= kb:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/kb)
	default:
		return fmt.Sprintf("%.2f B/s", bytesPerSec)
	}
}

// FormatBytes formats a byte total using the same 1024-based thresholds
// with one decimal digit, and byte-exact display below 1024.
func FormatBytes(bytes uint64) string {
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration formats a duration in a human-readable format.
// Returns formats like "1h 23m 45s", "23m 45s", or "45s" depending on duration.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
