package catalog

import (
	"fmt"
	"strconv"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders bytes in 1024 steps with one decimal, e.g. "100.0 MB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", v, sizeUnits[i])
}

// FormatCount abbreviates large download counts, e.g. "1.5K", "2.0M".
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatDate renders dd/mm/yyyy, or "Unknown" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("02/01/2006")
}
