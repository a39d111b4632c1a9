package platform

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameRunes = 100

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"'", "",
	"<", "_",
	">", "_",
	"|", "_",
	"#", "",
	"%", "",
	"&", "and",
)

// SafeName makes a title usable as a filename stem.
func SafeName(name string) string {
	name = filenameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Trim(name, "._-")
	name = Truncate(name, maxNameRunes)
	if name == "" {
		return "download"
	}
	return name
}

// UniqueSuffix returns a timestamp plus a short random token, so concurrent
// downloads of the same title never collide on disk.
func UniqueSuffix(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// ScaleProgress maps current/total bytes onto [lo, hi].
func ScaleProgress(current, total int64, lo, hi int) int {
	if total <= 0 || current <= 0 {
		return lo
	}
	if current >= total {
		return hi
	}
	return lo + int(float64(hi-lo)*float64(current)/float64(total))
}
