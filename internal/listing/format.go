package listing

import (
	"math"
	"strconv"
	"time"
)

// TimeLayout is the local modification time layout shown in listings.
const TimeLayout = "2006-01-02 15:04:05"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders n bytes in binary units: integral values without a
// decimal ("1 KB"), fractional values with one decimal place ("1.5 KB").
// The unit is picked after rounding, so 1048575 is "1 MB", not "1024.0 KB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	size := float64(n)
	unit := 0
	for unit < len(sizeUnits)-1 && roundTenth(size) >= 1024 {
		size /= 1024
		unit++
	}
	size = roundTenth(size)
	if size == math.Trunc(size) {
		return strconv.FormatFloat(size, 'f', 0, 64) + " " + sizeUnits[unit]
	}
	return strconv.FormatFloat(size, 'f', 1, 64) + " " + sizeUnits[unit]
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}

// FormatTime renders t in local time as YYYY-MM-DD HH:MM:SS.
func FormatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}
