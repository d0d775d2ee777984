package engine

import (
	"regexp"
	"strconv"
)

const (
	// progressCap keeps the bar below done until the process has exited.
	progressCap = 0.95
	// progressPulse is reported when the total duration is unknown.
	progressPulse = 0.5
)

var timePattern = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d{2})`)

// ParseProgress reads an ffmpeg style time=HH:MM:SS.ff marker from line.
// With a known duration (seconds) the result is elapsed/duration capped at
// 0.95, otherwise 0.5. The second result is false for lines without a marker.
func ParseProgress(line string, duration float64) (float64, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.ParseFloat(m[3], 64)
	elapsed := float64(h*3600+mm*60) + s

	if duration <= 0 {
		return progressPulse, true
	}
	return min(progressCap, elapsed/duration), true
}
