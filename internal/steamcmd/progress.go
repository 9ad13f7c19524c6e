package steamcmd

import (
	"regexp"
	"strconv"
)

var (
	progressPat = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	speedPat    = regexp.MustCompile(`(?i)([0-9.]+\s*(?:B/s|KB/s|MB/s|GB/s))`)
)

// Progress is the per-line download progress steamcmd reports.
type Progress struct {
	Percent float64
	Speed   string
}

// ParseProgress extracts percent and transfer speed from one output line.
// Either field may be missing; ok is false when neither was found.
func ParseProgress(line string) (p Progress, ok bool) {
	if m := progressPat.FindStringSubmatch(line); m != nil {
		p.Percent, _ = strconv.ParseFloat(m[1], 64)
		ok = true
	}
	if m := speedPat.FindStringSubmatch(line); m != nil {
		p.Speed = m[1]
		ok = true
	}
	return p, ok
}
