package encoder

import (
	"regexp"
	"strconv"
)

var (
	durationRe = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})\.(\d{2})`)
	outTimeMsRe = regexp.MustCompile(`out_time_ms=(-?\d+)`)
	timeRe      = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})\.(\d{2})`)
)

// progressParser accumulates the parsed total duration (once seen) and
// turns each diagnostic chunk into a (percent, currentSeconds) update.
//
// spec.md §9's open question: the encoder's textual progress protocol
// documents out_time_ms as microseconds despite the name, so this divides
// by 1_000_000, not 1_000. See parse_test.go for a pinned regression test.
type progressParser struct {
	durationSeconds float64
	haveDuration    bool
}

func newProgressParser() *progressParser { return &progressParser{} }

// Feed parses one line of diagnostic output. ok is false when the line
// carries no progress information, or when no duration has been observed
// yet (spec.md §4.B edge case: progress is suppressed until duration is
// known).
func (p *progressParser) Feed(line string) (percent int, currentSeconds float64, ok bool) {
	if !p.haveDuration {
		if m := durationRe.FindStringSubmatch(line); m != nil {
			p.durationSeconds = hmscToSeconds(m[1], m[2], m[3], m[4])
			p.haveDuration = true
		}
	}

	current, found := parseCurrent(line)
	if !found {
		return 0, 0, false
	}
	if !p.haveDuration || p.durationSeconds <= 0 {
		return 0, 0, false
	}

	pct := int(100 * current / p.durationSeconds)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, current, true
}

// parseCurrent extracts the current playback position in seconds, preferring
// out_time_ms (in microseconds, per spec.md §9) over the textual time=
// field.
func parseCurrent(line string) (float64, bool) {
	if m := outTimeMsRe.FindStringSubmatch(line); m != nil {
		us, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && us >= 0 {
			return float64(us) / 1_000_000, true
		}
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		return hmscToSeconds(m[1], m[2], m[3], m[4]), true
	}
	return 0, false
}

func hmscToSeconds(hh, mm, ss, cc string) float64 {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	c, _ := strconv.Atoi(cc)
	return float64(h*3600+m*60+s) + float64(c)/100
}
