// Package reminder contains the time-window classification and dedup state
// behind the reminder scheduler.
package reminder

import "time"

// Window is one of the three fixed reminder bands.
type Window string

const (
	Window30Min  Window = "30MIN"
	Window1Hour  Window = "1HOUR"
	Window24Hour Window = "24HOUR"
)

// Message renders the reminder text for this window. Templates live here so
// both the scheduler and the manual trigger produce identical wording.
func (w Window) Message(title string) string {
	switch w {
	case Window30Min:
		return `In 30 min: "` + title + `"`
	case Window1Hour:
		return `In 1 hour: "` + title + `"`
	default:
		return `Tomorrow: "` + title + `"`
	}
}

// band is a closed minute interval around a reminder base.
type band struct {
	window Window
	base   int
	min    int
	max    int
}

// Windows classifies minutes-to-start into reminder bands. The slack on each
// side of a base absorbs poll-interval jitter: a fixed-rate poll cannot land
// exactly on minute 30, but every event crosses at least one poll inside a
// widened band. Bands are disjoint, so one observation matches at most one
// window; the dedup log, not the band check, prevents repeats across the
// cycles that fall inside the same band.
type Windows struct {
	bands []band
}

// DefaultSlack is the per-side band width used with the canonical 60-second
// poll interval, giving the [25,35], [55,65] and [1435,1445] bands.
const DefaultSlack = 5 * time.Minute

// maxSlackMinutes caps the per-side width. The nearest bases are 30 minutes
// apart, so widths of 15 or more make adjacent bands touch and a minute
// value would match two windows.
const maxSlackMinutes = 14

// NewWindows builds the band set for a poll interval. The slack grows with
// the interval (five polls per side, floored at DefaultSlack) so that a
// slower poll rate cannot step over a band, and is capped so bands stay
// disjoint.
func NewWindows(pollInterval time.Duration) Windows {
	slack := 5 * pollInterval
	if slack < DefaultSlack {
		slack = DefaultSlack
	}
	s := int(slack.Minutes())
	if s > maxSlackMinutes {
		s = maxSlackMinutes
	}
	return Windows{bands: []band{
		{Window30Min, 30, 30 - s, 30 + s},
		{Window1Hour, 60, 60 - s, 60 + s},
		{Window24Hour, 1440, 1440 - s, 1440 + s},
	}}
}

// Classify returns the window whose closed interval contains
// minutesUntilStart, or false when no band matches. Bands are checked in
// ascending order; disjointness guarantees at most one match.
func (ws Windows) Classify(minutesUntilStart int) (Window, bool) {
	for _, b := range ws.bands {
		if minutesUntilStart >= b.min && minutesUntilStart <= b.max {
			return b.window, true
		}
	}
	return "", false
}

// Pick returns the window whose base the lead time rounds up to: the first
// band with minutesUntil at or below its base, else the last. Unlike
// Classify it always answers; the manual trigger path uses it so its
// wording follows the same band set as the scheduler.
func (ws Windows) Pick(minutesUntil int) Window {
	for _, b := range ws.bands[:len(ws.bands)-1] {
		if minutesUntil <= b.base {
			return b.window
		}
	}
	return ws.bands[len(ws.bands)-1].window
}
