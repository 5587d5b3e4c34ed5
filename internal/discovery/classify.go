package discovery

import (
	"time"

	"releasewatch/internal/release"
)

type Classification int

const (
	Unchanged Classification = iota
	Discovered
	Changed
)

func (c Classification) String() string {
	switch c {
	case Discovered:
		return "discovered"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// classify compares a freshly fetched date with the stored one.
func classify(previous *time.Time, current time.Time) Classification {
	if previous == nil {
		return Discovered
	}
	if release.Day(*previous).Equal(release.Day(current)) {
		return Unchanged
	}
	return Changed
}

// eligible reports whether a classified fact is worth an email. Past dates
// never are, and a changed date only when it moved earlier.
func eligible(c Classification, previous *time.Time, current, today time.Time) bool {
	cur := release.Day(current)
	day := release.Day(today)
	switch c {
	case Discovered:
		return cur.After(day)
	case Changed:
		return previous != nil && cur.Before(release.Day(*previous)) && cur.After(day)
	}
	return false
}
