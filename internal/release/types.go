package release

import (
	"strings"
	"time"
)

// HomeCountry is the territory whose release dates drive the unified summary.
const HomeCountry = "US"

// Kind is the catalog's classification of a release event.
// The numeric values match the upstream release_dates API and the persisted release_type column.
type Kind int

const (
	KindPremiere          Kind = 1
	KindTheatricalLimited Kind = 2
	KindTheatricalWide    Kind = 3
	KindDigital           Kind = 4
	KindPhysical          Kind = 5
	KindTV                Kind = 6
)

// Kinds lists every release kind in fold priority order.
var Kinds = []Kind{
	KindPremiere,
	KindTheatricalLimited,
	KindTheatricalWide,
	KindDigital,
	KindPhysical,
	KindTV,
}

// Valid reports whether k is one of the six known release kinds.
func (k Kind) Valid() bool {
	return k >= KindPremiere && k <= KindTV
}

func (k Kind) String() string {
	switch k {
	case KindPremiere:
		return "premiere"
	case KindTheatricalLimited:
		return "theatrical_limited"
	case KindTheatricalWide:
		return "theatrical_wide"
	case KindDigital:
		return "digital"
	case KindPhysical:
		return "physical"
	case KindTV:
		return "tv"
	default:
		return "unknown"
	}
}

// Fact is one known release date for a movie in a country.
type Fact struct {
	MovieID         int64
	Country         string
	Kind            Kind
	Date            time.Time
	LastValidatedAt *time.Time
}

// Summary is the precedence-resolved set of dates for one movie in one country.
// A nil field means the date is unknown.
type Summary struct {
	Theatrical *time.Time `json:"theatrical,omitempty"`
	Streaming  *time.Time `json:"streaming,omitempty"`
	Primary    *time.Time `json:"primary,omitempty"`
	Limited    *time.Time `json:"limited,omitempty"`
	Digital    *time.Time `json:"digital,omitempty"`
}

// IsEmpty reports whether no date is known.
func (s Summary) IsEmpty() bool {
	return s.Theatrical == nil && s.Streaming == nil && s.Primary == nil &&
		s.Limited == nil && s.Digital == nil
}

// FollowKind is a user's subscription scope for a movie.
type FollowKind string

const (
	FollowTheatrical FollowKind = "theatrical"
	FollowStreaming  FollowKind = "streaming"
	FollowBoth       FollowKind = "both"
)

// ParseFollowKind normalizes a stored follow kind. Unknown values yield false.
func ParseFollowKind(s string) (FollowKind, bool) {
	switch FollowKind(strings.ToLower(strings.TrimSpace(s))) {
	case FollowTheatrical:
		return FollowTheatrical, true
	case FollowStreaming:
		return FollowStreaming, true
	case FollowBoth:
		return FollowBoth, true
	}
	return "", false
}

func (f FollowKind) WantsTheatrical() bool {
	return f == FollowTheatrical || f == FollowBoth
}

func (f FollowKind) WantsStreaming() bool {
	return f == FollowStreaming || f == FollowBoth
}

// Wants reports whether a follow of this kind cares about a tracked release kind.
func (f FollowKind) Wants(k Kind) bool {
	switch k {
	case KindTheatricalWide:
		return f.WantsTheatrical()
	case KindDigital:
		return f.WantsStreaming()
	}
	return false
}

// TrackedKinds are the two release kinds the discovery job keeps validated.
var TrackedKinds = []Kind{KindTheatricalWide, KindDigital}
