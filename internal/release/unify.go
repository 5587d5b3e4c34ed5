package release

import (
	"strings"
	"time"
)

// Unify folds raw facts for the home country into a Summary.
func Unify(facts []Fact) Summary {
	return UnifyCountry(facts, HomeCountry)
}

// UnifyCountry folds raw facts for one country into a Summary.
//
// Facts are first reduced to one date per kind; if the same kind appears more
// than once (an upstream data quality issue) the last one in input order wins.
// Kinds are then applied in fixed priority order so the result never depends
// on source ordering:
//
//   - Premiere fills primary and theatrical when unset.
//   - TheatricalLimited fills limited, primary and theatrical when unset.
//   - TheatricalWide always overwrites theatrical and fills primary when unset.
//   - The first of Digital, Physical, TV sets digital and streaming; later ones are ignored.
func UnifyCountry(facts []Fact, country string) Summary {
	byKind := reduceByKind(facts, country)

	var s Summary
	for _, k := range Kinds {
		d, ok := byKind[k]
		if !ok {
			continue
		}
		switch k {
		case KindPremiere:
			fill(&s.Primary, d)
			fill(&s.Theatrical, d)
		case KindTheatricalLimited:
			fill(&s.Limited, d)
			fill(&s.Primary, d)
			fill(&s.Theatrical, d)
		case KindTheatricalWide:
			s.Theatrical = datePtr(d)
			fill(&s.Primary, d)
		case KindDigital, KindPhysical, KindTV:
			fill(&s.Digital, d)
			fill(&s.Streaming, d)
		}
	}
	return s
}

// Latest returns the date of the given kind for a country, applying the same
// last-wins rule as UnifyCountry for duplicates.
func Latest(facts []Fact, country string, kind Kind) (time.Time, bool) {
	d, ok := reduceByKind(facts, country)[kind]
	return d, ok
}

func reduceByKind(facts []Fact, country string) map[Kind]time.Time {
	out := make(map[Kind]time.Time, len(Kinds))
	for _, f := range facts {
		if !strings.EqualFold(f.Country, country) || !f.Kind.Valid() || f.Date.IsZero() {
			continue
		}
		out[f.Kind] = Day(f.Date)
	}
	return out
}

func fill(dst **time.Time, d time.Time) {
	if *dst == nil {
		*dst = datePtr(d)
	}
}

func datePtr(d time.Time) *time.Time {
	return &d
}
