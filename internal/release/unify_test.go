package release

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, ok := ParseDate(s)
	if !ok {
		panic("bad test date " + s)
	}
	return d
}

func fact(kind Kind, date string) Fact {
	return Fact{MovieID: 1, Country: "US", Kind: kind, Date: day(date)}
}

func TestUnifyEmpty(t *testing.T) {
	s := Unify(nil)
	assert.True(t, s.IsEmpty())
	assert.Nil(t, s.Theatrical)
	assert.Nil(t, s.Streaming)
}

func TestUnifyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		facts      []Fact
		theatrical string
		primary    string
		limited    string
		digital    string
	}{
		{
			name:       "premiere only",
			facts:      []Fact{fact(KindPremiere, "2026-05-01")},
			theatrical: "2026-05-01",
			primary:    "2026-05-01",
		},
		{
			name: "wide overrides limited and premiere",
			facts: []Fact{
				fact(KindTheatricalWide, "2026-06-20"),
				fact(KindTheatricalLimited, "2026-06-06"),
				fact(KindPremiere, "2026-05-01"),
			},
			theatrical: "2026-06-20",
			primary:    "2026-05-01",
			limited:    "2026-06-06",
		},
		{
			name: "limited without premiere becomes primary",
			facts: []Fact{
				fact(KindTheatricalLimited, "2026-06-06"),
			},
			theatrical: "2026-06-06",
			primary:    "2026-06-06",
			limited:    "2026-06-06",
		},
		{
			name: "digital beats physical and tv",
			facts: []Fact{
				fact(KindTV, "2026-12-01"),
				fact(KindPhysical, "2026-09-15"),
				fact(KindDigital, "2026-08-30"),
			},
			digital: "2026-08-30",
		},
		{
			name: "physical used when digital missing",
			facts: []Fact{
				fact(KindTV, "2026-12-01"),
				fact(KindPhysical, "2026-09-15"),
			},
			digital: "2026-09-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Unify(tt.facts)
			assertDate(t, tt.theatrical, s.Theatrical, "theatrical")
			assertDate(t, tt.primary, s.Primary, "primary")
			assertDate(t, tt.limited, s.Limited, "limited")
			assertDate(t, tt.digital, s.Digital, "digital")
			assertDate(t, tt.digital, s.Streaming, "streaming")
		})
	}
}

func TestUnifyWideAlwaysWinsRegardlessOfOrder(t *testing.T) {
	base := []Fact{
		fact(KindPremiere, "2026-03-01"),
		fact(KindTheatricalLimited, "2026-03-10"),
		fact(KindTheatricalWide, "2026-04-02"),
		fact(KindDigital, "2026-06-01"),
		fact(KindTV, "2026-10-01"),
	}
	rng := rand.New(rand.NewSource(42))
	want := Unify(base)

	for i := 0; i < 50; i++ {
		shuffled := append([]Fact(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Unify(shuffled)
		require.NotNil(t, got.Theatrical)
		assert.Equal(t, "2026-04-02", FormatDate(*got.Theatrical))
		assert.Equal(t, want, got)
	}
}

// Two facts for the same (movie, country, kind) should not exist given the
// upsert key; when they do, the last one wins.
func TestUnifyDuplicateKindLastWins(t *testing.T) {
	s := Unify([]Fact{
		fact(KindTheatricalWide, "2026-04-02"),
		fact(KindTheatricalWide, "2026-04-09"),
		fact(KindDigital, "2026-06-01"),
		fact(KindDigital, "2026-05-20"),
	})
	assertDate(t, "2026-04-09", s.Theatrical, "theatrical")
	assertDate(t, "2026-05-20", s.Digital, "digital")

	d, ok := Latest([]Fact{
		fact(KindDigital, "2026-06-01"),
		fact(KindDigital, "2026-05-20"),
	}, "US", KindDigital)
	require.True(t, ok)
	assert.Equal(t, "2026-05-20", FormatDate(d))
}

func TestUnifyIgnoresOtherCountriesAndBadFacts(t *testing.T) {
	s := Unify([]Fact{
		{MovieID: 1, Country: "GB", Kind: KindTheatricalWide, Date: day("2026-01-01")},
		{MovieID: 1, Country: "us", Kind: KindDigital, Date: day("2026-02-02")},
		{MovieID: 1, Country: "US", Kind: Kind(9), Date: day("2026-03-03")},
		{MovieID: 1, Country: "US", Kind: KindPremiere},
	})
	assert.Nil(t, s.Theatrical)
	assert.Nil(t, s.Primary)
	assertDate(t, "2026-02-02", s.Digital, "digital")

	gb := UnifyCountry([]Fact{{Country: "GB", Kind: KindTheatricalWide, Date: day("2026-01-01")}}, "GB")
	assertDate(t, "2026-01-01", gb.Theatrical, "theatrical")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-05-01", "2026-05-01", true},
		{"2026-05-01T00:00:00.000Z", "2026-05-01", true},
		{" 2026-05-01 ", "2026-05-01", true},
		{"", "", false},
		{"May 1 2026", "", false},
		{"2026-13-01", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, FormatDate(got))
		}
	}
}

func TestFollowKindWants(t *testing.T) {
	assert.True(t, FollowBoth.Wants(KindTheatricalWide))
	assert.True(t, FollowBoth.Wants(KindDigital))
	assert.True(t, FollowTheatrical.Wants(KindTheatricalWide))
	assert.False(t, FollowTheatrical.Wants(KindDigital))
	assert.False(t, FollowStreaming.Wants(KindTheatricalWide))
	assert.False(t, FollowStreaming.Wants(KindPremiere))

	k, ok := ParseFollowKind(" Both ")
	assert.True(t, ok)
	assert.Equal(t, FollowBoth, k)
	_, ok = ParseFollowKind("imax")
	assert.False(t, ok)
}

func assertDate(t *testing.T, want string, got *time.Time, field string) {
	t.Helper()
	if want == "" {
		assert.Nil(t, got, field)
		return
	}
	if assert.NotNil(t, got, field) {
		assert.Equal(t, want, FormatDate(*got), field)
	}
}
