package release

import (
	"testing"
	"time"
)

func benchFacts(n int) []Fact {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	countries := []string{"US", "GB", "DE", "FR", "JP"}
	facts := make([]Fact, 0, n)
	for i := 0; i < n; i++ {
		facts = append(facts, Fact{
			MovieID: 1,
			Country: countries[i%len(countries)],
			Kind:    Kinds[i%len(Kinds)],
			Date:    base.AddDate(0, 0, i),
		})
	}
	return facts
}

func BenchmarkUnifyCountry(b *testing.B) {
	facts := benchFacts(60)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = UnifyCountry(facts, HomeCountry)
	}
}

func BenchmarkLatest(b *testing.B) {
	facts := benchFacts(60)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Latest(facts, HomeCountry, KindDigital)
	}
}
