package index

import "math"

// BM25-style parameters, shared with the usual literature values.
const (
	k1 = 1.2
	b  = 0.75
)

// scoreInput carries everything needed to score one candidate page.
type scoreInput struct {
	termFreqs  map[string]int
	docFreqs   map[string]int
	earliest   int
	pageLength int
	totalPages int
	avgLength  float64
}

// scorePage computes a frequency/length-weighted score across the query
// terms, boosted when the first occurrence sits near the top of the page.
// Scores are rounded to four decimals so ordering is stable across runs.
func scorePage(in scoreInput) float64 {
	var score float64
	for term, tf := range in.termFreqs {
		idf := computeIDF(in.totalPages, in.docFreqs[term])
		score += idf * computeTFNorm(float64(tf), float64(in.pageLength), in.avgLength)
	}
	score *= 1 + earlyBonus(in.earliest)
	return math.Round(score*10000) / 10000
}

func computeIDF(totalPages, pageFreq int) float64 {
	numerator := float64(totalPages) - float64(pageFreq)
	denominator := float64(pageFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq, pageLength, avgLength float64) float64 {
	if avgLength == 0 {
		return 0
	}
	lengthRatio := pageLength / avgLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// earlyBonus rewards matches near the start of a page. It decays from 0.25
// at position zero toward zero for matches deep in the page.
func earlyBonus(position int) float64 {
	if position < 0 {
		return 0
	}
	return 0.25 / (1 + float64(position)/16)
}
