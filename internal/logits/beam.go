package logits

import (
	"math"
	"sort"
)

// Hypothesis is one live beam: the token ids appended since the prompt and the
// cumulative log-probability of that continuation.
type Hypothesis struct {
	IDs     []int
	LogProb float64

	// order is the insertion rank of this hypothesis, used to break score
	// ties deterministically.
	order int
}

// Last returns the most recently appended token id, or -1 for a fresh
// hypothesis.
func (h Hypothesis) Last() int {
	if len(h.IDs) == 0 {
		return -1
	}
	return h.IDs[len(h.IDs)-1]
}

// BeamPolicy maintains Width parallel hypotheses scored by cumulative
// log-probability. It is fully deterministic: no randomness is involved and
// equal-scoring expansions are ranked by the insertion order of their parent
// hypothesis.
type BeamPolicy struct {
	Width int

	prob []float64
}

func (BeamPolicy) Name() string { return "beam" }

// Filter satisfies Policy so beam search slots behind the same dispatch as the
// sampling strategies; beam candidate selection happens in Advance, so the
// score vector passes through unmasked.
func (*BeamPolicy) Filter(scores []float32) {}

// Start returns the initial hypothesis set: a single empty hypothesis with
// zero log-probability.
func (p *BeamPolicy) Start() []Hypothesis {
	return []Hypothesis{{IDs: nil, LogProb: 0}}
}

// Advance expands every live hypothesis with its top Width candidate tokens
// from the matching score vector, then keeps the Width highest-scoring
// expansions. scores[i] is the next-token score vector for beams[i]. The
// returned slice is ordered best-first and has at most Width entries.
func (p *BeamPolicy) Advance(beams []Hypothesis, scores [][]float32) []Hypothesis {
	width := p.Width
	if width <= 0 {
		width = 1
	}

	expanded := make([]Hypothesis, 0, len(beams)*width)
	for bi, beam := range beams {
		vec := scores[bi]
		if cap(p.prob) < len(vec) {
			p.prob = make([]float64, len(vec))
		}
		prob := p.prob[:len(vec)]
		if softmaxInto(prob, vec) == 0 {
			continue
		}
		for _, tok := range topIndices(prob, width) {
			ids := make([]int, 0, len(beam.IDs)+1)
			ids = append(ids, beam.IDs...)
			ids = append(ids, tok)
			expanded = append(expanded, Hypothesis{
				IDs:     ids,
				LogProb: beam.LogProb + logOf(prob[tok]),
				order:   len(expanded),
			})
		}
	}
	if len(expanded) == 0 {
		return beams
	}

	sort.SliceStable(expanded, func(a, b int) bool {
		if expanded[a].LogProb != expanded[b].LogProb {
			return expanded[a].LogProb > expanded[b].LogProb
		}
		return expanded[a].order < expanded[b].order
	})
	if len(expanded) > width {
		expanded = expanded[:width]
	}
	for i := range expanded {
		expanded[i].order = i
	}
	return expanded
}

// topIndices returns the indices of the k largest probabilities, best first,
// ties broken by lowest index. O(n*k), fine for small beam widths.
func topIndices(prob []float64, k int) []int {
	if k > len(prob) {
		k = len(prob)
	}
	out := make([]int, 0, k)
	for len(out) < k {
		best := -1
		for i, p := range prob {
			if p == 0 || containsInt(out, i) {
				continue
			}
			if best < 0 || p > prob[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		out = append(out, best)
	}
	return out
}

func logOf(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return math.Log(p)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
