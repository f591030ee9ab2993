package logits

import "sort"

// Policy reduces a temperature-scaled score vector to the candidate set its
// strategy allows. Filter masks disallowed entries to -Inf in place and leaves
// allowed entries untouched; the vector length never changes. A Policy is
// resolved once per request and reused for every step of that generation, so
// implementations may keep scratch buffers but must not be shared across
// requests.
type Policy interface {
	Name() string
	Filter(scores []float32)
}

// GreedyPolicy performs no filtering. The sampler takes the argmax directly,
// so temperature has no effect on the chosen token.
type GreedyPolicy struct{}

func (GreedyPolicy) Name() string           { return "greedy" }
func (GreedyPolicy) Filter(scores []float32) {}

// TopKPolicy keeps the K highest-scoring entries and masks the rest. K is
// clamped to the vocabulary size: an oversize K silently behaves as "no
// filtering" rather than erroring.
type TopKPolicy struct {
	K int

	idx []int
}

func (TopKPolicy) Name() string { return "top-k" }

func (p *TopKPolicy) Filter(scores []float32) {
	k := p.K
	if k <= 0 {
		k = 1
	}
	if k >= len(scores) {
		return
	}

	if cap(p.idx) < len(scores) {
		p.idx = make([]int, len(scores))
	}
	idx := p.idx[:len(scores)]
	for i := range idx {
		idx[i] = i
	}
	// Partial ordering is enough: everything past position k-1 gets masked.
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	for _, i := range idx[k:] {
		scores[i] = NegInf
	}
}

// TopPPolicy keeps the smallest prefix of tokens, ordered by descending
// probability, whose cumulative probability exceeds P. The single
// highest-probability token is always kept, even when its own probability
// already exceeds P, so the nucleus is never empty.
type TopPPolicy struct {
	P float64

	idx  []int
	prob []float64
}

func (TopPPolicy) Name() string { return "top-p" }

func (p *TopPPolicy) Filter(scores []float32) {
	if p.P >= 1 || len(scores) < 2 {
		return
	}

	if cap(p.prob) < len(scores) {
		p.prob = make([]float64, len(scores))
		p.idx = make([]int, len(scores))
	}
	prob := p.prob[:len(scores)]
	idx := p.idx[:len(scores)]

	softmaxInto(prob, scores)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return prob[idx[a]] > prob[idx[b]] })

	cut := 1
	cum := prob[idx[0]]
	for cut < len(idx) && cum <= p.P {
		cum += prob[idx[cut]]
		cut++
	}
	for _, i := range idx[cut:] {
		scores[i] = NegInf
	}
}
