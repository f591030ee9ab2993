package logits

import "math/rand"

// Sampler draws token indices from filtered score vectors. A Sampler belongs
// to a single generation; the RNG is seeded explicitly so sampling runs are
// reproducible.
type Sampler struct {
	rng    *rand.Rand
	greedy bool
	prob   []float64
}

// NewSampler returns a sampler seeded with seed. When greedy is true Sample
// always returns the argmax of the raw scores, ignoring both temperature and
// the RNG.
func NewSampler(seed int64, greedy bool) *Sampler {
	return &Sampler{
		rng:    rand.New(rand.NewSource(seed)),
		greedy: greedy,
	}
}

// Greedy reports whether this sampler always takes the argmax.
func (s *Sampler) Greedy() bool { return s.greedy }

// Sample selects one index from scores. For a greedy sampler this is the
// argmax with lowest-index tie break. Otherwise scores are converted to a
// probability distribution by normalized exponentiation and one index is
// drawn proportionally; masked (-Inf) entries contribute exactly zero mass
// and can never be selected. If every entry is masked, Sample falls back to
// the argmax of the raw vector.
func (s *Sampler) Sample(scores []float32) int {
	if s.greedy {
		return Argmax(scores)
	}

	if cap(s.prob) < len(scores) {
		s.prob = make([]float64, len(scores))
	}
	prob := s.prob[:len(scores)]

	if sum := softmaxInto(prob, scores); sum == 0 {
		return Argmax(scores)
	}

	r := s.rng.Float64()
	var c float64
	last := 0
	for i, p := range prob {
		if p == 0 {
			continue
		}
		c += p
		last = i
		if r < c {
			return i
		}
	}
	// Rounding left a sliver of unassigned mass; charge it to the final
	// unmasked candidate.
	return last
}
