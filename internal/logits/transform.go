package logits

import (
	"fmt"
	"math"
)

// NegInf is the mask value written over filtered-out entries. After softmax a
// masked entry carries exactly zero probability.
var NegInf = float32(math.Inf(-1))

// Temperature divides every score by temp, in place. temp closer to zero
// sharpens the distribution, temp above one flattens it. The caller must have
// validated temp > 0 before entering the generation loop; a non-positive temp
// here is a programming error.
func Temperature(scores []float32, temp float32) error {
	if temp <= 0 {
		return fmt.Errorf("temperature must be positive, got %v", temp)
	}
	if temp == 1 {
		return nil
	}
	inv := 1 / temp
	for i := range scores {
		scores[i] *= inv
	}
	return nil
}

// Argmax returns the index of the maximum score. Ties break toward the lowest
// index so greedy decoding is deterministic. Panics on an empty slice.
func Argmax(scores []float32) int {
	if len(scores) == 0 {
		panic("logits: argmax of empty slice")
	}
	bestI := 0
	bestV := scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > bestV {
			bestV = scores[i]
			bestI = i
		}
	}
	return bestI
}

// softmaxInto writes the normalized probabilities of scores into dst, skipping
// masked (-Inf) entries, which receive exactly zero. The max score is
// subtracted before exponentiation for numerical stability. Returns the
// probability sum before normalization; a zero sum means every entry was
// masked.
func softmaxInto(dst []float64, scores []float32) float64 {
	maxv := NegInf
	for _, v := range scores {
		if v > maxv {
			maxv = v
		}
	}
	if math.IsInf(float64(maxv), -1) {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}
	var sum float64
	for i, v := range scores {
		if math.IsInf(float64(v), -1) {
			dst[i] = 0
			continue
		}
		e := math.Exp(float64(v - maxv))
		dst[i] = e
		sum += e
	}
	if sum > 0 {
		inv := 1 / sum
		for i := range dst {
			dst[i] *= inv
		}
	}
	return sum
}
