// Package toy provides a tiny deterministic language model. It exists so the
// CLI and the HTTP service have a model to run without loading real weights,
// and so tests can exercise the full decoding path end to end.
package toy

import (
	"context"
	"fmt"
	"math/rand"
)

// LM is a minimal next-token scorer: an embedding matrix, a projection back
// to vocabulary logits, and a bias. The hidden state is an exponentially
// decayed average of the sequence's embeddings, so the scores genuinely
// depend on the whole id sequence while staying cheap to compute. Weights are
// filled deterministically from the seed; two models built with the same
// shape and seed are identical.
//
// LM is read-only after construction and safe for concurrent Forward calls.
type LM struct {
	vocab  int
	hidden int
	emb    []float32 // vocab*hidden, row per token
	proj   []float32 // hidden*vocab, row per hidden unit
	bias   []float32 // vocab
}

const decay = 0.8

// NewLM builds a model with the given vocabulary and hidden size.
func NewLM(vocab, hidden int, seed int64) *LM {
	m := &LM{
		vocab:  vocab,
		hidden: hidden,
		emb:    make([]float32, vocab*hidden),
		proj:   make([]float32, hidden*vocab),
		bias:   make([]float32, vocab),
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range m.emb {
		m.emb[i] = float32(rng.NormFloat64()) * 0.3
	}
	for i := range m.proj {
		m.proj[i] = float32(rng.NormFloat64()) * 0.3
	}
	return m
}

func (m *LM) VocabSize() int { return m.vocab }

// Forward returns the next-token score vector for the position following ids.
// Out-of-range ids are rejected rather than wrapped: the engine only feeds
// back ids it sampled from this model's own vocabulary.
func (m *LM) Forward(ctx context.Context, ids []int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("toy: empty id sequence")
	}

	h := make([]float32, m.hidden)
	for _, id := range ids {
		if id < 0 || id >= m.vocab {
			return nil, fmt.Errorf("toy: id %d outside vocabulary of %d", id, m.vocab)
		}
		row := m.emb[id*m.hidden : (id+1)*m.hidden]
		for j := range h {
			h[j] = h[j]*decay + row[j]*(1-decay)
		}
	}

	scores := make([]float32, m.vocab)
	copy(scores, m.bias)
	for j := 0; j < m.hidden; j++ {
		hj := h[j]
		if hj == 0 {
			continue
		}
		row := m.proj[j*m.vocab : (j+1)*m.vocab]
		for v := range scores {
			scores[v] += hj * row[v]
		}
	}
	return scores, nil
}
