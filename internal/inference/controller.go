package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calebwray/spindle/internal/logits"
)

// generation is the mutable state of one in-flight request: the append-only
// token-id sequence, the step counter, and the aggregated text. It is owned
// exclusively by a single Generate call and discarded once the terminal event
// has been emitted.
type generation struct {
	engine    *Engine
	entry     *ModelEntry
	req       *Request
	promptIDs []int
	emit      EmitFunc

	ids      []int
	steps    int
	finished bool
	text     strings.Builder
	stats    Stats
	scratch  []float32
}

func (g *generation) send(ev TokenEvent) {
	if g.emit != nil {
		g.emit(ev)
	}
}

// finish emits the single terminal event and marks the state machine
// Finished. Safe to call once per generation only; the finished flag guards
// against double emission.
func (g *generation) finish() {
	if g.finished {
		return
	}
	g.finished = true
	g.send(TokenEvent{Token: "", ID: -1, Finished: true})
}

func (g *generation) emitToken(id int) error {
	text, err := safeDecode(g.entry.tok, []int{id})
	if err != nil {
		return fmt.Errorf("decode token %d: %w", id, err)
	}
	g.text.WriteString(text)
	g.stats.TokensGenerated++
	g.send(TokenEvent{Token: text, ID: id, Finished: false})
	return nil
}

// seedFromRequest returns the RNG seed for this generation. Requests without
// an explicit seed draw one from the clock; tests always pass one.
func (g *generation) seedFromRequest() int64 {
	if g.req.Seed >= 0 {
		return g.req.Seed
	}
	return time.Now().UnixNano()
}

// policyForStrategy resolves the filtering policy once per request; the step
// loop never re-branches on the strategy name.
func (g *generation) policyForStrategy() logits.Policy {
	switch g.req.Strategy {
	case StrategyTopK:
		return &logits.TopKPolicy{K: g.req.TopK}
	case StrategyTopP:
		return &logits.TopPPolicy{P: g.req.TopP}
	default:
		return logits.GreedyPolicy{}
	}
}

// runSampling drives the Seeding → Stepping* → Finished machine for the
// greedy, top-k and top-p strategies.
func (g *generation) runSampling(ctx context.Context) (FinishReason, error) {
	greedy := g.req.Strategy == StrategyGreedy
	policy := g.policyForStrategy()
	g.stats.Seed = g.seedFromRequest()
	sampler := logits.NewSampler(g.stats.Seed, greedy)
	eos := g.entry.tok.EOSID()

	g.ids = append(g.ids, g.promptIDs...)

	for g.steps = 0; g.steps < g.req.MaxNewTokens; g.steps++ {
		// Cancellation is observed between steps, never mid-forward-pass.
		if ctx.Err() != nil {
			g.finish()
			return FinishCancelled, nil
		}

		scores, err := g.entry.forward(ctx, g.ids)
		if err != nil {
			return "", err
		}

		// Policies mask a scratch copy so the model's vector stays intact.
		if cap(g.scratch) < len(scores) {
			g.scratch = make([]float32, len(scores))
		}
		scratch := g.scratch[:len(scores)]
		copy(scratch, scores)

		// Greedy takes the raw argmax: temperature must not influence a
		// deterministic choice.
		if !greedy {
			if err := logits.Temperature(scratch, float32(g.req.Temperature)); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
		}
		policy.Filter(scratch)
		next := sampler.Sample(scratch)

		if next == eos {
			g.finish()
			return FinishStop, nil
		}

		g.ids = append(g.ids, next)
		if err := g.emitToken(next); err != nil {
			return "", err
		}
	}

	g.finish()
	return FinishLength, nil
}

// runBeam drives the same state machine for beam search. The policy keeps
// num_beams hypotheses alive; the event stream surfaces the newest token of
// the top-ranked hypothesis after each step, so streaming and aggregated
// output stay identical by construction.
func (g *generation) runBeam(ctx context.Context) (FinishReason, error) {
	policy := &logits.BeamPolicy{Width: g.req.NumBeams}
	g.stats.Seed = g.req.Seed
	beams := policy.Start()
	eos := g.entry.tok.EOSID()

	vectors := make([][]float32, 0, g.req.NumBeams)

	for g.steps = 0; g.steps < g.req.MaxNewTokens; g.steps++ {
		if ctx.Err() != nil {
			g.finish()
			return FinishCancelled, nil
		}

		vectors = vectors[:0]
		for _, beam := range beams {
			seq := make([]int, 0, len(g.promptIDs)+len(beam.IDs))
			seq = append(seq, g.promptIDs...)
			seq = append(seq, beam.IDs...)

			scores, err := g.entry.forward(ctx, seq)
			if err != nil {
				return "", err
			}
			vec := make([]float32, len(scores))
			copy(vec, scores)
			if err := logits.Temperature(vec, float32(g.req.Temperature)); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			vectors = append(vectors, vec)
		}

		beams = policy.Advance(beams, vectors)
		next := beams[0].Last()

		if next < 0 || next == eos {
			g.finish()
			return FinishStop, nil
		}
		if err := g.emitToken(next); err != nil {
			return "", err
		}
	}

	g.finish()
	return FinishLength, nil
}
