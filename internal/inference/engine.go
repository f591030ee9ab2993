package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/calebwray/spindle/internal/logger"
)

// Engine owns the loaded models and drives the decoding loop. One engine
// produces one ordered TokenEvent sequence per request; a streaming caller
// forwards each event as it arrives and a non-streaming caller reads the
// aggregated Result, so the generation logic is never duplicated.
type Engine struct {
	registry *Registry
	defaults Defaults
	log      logger.Logger
}

func New(registry *Registry, defaults Defaults, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		registry: registry,
		defaults: defaults,
		log:      log,
	}
}

func (e *Engine) Defaults() Defaults { return e.defaults }
func (e *Engine) Registry() *Registry { return e.registry }

// Generate runs the full decoding state machine for req: seed state from the
// encoded prompt, step until a stopping condition, emit one TokenEvent per
// step plus exactly one terminal event. Configuration and validation failures
// return before any event is emitted. A forward-pass failure mid-loop returns
// an ErrForward-wrapped error and emits nothing further; events already
// delivered remain valid. Cancellation is not an error: the controller
// finishes with a terminal event and returns the partial result.
func (e *Engine) Generate(ctx context.Context, req *Request, emit EmitFunc) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if err := req.Validate(e.defaults); err != nil {
		return nil, err
	}

	entry, err := e.registry.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	if entry.model == nil || entry.tok == nil {
		return nil, fmt.Errorf("%w: %q has no model or tokenizer attached", ErrUnknownModel, req.Model)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	promptIDs, err := safeEncode(entry.tok, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}

	g := &generation{
		engine:    e,
		entry:     entry,
		req:       req,
		promptIDs: promptIDs,
		emit:      emit,
	}

	start := time.Now()
	var reason FinishReason
	if req.Strategy == StrategyBeam {
		reason, err = g.runBeam(ctx)
	} else {
		reason, err = g.runSampling(ctx)
	}
	if err != nil {
		return nil, err
	}

	g.stats.Duration = time.Since(start)
	if secs := g.stats.Duration.Seconds(); secs > 0 {
		g.stats.TPS = float64(g.stats.TokensGenerated) / secs
	}

	e.log.Debug("generation finished",
		"model", req.Model,
		"strategy", string(req.Strategy),
		"tokens", g.stats.TokensGenerated,
		"reason", string(reason),
	)

	return &Result{
		Text:         g.text.String(),
		FinishReason: reason,
		Stats:        g.stats,
	}, nil
}
