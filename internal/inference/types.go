package inference

import (
	"context"
	"errors"
	"time"
)

// Model is the forward-pass collaborator: given the full ordered token-id
// sequence so far, it returns the score (logit) vector over the vocabulary
// for the next position. Implementations are stateless between calls from the
// engine's perspective and are shared read-only across requests; the engine
// serializes concurrent forward passes per model instance.
type Model interface {
	Forward(ctx context.Context, ids []int) ([]float32, error)
}

// TokenEvent is the unit of the streaming protocol: one newly chosen token's
// surface text and id, produced exactly once per step and consumed in the
// order produced. The terminal event carries an empty token, ID -1, and
// Finished=true, and is always the last event of a generation.
type TokenEvent struct {
	Token    string `json:"token"`
	ID       int    `json:"id"`
	Finished bool   `json:"finished"`
}

// EmitFunc receives each TokenEvent as the controller produces it. It is
// called from the generation goroutine; implementations must not block
// indefinitely.
type EmitFunc func(TokenEvent)

// FinishReason records why a generation reached the Finished state.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"      // EOS token chosen
	FinishLength    FinishReason = "length"    // max_new_tokens exhausted
	FinishCancelled FinishReason = "cancelled" // caller cancelled between steps
)

type Stats struct {
	TokensGenerated int
	Seed            int64 // resolved RNG seed; rerunning with it reproduces the output
	Duration        time.Duration
	TPS             float64
}

// Result is what the aggregating (non-streaming) consumer sees: the
// concatenation of every emitted token text, in emission order.
type Result struct {
	Text         string
	FinishReason FinishReason
	Stats        Stats
}

var (
	// ErrUnknownModel is a configuration error: the request named a model
	// id that is not registered. Rejected before any event is emitted.
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrForward wraps runtime failures of the model's forward pass. Tokens
	// already emitted remain valid; no further events follow.
	ErrForward = errors.New("forward pass failed")
)
