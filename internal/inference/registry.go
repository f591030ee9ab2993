package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/calebwray/spindle/internal/tokenizer"
)

// Registry maps model ids to loaded Model/Tokenizer pairs. Models are shared
// read-only across requests; each entry carries the mutex that serializes
// forward passes against that model instance.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*ModelEntry
}

// ModelEntry is one loaded model with its tokenizer. fwdMu is held only for
// the duration of a single forward pass, never across a request lifetime:
// encode, decode, filtering and sampling all proceed concurrently across
// requests.
type ModelEntry struct {
	id    string
	model Model
	tok   tokenizer.Tokenizer
	fwdMu sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*ModelEntry)}
}

// Register adds a model under id, replacing any existing registration.
func (r *Registry) Register(id string, model Model, tok tokenizer.Tokenizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		r.order = append(r.order, id)
	}
	r.entries[id] = &ModelEntry{id: id, model: model, tok: tok}
}

// Lookup resolves a model id, or ErrUnknownModel when it was never
// registered.
func (r *Registry) Lookup(id string) (*ModelEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return entry, nil
}

// IDs returns every registered model id in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tokenizer returns the tokenizer paired with this model.
func (e *ModelEntry) Tokenizer() tokenizer.Tokenizer { return e.tok }

// forward runs one serialized forward pass. A panicking model surfaces as an
// ErrForward-wrapped error instead of taking the process down.
func (e *ModelEntry) forward(ctx context.Context, ids []int) (scores []float32, err error) {
	e.fwdMu.Lock()
	defer e.fwdMu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic in Forward: %v", ErrForward, rec)
		}
	}()
	scores, err = e.model.Forward(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForward, err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: empty score vector", ErrForward)
	}
	return scores, nil
}

// safeEncode guards the tokenizer collaborator the same way forward guards
// the model.
func safeEncode(tok tokenizer.Tokenizer, text string) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.Encode(text)
}

func safeDecode(tok tokenizer.Tokenizer, ids []int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Decode: %v", rec)
		}
	}()
	return tok.Decode(ids)
}
