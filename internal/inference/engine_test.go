package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/calebwray/spindle/internal/tokenizer"
)

// scriptModel deterministically scores one scripted token per step: at step n
// (counted in generated tokens) the scripted id gets a dominant score and
// everything else stays at zero.
type scriptModel struct {
	promptLen int
	script    []int
	vocab     int
	calls     int
}

func (m *scriptModel) Forward(ctx context.Context, ids []int) ([]float32, error) {
	m.calls++
	step := len(ids) - m.promptLen
	if step < 0 {
		step = 0
	}
	if step >= len(m.script) {
		step = len(m.script) - 1
	}
	scores := make([]float32, m.vocab)
	scores[m.script[step]] = 10
	return scores, nil
}

// spreadModel returns a fixed non-trivial distribution regardless of input,
// so sampling strategies have real choices to make.
type spreadModel struct{ vocab int }

func (m spreadModel) Forward(ctx context.Context, ids []int) ([]float32, error) {
	scores := make([]float32, m.vocab)
	for i := range scores {
		scores[i] = float32(i%7) * 0.5
	}
	return scores, nil
}

type errOnCallModel struct {
	failOn int
	calls  int
}

func (m *errOnCallModel) Forward(ctx context.Context, ids []int) ([]float32, error) {
	m.calls++
	if m.calls == m.failOn {
		return nil, errors.New("forced forward failure")
	}
	return []float32{0, 1}, nil
}

type panicModel struct{}

func (panicModel) Forward(ctx context.Context, ids []int) ([]float32, error) {
	panic("boom")
}

func newScriptEngine(t *testing.T, prompt string, script []string) (*Engine, *scriptModel) {
	t.Helper()
	tok := tokenizer.NewByteTokenizer()
	ids, err := tok.Encode(prompt)
	if err != nil {
		t.Fatalf("encode prompt: %v", err)
	}
	scripted := make([]int, 0, len(script))
	for _, s := range script {
		if s == "<eos>" {
			scripted = append(scripted, tok.EOSID())
			continue
		}
		if len(s) != 1 {
			t.Fatalf("script tokens must be single bytes, got %q", s)
		}
		scripted = append(scripted, int(s[0]))
	}
	model := &scriptModel{promptLen: len(ids), script: scripted, vocab: tok.VocabSize()}

	reg := NewRegistry()
	reg.Register("stub", model, tok)
	return New(reg, DefaultLimits, nil), model
}

func collect(events *[]TokenEvent) EmitFunc {
	return func(ev TokenEvent) {
		*events = append(*events, ev)
	}
}

// A model scripted to emit 1 , 2 , EOS under greedy
// decoding with a budget of five tokens yields "1,2,", exactly five events,
// the last one terminal, and no model call after the EOS-bearing step.
func TestScenarioCountFromOneToThree(t *testing.T) {
	t.Parallel()

	eng, model := newScriptEngine(t, "Count from 1 to 3:", []string{"1", ",", "2", ",", "<eos>"})
	req := ResolveRequest(RequestOptions{
		Prompt:       "Count from 1 to 3:",
		Model:        "stub",
		Strategy:     "greedy",
		MaxNewTokens: intPtr(5),
	}, DefaultLimits)

	var events []TokenEvent
	res, err := eng.Generate(context.Background(), &req, collect(&events))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != "1,2," {
		t.Fatalf("text = %q, want %q", res.Text, "1,2,")
	}
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	for i, ev := range events[:4] {
		if ev.Finished {
			t.Fatalf("event %d unexpectedly terminal", i)
		}
	}
	last := events[4]
	if !last.Finished || last.Token != "" {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
	if res.FinishReason != FinishStop {
		t.Fatalf("finish reason = %q, want stop", res.FinishReason)
	}
	if model.calls != 5 {
		t.Fatalf("model called %d times, want 5", model.calls)
	}
}

// Greedy output must not depend on temperature.
func TestGreedyIgnoresTemperature(t *testing.T) {
	t.Parallel()

	var outputs []string
	for _, temp := range []float64{0.1, 1.0, 2.0} {
		eng, _ := newScriptEngine(t, "p", []string{"a", "b", "c", "<eos>"})
		req := ResolveRequest(RequestOptions{
			Prompt:      "p",
			Model:       "stub",
			Strategy:    "greedy",
			Temperature: float64Ptr(temp),
		}, DefaultLimits)
		res, err := eng.Generate(context.Background(), &req, nil)
		if err != nil {
			t.Fatalf("temp %v: %v", temp, err)
		}
		outputs = append(outputs, res.Text)
	}
	if outputs[0] != "abc" || outputs[1] != outputs[0] || outputs[2] != outputs[0] {
		t.Fatalf("greedy output varied with temperature: %q", outputs)
	}
}

// A model that never emits EOS must still terminate within max_new_tokens.
func TestTerminationWithinBudget(t *testing.T) {
	t.Parallel()

	eng, _ := newScriptEngine(t, "p", []string{"x"})
	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "stub",
		Strategy:     "greedy",
		MaxNewTokens: intPtr(7),
	}, DefaultLimits)

	var events []TokenEvent
	res, err := eng.Generate(context.Background(), &req, collect(&events))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(events) != 8 {
		t.Fatalf("got %d events, want 7 tokens + 1 terminal", len(events))
	}
	if res.FinishReason != FinishLength {
		t.Fatalf("finish reason = %q, want length", res.FinishReason)
	}
	if res.Text != strings.Repeat("x", 7) {
		t.Fatalf("text = %q", res.Text)
	}
}

// EOS on the very first step ends the generation after exactly one event no
// matter how large the budget is.
func TestEOSOnFirstStep(t *testing.T) {
	t.Parallel()

	eng, model := newScriptEngine(t, "p", []string{"<eos>"})
	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "stub",
		Strategy:     "greedy",
		MaxNewTokens: intPtr(500),
	}, DefaultLimits)

	var events []TokenEvent
	res, err := eng.Generate(context.Background(), &req, collect(&events))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(events) != 1 || !events[0].Finished {
		t.Fatalf("expected a single terminal event, got %+v", events)
	}
	if res.Text != "" {
		t.Fatalf("text = %q, want empty", res.Text)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times, want 1", model.calls)
	}
}

// The concatenation of streamed tokens must equal the aggregated text for the
// same request and seed, for a strategy that actually samples.
func TestStreamedEventsMatchAggregate(t *testing.T) {
	t.Parallel()

	tok := tokenizer.NewByteTokenizer()
	reg := NewRegistry()
	reg.Register("spread", spreadModel{vocab: tok.VocabSize()}, tok)
	eng := New(reg, DefaultLimits, nil)

	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "spread",
		Strategy:     "top-p",
		TopP:         float64Ptr(0.9),
		Temperature:  float64Ptr(0.8),
		MaxNewTokens: intPtr(16),
		Seed:         int64Ptr(1234),
	}, DefaultLimits)

	var events []TokenEvent
	res1, err := eng.Generate(context.Background(), &req, collect(&events))
	if err != nil {
		t.Fatalf("streaming run: %v", err)
	}
	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString(ev.Token)
	}
	if sb.String() != res1.Text {
		t.Fatalf("streamed concat %q != aggregate %q", sb.String(), res1.Text)
	}

	res2, err := eng.Generate(context.Background(), &req, nil)
	if err != nil {
		t.Fatalf("aggregate run: %v", err)
	}
	if res2.Text != res1.Text {
		t.Fatalf("same seed produced different text: %q vs %q", res2.Text, res1.Text)
	}
}

// Cancelling after n steps yields exactly n non-terminal events, one terminal
// event, and no further model calls.
func TestCancellationBetweenSteps(t *testing.T) {
	t.Parallel()

	eng, model := newScriptEngine(t, "p", []string{"x"})
	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "stub",
		Strategy:     "greedy",
		MaxNewTokens: intPtr(100),
	}, DefaultLimits)

	ctx, cancel := context.WithCancel(context.Background())
	var events []TokenEvent
	res, err := eng.Generate(ctx, &req, func(ev TokenEvent) {
		events = append(events, ev)
		if len(events) == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 3 tokens + 1 terminal", len(events))
	}
	if !events[3].Finished {
		t.Fatalf("last event not terminal: %+v", events[3])
	}
	if res.FinishReason != FinishCancelled {
		t.Fatalf("finish reason = %q, want cancelled", res.FinishReason)
	}
	if model.calls != 3 {
		t.Fatalf("model called %d times after cancel, want 3", model.calls)
	}
}

// A forward failure mid-loop surfaces as a typed error, distinct from normal
// completion, and halts emission without a terminal event (the transport
// layer turns it into an explicit error record).
func TestForwardErrorMidLoop(t *testing.T) {
	t.Parallel()

	tok := tokenizer.NewByteTokenizer()
	reg := NewRegistry()
	reg.Register("flaky", &errOnCallModel{failOn: 3}, tok)
	eng := New(reg, DefaultLimits, nil)

	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "flaky",
		Strategy:     "greedy",
		MaxNewTokens: intPtr(10),
	}, DefaultLimits)

	var events []TokenEvent
	_, err := eng.Generate(context.Background(), &req, collect(&events))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrForward) {
		t.Fatalf("error %v does not wrap ErrForward", err)
	}
	for _, ev := range events {
		if ev.Finished {
			t.Fatalf("terminal event emitted despite runtime error")
		}
	}
	if len(events) != 2 {
		t.Fatalf("got %d events before failure, want 2", len(events))
	}
}

func TestPanicInForwardBecomesError(t *testing.T) {
	t.Parallel()

	tok := tokenizer.NewByteTokenizer()
	reg := NewRegistry()
	reg.Register("panicky", panicModel{}, tok)
	eng := New(reg, DefaultLimits, nil)

	req := ResolveRequest(RequestOptions{
		Prompt:   "p",
		Model:    "panicky",
		Strategy: "greedy",
	}, DefaultLimits)

	var events []TokenEvent
	_, err := eng.Generate(context.Background(), &req, collect(&events))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrForward) {
		t.Fatalf("error %v does not wrap ErrForward", err)
	}
	if !strings.Contains(err.Error(), "panic in Forward") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events emitted before first-step failure: %+v", events)
	}
}

// An unknown model id must fail before any event is emitted.
func TestUnknownModelFailsFast(t *testing.T) {
	t.Parallel()

	eng := New(NewRegistry(), DefaultLimits, nil)
	req := ResolveRequest(RequestOptions{
		Prompt:   "p",
		Model:    "missing",
		Strategy: "greedy",
	}, DefaultLimits)

	var events []TokenEvent
	_, err := eng.Generate(context.Background(), &req, collect(&events))
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("error %v does not wrap ErrUnknownModel", err)
	}
	if len(events) != 0 {
		t.Fatalf("events emitted for unknown model: %+v", events)
	}
}

// Beam decoding is deterministic and honors the streaming contract.
func TestBeamDeterministicEvents(t *testing.T) {
	t.Parallel()

	tok := tokenizer.NewByteTokenizer()
	reg := NewRegistry()
	reg.Register("spread", spreadModel{vocab: tok.VocabSize()}, tok)
	eng := New(reg, DefaultLimits, nil)

	req := ResolveRequest(RequestOptions{
		Prompt:       "p",
		Model:        "spread",
		Strategy:     "beam",
		NumBeams:     intPtr(3),
		MaxNewTokens: intPtr(6),
	}, DefaultLimits)

	var first []TokenEvent
	res1, err := eng.Generate(context.Background(), &req, collect(&first))
	if err != nil {
		t.Fatalf("first beam run: %v", err)
	}
	var second []TokenEvent
	res2, err := eng.Generate(context.Background(), &req, collect(&second))
	if err != nil {
		t.Fatalf("second beam run: %v", err)
	}
	if res1.Text != res2.Text {
		t.Fatalf("beam runs diverged: %q vs %q", res1.Text, res2.Text)
	}
	if len(first) != len(second) {
		t.Fatalf("event counts diverged: %d vs %d", len(first), len(second))
	}
	if !first[len(first)-1].Finished {
		t.Fatalf("missing terminal event")
	}
}

func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
