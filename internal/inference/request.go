package inference

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Strategy selects the filtering policy for a generation. Exactly one
// strategy is active per request; parameters irrelevant to it are ignored,
// not validated.
type Strategy string

const (
	StrategyGreedy Strategy = "greedy"
	StrategyTopK   Strategy = "top-k"
	StrategyTopP   Strategy = "top-p"
	StrategyBeam   Strategy = "beam"
)

// ParseStrategy maps a wire-format strategy name to a Strategy. Unrecognized
// values fall back to greedy rather than erroring.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-k", "top_k", "topk":
		return StrategyTopK
	case "top-p", "top_p", "topp", "nucleus":
		return StrategyTopP
	case "beam", "beam-search", "beam_search":
		return StrategyBeam
	default:
		return StrategyGreedy
	}
}

// Request is a fully resolved generation request. Build one with
// ResolveRequest so unset fields pick up defaults, then the engine validates
// it before the first forward pass.
type Request struct {
	Prompt   string
	Model    string
	Strategy Strategy

	MaxNewTokens int
	Temperature  float64
	TopK         int
	TopP         float64
	NumBeams     int
	Seed         int64
}

// RequestOptions carries caller-supplied values; nil means "use the default".
type RequestOptions struct {
	Prompt   string
	Model    string
	Strategy string

	MaxNewTokens *int
	Temperature  *float64
	TopK         *int
	TopP         *float64
	NumBeams     *int
	Seed         *int64
}

// Defaults are the engine-level generation defaults and limits, typically
// sourced from the config file.
type Defaults struct {
	MaxNewTokens        int // default step budget when the request omits one
	MaxNewTokensCeiling int // hard upper bound; larger requests are clamped
	MaxPromptChars      int
	Temperature         float64
	TopK                int
	TopP                float64
	NumBeams            int
}

// DefaultLimits mirrors the original service's defaults.
var DefaultLimits = Defaults{
	MaxNewTokens:        64,
	MaxNewTokensCeiling: 512,
	MaxPromptChars:      10000,
	Temperature:         1.0,
	TopK:                40,
	TopP:                0.95,
	NumBeams:            4,
}

// ResolveRequest merges caller options over defaults into a concrete Request.
// MaxNewTokens is clamped to the configured ceiling rather than rejected.
func ResolveRequest(opts RequestOptions, defaults Defaults) Request {
	if defaults.MaxNewTokens <= 0 {
		defaults.MaxNewTokens = DefaultLimits.MaxNewTokens
	}
	if defaults.MaxNewTokensCeiling <= 0 {
		defaults.MaxNewTokensCeiling = DefaultLimits.MaxNewTokensCeiling
	}
	if defaults.Temperature <= 0 {
		defaults.Temperature = DefaultLimits.Temperature
	}
	if defaults.TopK <= 0 {
		defaults.TopK = DefaultLimits.TopK
	}
	if defaults.TopP <= 0 {
		defaults.TopP = DefaultLimits.TopP
	}
	if defaults.NumBeams <= 0 {
		defaults.NumBeams = DefaultLimits.NumBeams
	}

	req := Request{
		Prompt:       opts.Prompt,
		Model:        opts.Model,
		Strategy:     ParseStrategy(opts.Strategy),
		MaxNewTokens: defaults.MaxNewTokens,
		Temperature:  defaults.Temperature,
		TopK:         defaults.TopK,
		TopP:         defaults.TopP,
		NumBeams:     defaults.NumBeams,
		Seed:         -1,
	}

	if opts.MaxNewTokens != nil {
		req.MaxNewTokens = *opts.MaxNewTokens
	}
	if req.MaxNewTokens > defaults.MaxNewTokensCeiling {
		req.MaxNewTokens = defaults.MaxNewTokensCeiling
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.NumBeams != nil {
		req.NumBeams = *opts.NumBeams
	}
	if opts.Seed != nil {
		req.Seed = *opts.Seed
	}

	return req
}

// Validate checks the request against the ranges the engine requires. Only
// parameters relevant to the active strategy are checked. Every failure wraps
// ErrInvalidRequest.
func (r *Request) Validate(defaults Defaults) error {
	maxChars := defaults.MaxPromptChars
	if maxChars <= 0 {
		maxChars = DefaultLimits.MaxPromptChars
	}

	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(r.Prompt) > maxChars {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidRequest, maxChars)
	}
	if r.MaxNewTokens <= 0 {
		return fmt.Errorf("%w: max_new_tokens must be positive", ErrInvalidRequest)
	}
	if r.Temperature <= 0 {
		return fmt.Errorf("%w: temperature must be positive", ErrInvalidRequest)
	}

	switch r.Strategy {
	case StrategyTopK:
		if r.TopK <= 0 {
			return fmt.Errorf("%w: top_k must be positive", ErrInvalidRequest)
		}
	case StrategyTopP:
		if r.TopP < 0 || r.TopP > 1 {
			return fmt.Errorf("%w: top_p must be in [0,1]", ErrInvalidRequest)
		}
	case StrategyBeam:
		if r.NumBeams <= 0 {
			return fmt.Errorf("%w: num_beams must be positive", ErrInvalidRequest)
		}
	}
	return nil
}
