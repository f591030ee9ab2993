package api

import "github.com/calebwray/spindle/internal/inference"

// GenerateRequest is the body of /api/llm/generate and
// /api/llm/generate_stream. Pointer fields distinguish "absent" from zero so
// engine defaults apply only when the caller said nothing.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	ModelID  string `json:"model_id"`
	Strategy string `json:"strategy"`

	MaxNewTokens *int     `json:"max_new_tokens"`
	Temperature  *float64 `json:"temperature"`
	TopK         *int     `json:"top_k"`
	TopP         *float64 `json:"top_p"`
	NumBeams     *int     `json:"num_beams"`
	Seed         *int64   `json:"seed"`
}

func (r *GenerateRequest) toOptions() inference.RequestOptions {
	return inference.RequestOptions{
		Prompt:       r.Prompt,
		Model:        r.ModelID,
		Strategy:     r.Strategy,
		MaxNewTokens: r.MaxNewTokens,
		Temperature:  r.Temperature,
		TopK:         r.TopK,
		TopP:         r.TopP,
		NumBeams:     r.NumBeams,
		Seed:         r.Seed,
	}
}

// GenerateResponse is the non-streaming result: the full aggregated text.
type GenerateResponse struct {
	ID              string  `json:"id"`
	ModelID         string  `json:"model_id"`
	Strategy        string  `json:"strategy"`
	Text            string  `json:"text"`
	TokensGenerated int     `json:"tokens_generated"`
	FinishReason    string  `json:"finish_reason"`
	DurationMS      int64   `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

// streamRecord is one NDJSON line of a streaming generation. A normal line
// carries a token; the last line has finished=true and an empty token, or an
// error in place of the terminal record when the generation failed mid-loop.
type streamRecord struct {
	Token    string `json:"token"`
	ID       *int   `json:"id,omitempty"`
	Finished bool   `json:"finished"`
	Error    string `json:"error,omitempty"`
}

type TokenizeRequest struct {
	Text       string   `json:"text"`
	Tokenizers []string `json:"tokenizers"`
}

// TokenizeResult is the per-tokenizer breakdown of one tokenize call.
type TokenizeResult struct {
	Tokens           []int    `json:"tokens"`
	DecodedTokens    []string `json:"decoded_tokens"`
	Count            int      `json:"count"`
	CharToTokenRatio float64  `json:"char_to_token_ratio"`
}

type HealthResponse struct {
	Status     string   `json:"status"`
	Models     []string `json:"models"`
	Tokenizers int      `json:"tokenizers"`
	Version    string   `json:"version"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
