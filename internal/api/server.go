package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/calebwray/spindle/internal/inference"
	"github.com/calebwray/spindle/internal/logger"
	"github.com/calebwray/spindle/internal/tokenizer"
	"github.com/calebwray/spindle/internal/version"
)

// Server exposes the generation engine and the tokenizer catalog over HTTP.
type Server struct {
	engine  *inference.Engine
	catalog *tokenizer.Catalog
	log     logger.Logger
}

func NewServer(engine *inference.Engine, catalog *tokenizer.Catalog, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		engine:  engine,
		catalog: catalog,
		log:     log,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)

	e.POST("/api/llm/generate", s.handleGenerate)
	e.POST("/api/llm/generate_stream", s.handleGenerateStream)

	e.GET("/api/tokenizers", s.handleListTokenizers)
	e.POST("/api/tokenize", s.handleTokenize)
}

func (s *Server) handleRoot(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "spindle",
		"version": version.String(),
		"endpoints": map[string]string{
			"/api/llm/generate":        "generate text (non-streaming)",
			"/api/llm/generate_stream": "generate text (NDJSON stream)",
			"/api/tokenizers":          "list available tokenizers",
			"/api/tokenize":            "tokenize text",
			"/health":                  "service health",
		},
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Models:     s.engine.Registry().IDs(),
		Tokenizers: len(s.catalog.List()),
		Version:    version.String(),
	})
}

// resolveGenerate decodes, resolves and front-validates a generation request
// so both endpoints reject bad requests with a plain HTTP error before any
// token is produced.
func (s *Server) resolveGenerate(c *echo.Context) (inference.Request, error) {
	body, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return inference.Request{}, newInvalidRequest(fmt.Sprintf("decode request: %v", err))
	}
	req := inference.ResolveRequest(body.toOptions(), s.engine.Defaults())
	if err := req.Validate(s.engine.Defaults()); err != nil {
		return inference.Request{}, err
	}
	if _, err := s.engine.Registry().Lookup(req.Model); err != nil {
		return inference.Request{}, err
	}
	return req, nil
}

func (s *Server) handleGenerate(c *echo.Context) error {
	req, err := s.resolveGenerate(c)
	if err != nil {
		return s.writeGenerateError(c, err)
	}

	res, err := s.engine.Generate(c.Request().Context(), &req, nil)
	if err != nil {
		return s.writeGenerateError(c, err)
	}

	return c.JSON(http.StatusOK, GenerateResponse{
		ID:              "gen_" + uuid.NewString(),
		ModelID:         req.Model,
		Strategy:        string(req.Strategy),
		Text:            res.Text,
		TokensGenerated: res.Stats.TokensGenerated,
		FinishReason:    string(res.FinishReason),
		DurationMS:      res.Stats.Duration.Milliseconds(),
		TokensPerSecond: res.Stats.TPS,
	})
}

func (s *Server) handleGenerateStream(c *echo.Context) error {
	req, err := s.resolveGenerate(c)
	if err != nil {
		return s.writeGenerateError(c, err)
	}

	writer, err := NewNDJSONStreamWriter(c)
	if err != nil {
		return writeServerError(c, err.Error())
	}

	_, err = s.engine.Generate(c.Request().Context(), &req, func(ev inference.TokenEvent) {
		if werr := writer.Emit(ev); werr != nil {
			s.log.Warn("stream write failed", "error", werr)
		}
	})
	if err != nil {
		// Mid-stream failures become an explicit error record; the consumer
		// never sees a stream that just stops.
		if writer.Started() {
			_ = writer.Fail(err)
			return nil
		}
		return s.writeGenerateError(c, err)
	}
	return nil
}

func (s *Server) writeGenerateError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, inference.ErrUnknownModel):
		return writeNotFound(c, err.Error())
	case errors.Is(err, inference.ErrInvalidRequest), errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	default:
		s.log.Error("generation failed", "error", err)
		return writeServerError(c, err.Error())
	}
}

func (s *Server) handleListTokenizers(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.catalog.List())
}

const maxTokenizeChars = 10000

func (s *Server) handleTokenize(c *echo.Context) error {
	req, err := decodeJSON[TokenizeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("decode request: %v", err))
	}
	if req.Text == "" {
		return writeBadRequest(c, "text cannot be empty")
	}
	if utf8.RuneCountInString(req.Text) > maxTokenizeChars {
		return writeBadRequest(c, fmt.Sprintf("text exceeds %d characters", maxTokenizeChars))
	}
	if len(req.Tokenizers) == 0 {
		return writeBadRequest(c, "at least one tokenizer is required")
	}

	results := make(map[string]TokenizeResult, len(req.Tokenizers))
	for _, id := range req.Tokenizers {
		tok, ok := s.catalog.Get(id)
		if !ok {
			valid := make([]string, 0)
			for _, info := range s.catalog.List() {
				valid = append(valid, info.ID)
			}
			return writeBadRequest(c, fmt.Sprintf("invalid tokenizer: %s. Valid options: %s", id, strings.Join(valid, ", ")))
		}

		ids, err := tok.Encode(req.Text)
		if err != nil {
			return writeServerError(c, fmt.Sprintf("tokenizer %s: %v", id, err))
		}
		decoded := make([]string, 0, len(ids))
		for _, tid := range ids {
			text, err := tok.Decode([]int{tid})
			if err != nil {
				return writeServerError(c, fmt.Sprintf("tokenizer %s: %v", id, err))
			}
			decoded = append(decoded, text)
		}

		ratio := 0.0
		if len(ids) > 0 {
			ratio = float64(utf8.RuneCountInString(req.Text)) / float64(len(ids))
		}
		results[id] = TokenizeResult{
			Tokens:           ids,
			DecodedTokens:    decoded,
			Count:            len(ids),
			CharToTokenRatio: ratio,
		}
	}

	return c.JSON(http.StatusOK, results)
}
