package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/calebwray/spindle/internal/inference"
)

// NDJSONStreamWriter frames TokenEvents as newline-delimited JSON, one record
// per line, flushed per event so the caller observes tokens as they are
// produced. Records go out in exactly the order the engine emitted them;
// there is no batching or reordering.
type NDJSONStreamWriter struct {
	w       io.Writer
	flusher func()
	started bool
}

func NewNDJSONStreamWriter(c *echo.Context) (*NDJSONStreamWriter, error) {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set("Cache-Control", "no-cache")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	return &NDJSONStreamWriter{
		w:       res,
		flusher: flusher.Flush,
	}, nil
}

// Started reports whether any record has been written; once true the HTTP
// status is committed and errors must be framed in-stream.
func (s *NDJSONStreamWriter) Started() bool {
	return s.started
}

// Emit writes one event record. The terminal event keeps its empty token and
// drops the id field.
func (s *NDJSONStreamWriter) Emit(ev inference.TokenEvent) error {
	rec := streamRecord{
		Token:    ev.Token,
		Finished: ev.Finished,
	}
	if !ev.Finished {
		id := ev.ID
		rec.ID = &id
	}
	return s.send(rec)
}

// Fail writes an explicit error record in place of the terminal event. The
// stream never just stops: a consumer always sees either finished=true or an
// error.
func (s *NDJSONStreamWriter) Fail(err error) error {
	return s.send(streamRecord{
		Finished: true,
		Error:    err.Error(),
	})
}

func (s *NDJSONStreamWriter) send(rec streamRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.started = true
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return err
	}
	s.flusher()
	return nil
}
