package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Generator produces text from a prompt. Implementations return the raw
// model output; callers decide how to parse it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ParseResult is the outcome of parsing generator output: either the parsed
// value, or the caller-supplied fallback when the output was unusable.
type ParseResult[T any] struct {
	Value    T
	Fallback bool
	Err      error // why the fallback was used
}

// Ok reports whether Value came from the generator output
func (r ParseResult[T]) Ok() bool {
	return !r.Fallback
}

// ParseJSON parses fenced or unfenced JSON from raw into T. When that fails
// the result carries fallback instead. It never panics and never returns an
// invalid value.
func ParseJSON[T any](raw string, fallback T) ParseResult[T] {
	body := StripFences(raw)
	if body == "" {
		return ParseResult[T]{Value: fallback, Fallback: true, Err: errors.New("empty generator output")}
	}

	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		// Models sometimes wrap the object in prose; try the outermost braces
		if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
			var inner T
			if err2 := json.Unmarshal([]byte(body[start:end+1]), &inner); err2 == nil {
				return ParseResult[T]{Value: inner}
			}
		}
		return ParseResult[T]{Value: fallback, Fallback: true, Err: err}
	}
	return ParseResult[T]{Value: v}
}

// StripFences removes a surrounding markdown code fence such as ```json ... ```
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ErrUnavailable is returned when no language model is configured
var ErrUnavailable = errors.New("no generator configured")

// Unavailable stands in for a generator when no API key is set. Every
// caller already has a fallback for generator errors.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
