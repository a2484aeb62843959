// Package parse extracts a JSON object from raw model output, which may be
// wrapped in prose before and after the object.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoObject means the text contains no opening brace.
	ErrNoObject = errors.New("no JSON object found")
	// ErrIncomplete means the brace depth never returned to zero, which is
	// what truncated model output looks like.
	ErrIncomplete = errors.New("incomplete JSON object")
)

type scanState int

const (
	seekingStart scanState = iota
	inObject
)

// ExtractObject locates the first top-level JSON object in raw and returns
// the exact substring holding it. Brace characters inside JSON strings do not
// affect the depth count.
func ExtractObject(raw string) (json.RawMessage, error) {
	state := seekingStart
	depth := 0
	start := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]

		if state == inObject && inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch state {
		case seekingStart:
			if ch == '{' {
				state = inObject
				depth = 1
				start = i
			}
		case inObject:
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := raw[start : i+1]
					if !json.Valid([]byte(candidate)) {
						return nil, fmt.Errorf("extracted object is not valid JSON: %w", ErrIncomplete)
					}
					return json.RawMessage(candidate), nil
				}
			}
		}
	}

	if state == inObject {
		return nil, ErrIncomplete
	}
	return nil, ErrNoObject
}

// ExtractInto extracts the first JSON object and unmarshals it into dst.
func ExtractInto(raw string, dst any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj, dst)
}

// RequireKeys verifies that obj is a JSON object carrying every named
// top-level key.
func RequireKeys(obj json.RawMessage, keys ...string) error {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(obj, &decoded); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	for _, key := range keys {
		if _, ok := decoded[key]; !ok {
			return fmt.Errorf("missing required key %q", key)
		}
	}
	return nil
}

// Status tags an Outcome.
type Status string

const (
	StatusOk       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Outcome is the tagged result of parsing model output. Degraded carries a
// static fallback object together with the reason the real output was
// unusable, so callers can decide whether to surface the degradation.
type Outcome struct {
	Status Status
	Data   json.RawMessage
	Reason string
}

// Ok wraps successfully parsed data.
func Ok(data json.RawMessage) Outcome {
	return Outcome{Status: StatusOk, Data: data}
}

// Degraded wraps a fallback object substituted for unusable model output.
func Degraded(fallback json.RawMessage, reason string) Outcome {
	return Outcome{Status: StatusDegraded, Data: fallback, Reason: reason}
}

// Failed records an unrecoverable parse failure.
func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// IsUsable reports whether the outcome carries data a caller may persist.
func (o Outcome) IsUsable() bool {
	return o.Status == StatusOk || o.Status == StatusDegraded
}
