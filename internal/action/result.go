package action

import (
	"encoding/json"
	"fmt"
)

// Outcome tags a Result as one of its two variants.
type Outcome string

const (
	// OutcomeSubmitted means the external submitter accepted the action
	// and returned a reference.
	OutcomeSubmitted Outcome = "submitted"

	// OutcomeError means the external submitter failed; the attempt is
	// still durably recorded.
	OutcomeError Outcome = "error"
)

// Result is the terminal outcome stored on an execution. It is a tagged
// union: a submitted result carries Ref, an error result carries Code and
// Message. Exactly one variant is populated.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Ref     string  `json:"ref,omitempty"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Submitted builds the success variant.
func Submitted(ref string) Result {
	return Result{Outcome: OutcomeSubmitted, Ref: ref}
}

// Failed builds the error variant.
func Failed(code, message string) Result {
	return Result{Outcome: OutcomeError, Code: code, Message: message}
}

// MarshalResult serializes a result for storage.
func MarshalResult(r Result) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

// UnmarshalResult deserializes a stored result, rejecting unknown outcome
// tags so that corrupt rows surface instead of round-tripping silently.
func UnmarshalResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	switch r.Outcome {
	case OutcomeSubmitted, OutcomeError:
		return r, nil
	default:
		return Result{}, fmt.Errorf("unmarshal result: unknown outcome %q", r.Outcome)
	}
}
