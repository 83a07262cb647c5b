package analyze

import (
	"errors"
	"fmt"

	"github.com/ppiankov/zettelgen/internal/llm"
)

// FailureCategory tags why a single attempt produced no usable batch
type FailureCategory string

const (
	CategoryBackend           FailureCategory = "backend"
	CategoryMalformedResponse FailureCategory = "malformed_response"
	CategoryInvalidStructure  FailureCategory = "invalid_structure"
)

// MalformedResponseError means the normalized response did not parse as JSON
type MalformedResponseError struct {
	Response string // Normalized text that failed to parse
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// SchemaInvalidError means the response parsed but is not a valid note batch
type SchemaInvalidError struct {
	Err error
}

func (e *SchemaInvalidError) Error() string {
	return fmt.Sprintf("invalid response structure: %v", e.Err)
}

func (e *SchemaInvalidError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is returned once every attempt has failed.
// Last is the cause of the final attempt.
type ExhaustedRetriesError struct {
	Attempts int
	Category FailureCategory
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("no usable response after %d attempts (last failure: %s): %v", e.Attempts, e.Category, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// CategoryOf returns the diagnostic category of an attempt error.
// Anything that is not a parse or schema failure counts as a backend failure.
func CategoryOf(err error) FailureCategory {
	var exhausted *ExhaustedRetriesError
	if errors.As(err, &exhausted) {
		return exhausted.Category
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return CategoryMalformedResponse
	}

	var invalid *SchemaInvalidError
	if errors.As(err, &invalid) {
		return CategoryInvalidStructure
	}

	return CategoryBackend
}

// asBackendError makes sure every Send failure surfaces as an *llm.BackendError
func asBackendError(provider string, err error) error {
	var be *llm.BackendError
	if errors.As(err, &be) {
		return err
	}
	return &llm.BackendError{Provider: provider, Kind: llm.BackendTransport, Err: err}
}
