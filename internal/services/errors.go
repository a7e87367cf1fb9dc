package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/desertthunder/halx/internal/hal"
)

// ValidationMessage is the message carried by every [FormValidationError].
const ValidationMessage = "Form validation errors"

// FetchError is returned by [HALService.Fetch] for non-2xx responses.
type FetchError struct {
	Message     string
	URL         string
	Status      int
	StatusText  string
	ContentType string
	Body        string
}

func (e *FetchError) Error() string {
	return e.Message
}

// MediaType returns the content type without parameters, lower-cased.
func (e *FetchError) MediaType() string {
	return mediaType(e.ContentType)
}

// Problem decodes the body as an RFC 7807 document when the content type says so.
func (e *FetchError) Problem() (*ProblemDocument, bool) {
	if e.MediaType() != hal.MediaTypeProblem {
		return nil, false
	}
	var p ProblemDocument
	if err := json.Unmarshal([]byte(e.Body), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// ProblemDocument is an RFC 7807 problem body, extended with a field error map.
type ProblemDocument struct {
	Type     string         `json:"type,omitempty"`
	Title    string         `json:"title,omitempty"`
	Status   int            `json:"status,omitempty"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

// FormValidationError carries field level messages from a rejected submission.
type FormValidationError struct {
	Message          string
	ValidationErrors map[string]string
	FormData         map[string]any
}

func (e *FormValidationError) Error() string {
	return e.Message
}

// Fields returns the names of the fields with errors in lexical order.
func (e *FormValidationError) Fields() []string {
	fields := make([]string, 0, len(e.ValidationErrors))
	for f := range e.ValidationErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// IsFormValidationError reports whether err is or wraps a validation error with a
// message and an error map.
func IsFormValidationError(err error) bool {
	var fv *FormValidationError
	if !errors.As(err, &fv) || fv == nil {
		return false
	}
	return fv.Message != "" && fv.ValidationErrors != nil
}

// ToFormValidationError converts a 400 problem+json [*FetchError] into a [*FormValidationError].
//
// Any other error, including a problem body that does not parse, is returned unchanged.
func ToFormValidationError(err error) error {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return err
	}
	if fe.Status != 400 || fe.MediaType() != hal.MediaTypeProblem {
		return err
	}

	fields, perr := ParseValidationErrors([]byte(fe.Body))
	if perr != nil {
		return err
	}

	return &FormValidationError{Message: ValidationMessage, ValidationErrors: fields}
}

// ParseValidationErrors extracts the errors map of a problem body.
//
// A missing or non-object errors member yields an empty map. Array messages are
// joined with "; ". It fails only when body is not a JSON object.
func ParseValidationErrors(body []byte) (map[string]string, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid problem document: %w", err)
	}

	out := make(map[string]string)
	raw, ok := doc["errors"].(map[string]any)
	if !ok {
		return out, nil
	}

	for field, msg := range raw {
		out[field] = message(msg)
	}
	return out, nil
}

func message(v any) string {
	items, ok := v.([]any)
	if !ok {
		return hal.Stringify(v)
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, hal.Stringify(item))
	}
	return strings.Join(parts, "; ")
}

// TransportError is a non-2xx response without the validation shape.
type TransportError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
