// Package intake decodes and validates request bodies shared by the HTTP API,
// the MCP tools and the CLI.
//
// Every front end hands this package a reader (or already-decoded arguments)
// and gets back either a storage.Item or a journal.SaveRequest, so the three
// surfaces agree on what counts as "no data" and what counts as malformed.
package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

var (
	// ErrEmptyBody is returned for an empty body, JSON null or an empty
	// object.
	ErrEmptyBody = errors.New("no data provided")

	// ErrMalformed is returned when the body is not valid JSON.
	ErrMalformed = errors.New("request must be JSON")

	// ErrNotObject is returned when the body is valid JSON but not an object.
	ErrNotObject = errors.New("request body must be a JSON object")

	// ErrInvalidInput is wrapped by field type and validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// JournalInput is the body of a journal save.
//
// ID accepts a JSON string or number; numbers keep their literal text.
// Updated is milliseconds since the Unix epoch.
type JournalInput struct {
	// Type is the entry category and sub-folder name. Empty means personal.
	Type string `json:"type" validate:"omitempty,segmentlen"`

	// ID names the entry file. Empty means "generate from the clock".
	ID string `json:"id" validate:"omitempty,segmentlen"`

	// Content is written verbatim.
	Content string `json:"content"`

	// Updated, when set, becomes the file's modification time. The upper
	// bound is journal.MaxUpdated.
	Updated *float64 `json:"updated" validate:"omitempty,gte=0,lte=253402300799999"`
}

// SaveRequest converts the input into a journal store request.
func (in JournalInput) SaveRequest() journal.SaveRequest {
	return journal.SaveRequest{
		Type:    in.Type,
		ID:      in.ID,
		Content: in.Content,
		Updated: in.Updated,
	}
}

// ReadItem decodes one list item from r.
//
// Numbers are kept as json.Number so they are written back unchanged.
// Returns ErrEmptyBody for an empty body, null or {}; ErrMalformed for
// invalid JSON; ErrNotObject for arrays and scalars.
func ReadItem(r io.Reader) (storage.Item, error) {
	obj, err := readObject(r)
	if err != nil {
		return nil, err
	}
	return storage.Item(obj), nil
}

// ReadJournalInput decodes and validates a journal save body from r.
func ReadJournalInput(r io.Reader) (JournalInput, error) {
	obj, err := readObject(r)
	if err != nil {
		return JournalInput{}, err
	}
	return JournalFromArgs(obj)
}

// JournalFromArgs builds a JournalInput from already-decoded JSON values,
// such as MCP tool arguments.
func JournalFromArgs(args map[string]any) (JournalInput, error) {
	if len(args) == 0 {
		return JournalInput{}, ErrEmptyBody
	}

	var in JournalInput
	var err error
	if in.Type, err = optionalString(args, "type"); err != nil {
		return JournalInput{}, err
	}
	if in.Content, err = optionalString(args, "content"); err != nil {
		return JournalInput{}, err
	}
	if in.ID, err = optionalID(args, "id"); err != nil {
		return JournalInput{}, err
	}
	if in.Updated, err = optionalNumber(args, "updated"); err != nil {
		return JournalInput{}, err
	}

	if err := Validate(in); err != nil {
		return JournalInput{}, err
	}
	return in, nil
}

func readObject(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformed)
	}

	switch obj := v.(type) {
	case nil:
		return nil, ErrEmptyBody
	case map[string]any:
		if len(obj) == 0 {
			return nil, ErrEmptyBody
		}
		return obj, nil
	default:
		return nil, ErrNotObject
	}
}

// FieldError reports a body field with the wrong JSON type.
type FieldError struct {
	Field string
	Want  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s must be a %s", e.Field, e.Want)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

func optionalString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: key, Want: "string"}
	}
	return s, nil
}

func optionalID(args map[string]any, key string) (string, error) {
	switch v := args[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", &FieldError{Field: key, Want: "string or number"}
	}
}

func optionalNumber(args map[string]any, key string) (*float64, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, &FieldError{Field: key, Want: "number"}
		}
		return &f, nil
	case float64:
		return &v, nil
	default:
		return nil, &FieldError{Field: key, Want: "number"}
	}
}
