package toast

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jmylchreest/toaster/internal/model"
)

// Payload is the JSON body servers send to request a toast.
type Payload struct {
	Message    string `json:"message"`
	Class      string `json:"toast_class"`
	Icon       string `json:"icon,omitempty"`
	Persistent bool   `json:"persistent,omitempty"`
}

// ErrNotObject is wrapped by DecodeError when the body is valid JSON but not an object.
const ErrNotObject = payloadError("toast payload must be a JSON object")

type payloadError string

func (e payloadError) Error() string {
	return string(e)
}

// BuildFromResponse decodes a toast from resp without queueing it.
// The response body is consumed and closed. The HTTP status is not inspected.
func BuildFromResponse(resp *http.Response) (*model.Toast, error) {
	defer func() { _ = resp.Body.Close() }()
	return Decode(resp.Body)
}

// Decode reads a {message, toast_class} payload and returns a new toast with a fresh ID.
func Decode(r io.Reader) (*model.Toast, error) {
	p, err := DecodePayload(r)
	if err != nil {
		return nil, err
	}
	return model.NewToast(p.Message, p.Class), nil
}

// DecodePayload reads the whole of r as a single JSON object. Trailing data, an empty
// body and non-object values such as null or arrays fail with *DecodeError.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload

	body, err := io.ReadAll(r)
	if err != nil {
		return p, &DecodeError{Cause: err}
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return p, &DecodeError{Cause: io.EOF}
	}
	if body[0] != '{' {
		return p, &DecodeError{Cause: ErrNotObject}
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, &DecodeError{Cause: err}
	}
	return p, nil
}
