package jimeng

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Status is the outcome of one pipeline invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// GenerationResult is the normalized result of a generate call. Files is
// set on success, Message on error.
type GenerationResult struct {
	Status    Status   `json:"status"`
	Files     []string `json:"files,omitempty"`
	Message   string   `json:"message,omitempty"`
	RequestID string   `json:"request_id,omitempty"`

	// Provider holds the provider-reported failure behind an error result.
	Provider *ProviderError `json:"-"`
}

// OK reports whether the result is a success.
func (r *GenerationResult) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

func errorResult(perr *ProviderError) *GenerationResult {
	return &GenerationResult{Status: StatusError, Message: perr.Message, Provider: perr}
}

// Store is where the mapper persists decoded images. storage.FileStore
// satisfies it.
type Store interface {
	Write(ctx context.Context, path string) (io.WriteCloser, error)
}

// Mapper turns a raw 2xx response into a GenerationResult, persisting any
// image payloads to Store.
type Mapper struct {
	Store  Store
	Namer  *Namer
	Prefix string
}

// codeVisualSuccess is the visual API's success code.
const codeVisualSuccess = "10000"

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}

// envelope covers the provider shapes: the Ark images API (data[] +
// error{}), the visual API (code + data{binary_data_base64}) and OpenAPI
// (ResponseMetadata.Error).
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
	Code    flexString      `json:"code"`
	Message string          `json:"message"`

	ResponseMetadata *struct {
		RequestID string    `json:"RequestId"`
		Error     *apiError `json:"Error"`
	} `json:"ResponseMetadata"`
}

type apiError struct {
	Code    flexString `json:"code"`
	Message string     `json:"message"`
}

// UnmarshalJSON accepts both the lower-case keys of the images API and the
// capitalized keys of OpenAPI ResponseMetadata.
func (e *apiError) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	e.Code = pickFlex(m, "code", "Code", "CodeN")
	e.Message = string(pickFlex(m, "message", "Message"))
	return nil
}

func pickFlex(m map[string]json.RawMessage, keys ...string) flexString {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		var f flexString
		if err := f.UnmarshalJSON(v); err == nil && f != "" {
			return f
		}
	}
	return ""
}

type imageItem struct {
	B64JSON string  `json:"b64_json"`
	URL     *string `json:"url"`
}

type visualData struct {
	BinaryDataBase64 []string `json:"binary_data_base64"`
	ImageURLs        []string `json:"image_urls"`
}

// Map parses resp. Provider-reported failures come back as an error
// result with a nil error. A failed write returns *StorageError and no
// result; images written before the failure stay on the store.
func (m *Mapper) Map(ctx context.Context, resp *Response) (*GenerationResult, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return errorResult(&ProviderError{Message: "malformed response envelope: " + err.Error()}), nil
	}

	if perr := env.providerError(); perr != nil {
		return errorResult(perr), nil
	}

	payloads, err := env.payloads()
	if err != nil {
		return errorResult(&ProviderError{Message: err.Error()}), nil
	}
	if len(payloads) == 0 {
		return errorResult(&ProviderError{Message: "response contained no image data"}), nil
	}

	images := make([][]byte, len(payloads))
	for i, p := range payloads {
		data, err := decodeImage(p)
		if err != nil {
			return errorResult(&ProviderError{Message: fmt.Sprintf("image %d: %v", i, err)}), nil
		}
		images[i] = data
	}

	files, err := m.persist(ctx, images)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Status: StatusSuccess, Files: files}, nil
}

func (m *Mapper) persist(ctx context.Context, images [][]byte) ([]string, error) {
	if m.Store == nil {
		return nil, &StorageError{Err: fmt.Errorf("no output store configured")}
	}
	namer := m.Namer
	if namer == nil {
		namer = sharedNamer
	}
	prefix := m.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	stamp := namer.Stamp()
	files := make([]string, 0, len(images))
	for i, data := range images {
		name := FileName(prefix, stamp, i, imageExt(data))
		if err := writeFile(ctx, m.Store, name, data); err != nil {
			return nil, &StorageError{Name: name, Written: files, Err: err}
		}
		files = append(files, name)
	}
	return files, nil
}

func writeFile(ctx context.Context, store Store, name string, data []byte) error {
	w, err := store.Write(ctx, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (e *envelope) providerError() *ProviderError {
	if e.Error != nil {
		return newProviderError(e.Error)
	}
	if e.ResponseMetadata != nil && e.ResponseMetadata.Error != nil {
		return newProviderError(e.ResponseMetadata.Error)
	}
	if code := string(e.Code); code != "" && code != "0" && code != codeVisualSuccess {
		msg := e.Message
		if msg == "" {
			msg = "provider returned code " + code
		}
		return &ProviderError{Code: code, Message: msg}
	}
	return nil
}

func newProviderError(e *apiError) *ProviderError {
	perr := &ProviderError{Code: string(e.Code), Message: e.Message}
	switch {
	case perr.Message != "":
	case perr.Code != "":
		perr.Message = perr.Code
	default:
		perr.Message = "provider returned an error"
	}
	return perr
}

// payloads extracts the base64 image strings in the order received.
func (e *envelope) payloads() ([]string, error) {
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var items []imageItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			if item.B64JSON == "" {
				return nil, fmt.Errorf("image %d has no inline data", i)
			}
			out = append(out, item.B64JSON)
		}
		return out, nil
	case '{':
		var v visualData
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		if len(v.BinaryDataBase64) == 0 && len(v.ImageURLs) > 0 {
			return nil, fmt.Errorf("response carried only image URLs, no inline data")
		}
		return v.BinaryDataBase64, nil
	default:
		return nil, fmt.Errorf("unexpected data field")
	}
}

// decodeImage decodes standard or URL-safe base64, tolerating a data: URI
// prefix.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			s = rest
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}
