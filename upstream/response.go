package upstream

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/go-staff-bff/internal/utils"
)

// Response is a fully-read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// MediaType is the lower-cased Content-Type without parameters.
func (r *Response) MediaType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mt
}

func (r *Response) IsJSON() bool {
	mt := r.MediaType()
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("[upstream Decode] status %d: %w", r.Status, err)
	}
	return nil
}

// Object decodes the body as a JSON object. ok is false for empty, non-JSON
// or non-object bodies.
func (r *Response) Object() (map[string]any, bool) {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(r.Body, &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

// Message picks a human readable message out of an upstream error body,
// trying message, detail and error before the first field error.
func (r *Response) Message(fallback string) string {
	obj, ok := r.Object()
	if !ok {
		return fallback
	}
	msg := utils.FirstNonEmpty(stringField(obj, "message"), stringField(obj, "detail"), stringField(obj, "error"))
	if msg != "" {
		return msg
	}
	fields := r.FieldErrors()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) > 0 {
			return fields[k][0]
		}
	}
	return fallback
}

// Code returns the structured error code (DRF's "code" field) if present.
func (r *Response) Code() string {
	obj, ok := r.Object()
	if !ok {
		return ""
	}
	return stringField(obj, "code")
}

// FieldErrors returns per-field messages, either from an "errors" object or
// from DRF-style top level field lists.
func (r *Response) FieldErrors() map[string][]string {
	obj, ok := r.Object()
	if !ok {
		return nil
	}
	src := obj
	if nested, ok := obj["errors"].(map[string]any); ok {
		src = nested
	}

	out := map[string][]string{}
	for k, v := range src {
		switch k {
		case "message", "detail", "error", "code", "errors":
			continue
		}
		if msgs := toMessages(v); len(msgs) > 0 {
			out[k] = msgs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func toMessages(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
