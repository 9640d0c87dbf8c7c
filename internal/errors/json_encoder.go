package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fix represents a suggested fix with a confidence score.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded represents a structured error in JSON form.
type Encoded struct {
	Schema     string      `json:"schema"`
	SID        string      `json:"sid"`
	Phase      string      `json:"phase"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Fix        Fix         `json:"fix"`
	Context    interface{} `json:"context,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

func newEncoded(sid, phase, code, msg string, ctx interface{}) Encoded {
	if sid == "" {
		sid = "unknown"
	}
	return Encoded{
		Schema:  SchemaVersion,
		SID:     sid,
		Phase:   phase,
		Code:    code,
		Message: msg,
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
		Context: ctx,
	}
}

// NewHasher creates a hasher-phase error.
func NewHasher(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "hasher", code, msg, ctx)
}

// NewMangle creates a mangler-phase error.
func NewMangle(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "mangle", code, msg, ctx)
}

// NewCacheStore creates a cache-store-phase error.
func NewCacheStore(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "cachestore", code, msg, ctx)
}

// NewGraph creates a relation/usage-graph-phase error.
func NewGraph(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "graph", code, msg, ctx)
}

// NewASTDiff creates an AST-diff-phase error.
func NewASTDiff(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "astdiff", code, msg, ctx)
}

// NewPollution creates a pollution-analyser-phase error.
func NewPollution(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "pollution", code, msg, ctx)
}

// NewUsage creates a semantic-usage-collector-phase error.
func NewUsage(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "usage", code, msg, ctx)
}

// NewCHIR creates a CHIR-phase error.
func NewCHIR(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "chir", code, msg, ctx)
}

// NewIRMerge creates an IR-merge-phase error.
func NewIRMerge(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "irmerge", code, msg, ctx)
}

// WithFix adds a fix suggestion to the error.
func (e Encoded) WithFix(suggestion string, confidence float64) Encoded {
	e.Fix = Fix{Suggestion: suggestion, Confidence: confidence}
	return e
}

// WithSourceSpan adds a source location to the error.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// WithMeta adds metadata to the error.
func (e Encoded) WithMeta(meta interface{}) Encoded {
	e.Meta = meta
	return e
}

// ToJSON converts the error to deterministic JSON: struct field order is
// fixed by declaration order and encoding/json already sorts map keys,
// so no custom marshaling is needed to get byte-stable output.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := marshalDeterministic(e)
	if err != nil {
		fallback := Encoded{
			Schema:  SchemaVersion,
			Message: "encoding failed",
			Meta:    map[string]string{"original_error": err.Error()},
		}
		return marshalDeterministic(fallback)
	}
	return data, nil
}

func marshalDeterministic(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ErrorContext provides structured context for errors.
type ErrorContext struct {
	Constraints []string          `json:"constraints,omitempty"`
	Decisions   []string          `json:"decisions,omitempty"`
	TraceSlice  string            `json:"trace_slice,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// SafeEncodeError encodes any error without panicking, for use at
// phase boundaries where the concrete error type isn't known.
func SafeEncodeError(err error, phase string) []byte {
	if err == nil {
		return nil
	}
	encoded := Encoded{
		Schema:  SchemaVersion,
		SID:     "unknown",
		Phase:   phase,
		Code:    "ERR000",
		Message: err.Error(),
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
	}
	data, _ := encoded.ToJSON()
	return data
}

// FormatSourceSpan formats a file position as "file:line:col".
func FormatSourceSpan(file string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}
