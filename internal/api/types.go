package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BestIPResponse is the payload of GET /api/best_ip.
type BestIPResponse struct {
	BestIP string `json:"best_ip,omitempty"`
}

// ActionResult is returned by run_test and config save.
type ActionResult struct {
	Message string `json:"message"`
}

// errorBody is the error convention for non-2xx responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ResultRow is one row of the results list. Keys keeps the order in which
// the columns appeared in the JSON object.
type ResultRow struct {
	Keys   []string
	Values map[string]json.RawMessage
}

// ResultsResponse is the ordered list returned by GET /api/results.
type ResultsResponse []ResultRow

// UnmarshalJSON decodes a JSON object while recording key order.
func (r *ResultRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("result row: expected object, got %v", tok)
	}

	r.Keys = r.Keys[:0]
	r.Values = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("result row: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("result row %q: %w", key, err)
		}
		if _, dup := r.Values[key]; !dup {
			r.Keys = append(r.Keys, key)
		}
		r.Values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes the row back in its original key order.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := r.Values[k]
		if len(v) == 0 {
			v = json.RawMessage("null")
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Cell formats the value under key for display. Missing keys and null give "".
func (r ResultRow) Cell(key string) string {
	raw, ok := r.Values[key]
	if !ok {
		return ""
	}
	return FormatScalar(raw)
}

// FormatScalar renders a JSON value as plain text: strings unquoted,
// numbers and booleans as written, null as "", anything else compact JSON.
func FormatScalar(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return string(trimmed)
		}
		return s
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}
		return buf.String()
	default:
		return string(trimmed)
	}
}

// LogsResponse is either a list of log lines or a server error object.
type LogsResponse struct {
	Lines []string
	Error string
	// IsError reports that the payload was { error }.
	IsError bool
}

// UnmarshalJSON accepts ["line", ...] or {"error": "..."}.
func (l *LogsResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("logs: empty payload")
	}
	switch trimmed[0] {
	case '[':
		var lines []string
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return err
		}
		l.Lines = lines
		l.Error = ""
		l.IsError = false
		return nil
	case '{':
		var body errorBody
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return err
		}
		l.Lines = nil
		l.Error = body.Error
		l.IsError = true
		return nil
	default:
		return fmt.Errorf("logs: unexpected payload starting with %q", trimmed[0])
	}
}

// Text joins the lines verbatim, or returns the error string.
func (l *LogsResponse) Text() string {
	if l.IsError {
		return l.Error
	}
	var buf bytes.Buffer
	for _, line := range l.Lines {
		buf.WriteString(line)
	}
	return buf.String()
}
