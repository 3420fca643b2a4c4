package api

import (
	"encoding/json"
	"testing"
)

func TestLogsResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		isErr   bool
	}{
		{"lines are concatenated", `["a\n","b\n"]`, "a\nb\n", false},
		{"empty list", `[]`, "", false},
		{"error object", `{"error":"x"}`, "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l LogsResponse
			if err := json.Unmarshal([]byte(tt.payload), &l); err != nil {
				t.Fatal(err)
			}
			if l.Text() != tt.want {
				t.Errorf("Text() = %q, want %q", l.Text(), tt.want)
			}
			if l.IsError != tt.isErr {
				t.Errorf("IsError = %v", l.IsError)
			}
		})
	}

	var l LogsResponse
	if err := json.Unmarshal([]byte(`"just a string"`), &l); err == nil {
		t.Error("expected error for string payload")
	}
}

func TestResultRowDuplicateKeys(t *testing.T) {
	var r ResultRow
	if err := json.Unmarshal([]byte(`{"a":1,"b":2,"a":3}`), &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Keys) != 2 || r.Keys[0] != "a" || r.Keys[1] != "b" {
		t.Errorf("Keys = %v", r.Keys)
	}
	if r.Cell("a") != "3" {
		t.Errorf("a = %q, want last value", r.Cell("a"))
	}
}

func TestResultRowMarshalKeepsOrder(t *testing.T) {
	in := `{"z":"x","a":1,"m":null}`
	var r ResultRow
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != in {
		t.Errorf("Marshal = %s, want %s", out, in)
	}
}

func TestFormatScalar(t *testing.T) {
	tests := map[string]string{
		`"text"`:        "text",
		`"aéb"`:         "aéb",
		`42`:            "42",
		`1.50`:          "1.50",
		`true`:          "true",
		`null`:          "",
		`{"k": [1, 2]}`: `{"k":[1,2]}`,
	}
	for in, want := range tests {
		if got := FormatScalar(json.RawMessage(in)); got != want {
			t.Errorf("FormatScalar(%s) = %q, want %q", in, got, want)
		}
	}
}
