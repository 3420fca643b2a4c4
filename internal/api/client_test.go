package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	pkgerrors "ipdash/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig()
	cfg.BaseURL = srv.URL
	cfg.Logger = zaptest.NewLogger(t)
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestDefaultEndpoints(t *testing.T) {
	e := DefaultEndpoints()
	want := map[string]string{
		EndpointBestIP:  "/api/best_ip",
		EndpointResults: "/api/results",
		EndpointLogs:    "/api/logs",
		EndpointConfig:  "/api/config",
		EndpointRunTest: "/api/run_test",
	}
	for name, path := range want {
		got, err := e.Path(name)
		if err != nil {
			t.Fatalf("Path(%q): %v", name, err)
		}
		if got != path {
			t.Errorf("Path(%q) = %q, want %q", name, got, path)
		}
	}
	if len(e.Names()) != len(want) {
		t.Errorf("Names() = %v, want %d entries", e.Names(), len(want))
	}
	if _, err := e.Path("nope"); !errors.Is(err, pkgerrors.ErrUnknownEndpoint) {
		t.Errorf("Path(nope) err = %v, want ErrUnknownEndpoint", err)
	}
}

func TestNewEndpointsIsolatedFromInput(t *testing.T) {
	src := map[string]string{"x": "/x"}
	e := NewEndpoints(src)
	src["x"] = "/changed"
	if got, _ := e.Path("x"); got != "/x" {
		t.Errorf("registry changed with its input map: %q", got)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "   ", "not a url", "/relative"} {
		cfg := DefaultClientConfig()
		cfg.BaseURL = u
		if _, err := NewClient(cfg); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", u)
		}
	}
}

func TestDoSetsHeaders(t *testing.T) {
	var gotUA, gotID, gotMethod string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotID = r.Header.Get("X-Request-ID")
		gotMethod = r.Method
		w.Write([]byte(`{"best_ip":"1.1.1.1"}`))
	}))

	resp, err := c.Do(context.Background(), EndpointBestIP, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %s, want GET", gotMethod)
	}
	if gotUA == "" || gotID == "" {
		t.Errorf("missing headers: ua=%q id=%q", gotUA, gotID)
	}
	if resp.RequestID != gotID {
		t.Errorf("RequestID = %q, server saw %q", resp.RequestID, gotID)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusNotFound, `{"error":"not determined"}`, "not determined"},
		{"message field", http.StatusTooManyRequests, `{"message":"already running"}`, "already running"},
		{"error wins over message", http.StatusBadRequest, `{"error":"e","message":"m"}`, "e"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP error! status: 502"},
		{"empty body", http.StatusInternalServerError, ``, "HTTP error! status: 500"},
		{"empty object", http.StatusForbidden, `{}`, "HTTP error! status: 403"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			_, err := c.BestIP(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
			var apiErr *pkgerrors.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error is %T, want *APIError", err)
			}
			if apiErr.Kind != pkgerrors.KindHTTP || apiErr.StatusCode != tt.status {
				t.Errorf("kind=%s status=%d", apiErr.Kind, apiErr.StatusCode)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = url
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Logs(context.Background())
	if kind, ok := pkgerrors.KindOf(err); !ok || kind != pkgerrors.KindTransport {
		t.Errorf("kind = %v (%v), want transport", kind, err)
	}
}

func TestBestIP(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr pkgerrors.Kind
	}{
		{`{"best_ip":"104.16.1.1"}`, "104.16.1.1", ""},
		{`{}`, "", ""},
		{`{"best_ip":""}`, "", ""},
		{`{"error":"boom"}`, "", pkgerrors.KindApplication},
		{`nope`, "", pkgerrors.KindMalformed},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, tt.body)
		}))
		got, err := c.BestIP(context.Background())
		if tt.wantErr != "" {
			if kind, _ := pkgerrors.KindOf(err); kind != tt.wantErr {
				t.Errorf("%s: kind = %q, want %q", tt.body, kind, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.body, err)
			continue
		}
		if got.BestIP != tt.want {
			t.Errorf("%s: BestIP = %q, want %q", tt.body, got.BestIP, tt.want)
		}
	}
}

func TestResultsKeepsColumnOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"ip":"1.1.1.1","latency":12.5,"loss":0,"colo":"SJC"},{"latency":30,"ip":"1.0.0.1"}]`)
	}))
	rows, err := c.Results(context.Background())
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if got := strings.Join(rows[0].Keys, ","); got != "ip,latency,loss,colo" {
		t.Errorf("row 0 keys = %s", got)
	}
	if got := rows[1].Cell("colo"); got != "" {
		t.Errorf("missing cell = %q, want empty", got)
	}
	if got := rows[0].Cell("latency"); got != "12.5" {
		t.Errorf("latency cell = %q", got)
	}
}

func TestResultsEmptyAndError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	rows, err := c.Results(context.Background())
	if err != nil || rows == nil || len(rows) != 0 {
		t.Errorf("empty list: rows=%v err=%v", rows, err)
	}

	c = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"no results"}`)
	}))
	_, err = c.Results(context.Background())
	if kind, _ := pkgerrors.KindOf(err); kind != pkgerrors.KindApplication {
		t.Errorf("kind = %q, want application", kind)
	}
	if err.Error() != "no results" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestConfigRawIsVerbatim(t *testing.T) {
	raw := "[cloudflare]\r\n# keep me\n\tcron = 0 */6 * * *\nz=1\na=2\n"
	var posted []byte
	var postedType string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, raw)
		case http.MethodPost:
			posted, _ = io.ReadAll(r.Body)
			postedType = r.Header.Get("Content-Type")
			io.WriteString(w, `{"message":"saved"}`)
		}
	}))

	got, err := c.Config(context.Background())
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if got != raw {
		t.Fatalf("Config = %q, want %q", got, raw)
	}
	res, err := c.SaveConfig(context.Background(), got)
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if string(posted) != raw {
		t.Errorf("posted %q, want %q", posted, raw)
	}
	if !strings.HasPrefix(postedType, "text/plain") {
		t.Errorf("content type = %q", postedType)
	}
	if res.Message != "saved" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestConfigJSONPretty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"b":1,"a":{"c":true}}`)
	}))
	got, err := c.ConfigJSON(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"b\": 1,\n  \"a\": {\n    \"c\": true\n  }\n}"
	if got != want {
		t.Errorf("ConfigJSON =\n%s\nwant\n%s", got, want)
	}
}

func TestRunTestPostsWithoutBody(t *testing.T) {
	var method string
	var bodyLen int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		b, _ := io.ReadAll(r.Body)
		bodyLen = len(b)
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"message":"started"}`)
	}))
	res, err := c.RunTest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPost || bodyLen != 0 {
		t.Errorf("method=%s body=%d", method, bodyLen)
	}
	if res.Message != "started" {
		t.Errorf("message = %q", res.Message)
	}
}
