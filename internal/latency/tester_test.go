package latency

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"ipdash/internal/api"
)

func newClient(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	cfg := api.DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.Logger = zaptest.NewLogger(t)
	c, err := api.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestTargetsSkipRunTest(t *testing.T) {
	c := newClient(t, "http://10.0.0.1:6788")
	targets, err := Targets(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 4 {
		t.Fatalf("got %d targets", len(targets))
	}
	for _, tg := range targets {
		if tg.Endpoint == api.EndpointRunTest {
			t.Error("run_test must not be probed")
		}
		if !strings.HasPrefix(tg.URL, "http://10.0.0.1:6788/api/") {
			t.Errorf("url = %s", tg.URL)
		}
	}
}

func TestHostPort(t *testing.T) {
	tests := map[string]string{
		"http://example.com/api/x":  "example.com:80",
		"https://example.com/api/x": "example.com:443",
		"http://10.0.0.1:6788/":     "10.0.0.1:6788",
		"http://[::1]/api":          "[::1]:80",
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := hostPort(u); got != want {
			t.Errorf("hostPort(%s) = %s, want %s", raw, got, want)
		}
	}
}

func TestHTTPStrategyTreats4xxAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/best_ip":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"No results yet"}`))
		case "/api/logs":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	targets, err := Targets(c)
	if err != nil {
		t.Fatal(err)
	}
	tester := NewTester(TesterConfig{
		Workers:  2,
		Timeout:  2 * time.Second,
		Strategy: NewHTTPStrategy(c),
		Logger:   zaptest.NewLogger(t),
	})

	var calls atomic.Int32
	batch := tester.TestBatch(context.Background(), targets, func(r *TestResult, current, total int) {
		calls.Add(1)
		if total != 4 {
			t.Errorf("total = %d", total)
		}
	})
	if calls.Load() != 4 {
		t.Errorf("progress called %d times", calls.Load())
	}
	if batch.Tested != 4 || batch.Succeeded != 3 || batch.Failed != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	last := batch.Results[len(batch.Results)-1]
	if last.Success || last.Target.Endpoint != api.EndpointLogs {
		t.Errorf("failure not sorted last: %+v", last)
	}
	if last.Error == "" || last.Strategy != "http" {
		t.Errorf("failure = %+v", last)
	}
}

func TestTCPStrategy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	addr := ln.Addr().String()

	s := &TCPStrategy{}
	if _, err := s.Test(context.Background(), Target{URL: "http://" + addr + "/api/best_ip"}); err != nil {
		t.Fatalf("open port: %v", err)
	}

	ln.Close()
	if _, err := s.Test(context.Background(), Target{URL: "http://" + addr + "/api/best_ip"}); err == nil {
		t.Error("expected failure after listener closed")
	}
}

func TestNewStrategy(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:6788")
	for name, want := range map[string]string{"": "http", "http": "http", "tcp": "tcp"} {
		s, err := NewStrategy(name, c)
		if err != nil {
			t.Fatal(err)
		}
		if s.Name() != want {
			t.Errorf("NewStrategy(%q).Name() = %s", name, s.Name())
		}
	}
	if _, err := NewStrategy("icmp", c); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
