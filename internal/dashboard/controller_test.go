package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"ipdash/internal/api"
	"ipdash/internal/config"
	pkgerrors "ipdash/pkg/errors"
)

// fakeFetcher answers from fields; a non-nil gate blocks the call until
// something is sent on it.
type fakeFetcher struct {
	mu sync.Mutex

	bestIPs   []string
	bestGates []chan struct{}
	bestErr   error
	bestCalls atomic.Int32

	results    api.ResultsResponse
	resultsErr error

	logs    *api.LogsResponse
	logsErr error

	config    string
	configErr error

	runGate chan struct{}
	runRes  *api.ActionResult
	runErr  error
	runs    atomic.Int32

	saved   []string
	saveErr error
}

func (f *fakeFetcher) BestIP(ctx context.Context) (*api.BestIPResponse, error) {
	n := int(f.bestCalls.Add(1)) - 1
	f.mu.Lock()
	var gate chan struct{}
	if n < len(f.bestGates) {
		gate = f.bestGates[n]
	}
	ip := ""
	if n < len(f.bestIPs) {
		ip = f.bestIPs[n]
	} else if len(f.bestIPs) > 0 {
		ip = f.bestIPs[len(f.bestIPs)-1]
	}
	err := f.bestErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &api.BestIPResponse{BestIP: ip}, nil
}

func (f *fakeFetcher) Results(ctx context.Context) (api.ResultsResponse, error) {
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	if f.results == nil {
		return api.ResultsResponse{}, nil
	}
	return f.results, nil
}

func (f *fakeFetcher) Logs(ctx context.Context) (*api.LogsResponse, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	if f.logs == nil {
		return &api.LogsResponse{}, nil
	}
	return f.logs, nil
}

func (f *fakeFetcher) Config(ctx context.Context) (string, error) {
	return f.config, f.configErr
}

func (f *fakeFetcher) ConfigJSON(ctx context.Context) (string, error) {
	return "{\n  \"pretty\": true\n}", f.configErr
}

func (f *fakeFetcher) SaveConfig(ctx context.Context, text string) (*api.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, text)
	return &api.ActionResult{Message: "saved"}, nil
}

func (f *fakeFetcher) RunTest(ctx context.Context) (*api.ActionResult, error) {
	f.runs.Add(1)
	if f.runGate != nil {
		<-f.runGate
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.runRes != nil {
		return f.runRes, nil
	}
	return &api.ActionResult{Message: "started"}, nil
}

type fakeHistory struct {
	mu  sync.Mutex
	ips []string
}

func (h *fakeHistory) RecordBestIP(ctx context.Context, ip string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ips) > 0 && h.ips[len(h.ips)-1] == ip {
		return false, nil
	}
	h.ips = append(h.ips, ip)
	return true, nil
}

func newTestController(t *testing.T, f Fetcher, opts Options) (*Controller, *Snapshot) {
	t.Helper()
	view := NewSnapshot()
	opts.Logger = zaptest.NewLogger(t)
	c, err := New(f, view, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, view
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRefreshAllRendersEveryPanel(t *testing.T) {
	f := &fakeFetcher{
		bestIPs: []string{"1.1.1.1"},
		logs:    &api.LogsResponse{Lines: []string{"a\n", "b\n"}},
		config:  "raw = 1\n",
	}
	c, view := newTestController(t, f, DefaultOptions())
	c.RefreshAll(context.Background())

	for _, p := range Panels {
		if _, ok := view.Panel(p); !ok {
			t.Errorf("panel %s not rendered", p)
		}
	}
	if u, _ := view.Panel(PanelBestIP); u.Text != "1.1.1.1" {
		t.Errorf("best ip = %q", u.Text)
	}
	if u, _ := view.Panel(PanelResults); u.Text != ResultsPlaceholder {
		t.Errorf("results = %+v", u)
	}
	if u, _ := view.Panel(PanelLogs); u.Text != "a\nb\n" || !u.ScrollToBottom {
		t.Errorf("logs = %+v", u)
	}
	if u, _ := view.Panel(PanelConfig); u.Text != "raw = 1\n" || !u.Editable {
		t.Errorf("config = %+v", u)
	}
}

func TestPanelFailureIsIsolated(t *testing.T) {
	f := &fakeFetcher{
		bestIPs: []string{"1.1.1.1"},
		logs:    &api.LogsResponse{Lines: []string{"ok\n"}},
		config:  "cfg",
	}
	c, view := newTestController(t, f, DefaultOptions())
	c.RefreshAll(context.Background())

	before := map[Panel]Update{}
	for _, p := range Panels {
		before[p], _ = view.Panel(p)
	}

	f.logsErr = &pkgerrors.APIError{Kind: pkgerrors.KindHTTP, StatusCode: 500, Message: "HTTP error! status: 500"}
	c.RefreshPanel(context.Background(), PanelLogs)

	u, _ := view.Panel(PanelLogs)
	if u.Err == nil || !strings.Contains(u.Text, "HTTP error! status: 500") {
		t.Errorf("logs panel = %+v", u)
	}
	for _, p := range []Panel{PanelBestIP, PanelResults, PanelConfig} {
		got, _ := view.Panel(p)
		if got.Text != before[p].Text || got.Err != nil {
			t.Errorf("panel %s changed: %+v", p, got)
		}
	}

	// A full refresh with one failing panel still renders the rest.
	f.bestErr = errors.New("down")
	c.RefreshAll(context.Background())
	if u, _ := view.Panel(PanelBestIP); u.Err == nil {
		t.Error("best ip should be in error state")
	}
	if u, _ := view.Panel(PanelConfig); u.Err != nil || u.Text != "cfg" {
		t.Errorf("config = %+v", u)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	slow := make(chan struct{})
	f := &fakeFetcher{
		bestIPs:   []string{"10.0.0.1", "10.0.0.2"},
		bestGates: []chan struct{}{slow},
	}
	c, view := newTestController(t, f, DefaultOptions())

	type result struct {
		u       Update
		applied bool
	}
	first := make(chan result, 1)
	go func() {
		u, ok := c.RefreshPanel(context.Background(), PanelBestIP)
		first <- result{u, ok}
	}()
	waitFor(t, "first fetch issued", func() bool { return f.bestCalls.Load() == 1 })

	u, applied := c.RefreshPanel(context.Background(), PanelBestIP)
	if !applied || u.Text != "10.0.0.2" {
		t.Fatalf("second refresh: applied=%v %+v", applied, u)
	}

	close(slow)
	r := <-first
	if r.applied {
		t.Errorf("stale response applied: %+v", r.u)
	}
	if r.u.Seq >= u.Seq {
		t.Errorf("seq ordering: stale=%d fresh=%d", r.u.Seq, u.Seq)
	}
	if got, _ := view.Panel(PanelBestIP); got.Text != "10.0.0.2" {
		t.Errorf("panel = %q, want newest", got.Text)
	}
	if n := len(view.Applied()); n != 1 {
		t.Errorf("applied %d updates, want 1", n)
	}
}

func TestRunTestBusyAndSettles(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{runGate: gate}
	c, view := newTestController(t, f, DefaultOptions())

	done := make(chan error, 1)
	go func() {
		_, err := c.RunTest(context.Background())
		done <- err
	}()
	waitFor(t, "run test busy", func() bool { return c.Busy(ActionRunTest) })

	if _, err := c.RunTest(context.Background()); !errors.Is(err, pkgerrors.ErrActionInProgress) {
		t.Errorf("second trigger err = %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if c.Busy(ActionRunTest) {
		t.Error("still busy after settle")
	}
	if f.runs.Load() != 1 {
		t.Errorf("server saw %d runs", f.runs.Load())
	}

	notices := view.Notices()
	if len(notices) != 2 || !notices[0].Busy || notices[1].Busy || notices[1].Message != "started" {
		t.Errorf("notices = %+v", notices)
	}
}

func TestRunTestFailureReEnables(t *testing.T) {
	f := &fakeFetcher{runErr: &pkgerrors.APIError{Kind: pkgerrors.KindHTTP, StatusCode: 429, Message: "already running"}}
	c, view := newTestController(t, f, DefaultOptions())

	_, err := c.RunTest(context.Background())
	if err == nil || err.Error() != "already running" {
		t.Fatalf("err = %v", err)
	}
	if c.Busy(ActionRunTest) {
		t.Error("busy after failure")
	}
	notices := view.Notices()
	if last := notices[len(notices)-1]; last.Err == nil || last.Busy {
		t.Errorf("last notice = %+v", last)
	}
}

func TestRunTestRefreshesAfterDelay(t *testing.T) {
	f := &fakeFetcher{bestIPs: []string{"1.1.1.1"}}
	opts := DefaultOptions()
	opts.PollInterval = time.Hour
	opts.RefreshDelay = 300 * time.Millisecond
	c, _ := newTestController(t, f, opts)

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "initial refresh", func() bool { return f.bestCalls.Load() == 1 })

	start := time.Now()
	if _, err := c.RunTest(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := f.bestCalls.Load(); n != 1 {
		t.Errorf("refreshed immediately: %d calls", n)
	}
	waitFor(t, "delayed refresh", func() bool { return f.bestCalls.Load() == 2 })
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("refresh after %s, want >= delay", elapsed)
	}
}

func TestStartPollsAndCloseStops(t *testing.T) {
	f := &fakeFetcher{bestIPs: []string{"1.1.1.1"}}
	opts := DefaultOptions()
	opts.PollInterval = 30 * time.Millisecond
	c, _ := newTestController(t, f, opts)

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); !errors.Is(err, pkgerrors.ErrAlreadyRunning) {
		t.Errorf("second Start = %v", err)
	}
	waitFor(t, "several polls", func() bool { return f.bestCalls.Load() >= 3 })

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if c.IsRunning() {
		t.Error("still running after Close")
	}
	after := f.bestCalls.Load()
	time.Sleep(150 * time.Millisecond)
	if got := f.bestCalls.Load(); got != after {
		t.Errorf("polled after Close: %d -> %d", after, got)
	}
	if err := c.Start(); !errors.Is(err, pkgerrors.ErrClosed) {
		t.Errorf("Start after Close = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	c, _ := newTestController(t, &fakeFetcher{}, DefaultOptions())
	if err := c.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestBestIPHistoryRecorded(t *testing.T) {
	h := &fakeHistory{}
	f := &fakeFetcher{bestIPs: []string{"1.1.1.1", "1.1.1.1", "", "1.0.0.1"}}
	opts := DefaultOptions()
	opts.History = h
	c, _ := newTestController(t, f, opts)

	for i := 0; i < 4; i++ {
		c.RefreshPanel(context.Background(), PanelBestIP)
	}
	if got := strings.Join(h.ips, ","); got != "1.1.1.1,1.0.0.1" {
		t.Errorf("history = %s", got)
	}
}

func TestConfigJSONMode(t *testing.T) {
	opts := DefaultOptions()
	opts.ConfigMode = config.ConfigModeJSON
	c, view := newTestController(t, &fakeFetcher{}, opts)

	c.RefreshPanel(context.Background(), PanelConfig)
	u, _ := view.Panel(PanelConfig)
	if u.Editable || !strings.Contains(u.Text, "\"pretty\": true") {
		t.Errorf("config = %+v", u)
	}
	if _, ok := c.LastConfig(); ok {
		t.Error("json mode must not remember raw text")
	}
}

func TestSaveConfigRefreshAfterSave(t *testing.T) {
	f := &fakeFetcher{bestIPs: []string{"1.1.1.1"}}
	opts := DefaultOptions()
	opts.PollInterval = time.Hour
	opts.RefreshAfterSave = true
	c, _ := newTestController(t, f, opts)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "initial refresh", func() bool { return f.bestCalls.Load() == 1 })

	res, err := c.SaveConfig(context.Background(), "a=1")
	if err != nil || res.Message != "saved" {
		t.Fatalf("SaveConfig = %+v, %v", res, err)
	}
	waitFor(t, "refresh after save", func() bool { return f.bestCalls.Load() == 2 })
	if c.Busy(ActionSaveConfig) {
		t.Error("save still busy")
	}
}

func TestResolveDraft(t *testing.T) {
	f := &fakeFetcher{config: "a\tb\r\nc\n"}
	c, _ := newTestController(t, f, DefaultOptions())

	if got := c.ResolveDraft("typed", nil); got != "typed" {
		t.Errorf("before any fetch: %q", got)
	}

	c.RefreshPanel(context.Background(), PanelConfig)
	normalize := func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(s, "\t", "    ")
	}

	if got := c.ResolveDraft("a    b\nc\n", normalize); got != "a\tb\r\nc\n" {
		t.Errorf("unedited buffer resolved to %q", got)
	}
	if got := c.ResolveDraft("a    b\nc\nd\n", normalize); got != "a    b\nc\nd\n" {
		t.Errorf("edited buffer resolved to %q", got)
	}
}

// TestConfigRoundTripOverHTTP drives the real client: the text fetched from
// GET /api/config is posted back byte for byte.
func TestConfigRoundTripOverHTTP(t *testing.T) {
	raw := "[cloudflare]\n# comment kept\ncron = 0 */6 * * *\r\n\tindent = yes\n"
	var mu sync.Mutex
	var posted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/config" && r.Method == http.MethodGet:
			io.WriteString(w, raw)
		case r.URL.Path == "/api/config" && r.Method == http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			posted = string(b)
			mu.Unlock()
			io.WriteString(w, `{"message":"ok"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := api.DefaultClientConfig()
	cfg.BaseURL = srv.URL
	client, err := api.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c, view := newTestController(t, client, DefaultOptions())

	c.RefreshPanel(context.Background(), PanelConfig)
	u, _ := view.Panel(PanelConfig)
	if u.Text != raw {
		t.Fatalf("config panel = %q", u.Text)
	}
	if _, err := c.SaveConfig(context.Background(), c.ResolveDraft(u.Text, nil)); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if posted != raw {
		t.Errorf("posted %q, want %q", posted, raw)
	}
}
