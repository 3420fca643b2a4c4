package latency

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"ipdash/internal/api"
)

// Target is one read-only endpoint of the optimizer API.
type Target struct {
	Endpoint string
	URL      string
}

// Strategy defines how a latency test is performed against a single target.
type Strategy interface {
	// Name returns the strategy identifier ("tcp" or "http").
	Name() string
	// Test performs a latency test and returns the round-trip time in milliseconds.
	Test(ctx context.Context, target Target) (latencyMS int, err error)
}

// TCPStrategy measures latency via a TCP handshake to the target's host and port.
// It only verifies that something accepts connections there.
type TCPStrategy struct{}

func (s *TCPStrategy) Name() string { return "tcp" }

func (s *TCPStrategy) Test(ctx context.Context, target Target) (int, error) {
	u, err := url.Parse(target.URL)
	if err != nil {
		return 0, fmt.Errorf("invalid target url: %w", err)
	}
	address := hostPort(u)

	start := time.Now()
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return 0, fmt.Errorf("tcp handshake failed: %w", err)
	}
	elapsed := time.Since(start)
	conn.Close()

	return int(elapsed.Milliseconds()), nil
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// Targets resolves every registered endpoint against the client's base URL.
// run_test is skipped because requesting it starts a server-side test.
func Targets(client *api.Client) ([]Target, error) {
	base, err := url.Parse(client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	endpoints := client.Endpoints()
	var targets []Target
	for _, name := range endpoints.Names() {
		if name == api.EndpointRunTest {
			continue
		}
		path, err := endpoints.Path(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{
			Endpoint: name,
			URL:      base.ResolveReference(&url.URL{Path: path}).String(),
		})
	}
	return targets, nil
}

// NewStrategy creates a Strategy by name. Valid names: "tcp", "http".
func NewStrategy(name string, client *api.Client) (Strategy, error) {
	switch name {
	case "http", "":
		return NewHTTPStrategy(client), nil
	case "tcp":
		return &TCPStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown test strategy: %s (available: tcp, http)", name)
	}
}
