package latency

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ipdash/internal/api"
	pkgerrors "ipdash/pkg/errors"
)

// HTTPStrategy measures latency as a full GET of the endpoint through the
// API client. Any answer below 500 counts as reachable: the server returns
// 404 with an error payload until its first test has finished.
type HTTPStrategy struct {
	client *api.Client
}

// NewHTTPStrategy creates a new HTTP strategy.
func NewHTTPStrategy(client *api.Client) *HTTPStrategy {
	return &HTTPStrategy{client: client}
}

func (s *HTTPStrategy) Name() string { return "http" }

func (s *HTTPStrategy) Test(ctx context.Context, target Target) (int, error) {
	start := time.Now()
	_, err := s.client.Do(ctx, target.Endpoint, nil)
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *pkgerrors.APIError
		if !errors.As(err, &apiErr) || apiErr.Kind != pkgerrors.KindHTTP ||
			apiErr.StatusCode >= http.StatusInternalServerError {
			return 0, err
		}
	}
	return int(elapsed.Milliseconds()), nil
}
