package latency

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// TestResult holds the outcome for a single target.
type TestResult struct {
	Target    Target
	Strategy  string
	Success   bool
	LatencyMS int
	Error     string
	TestedAt  time.Time
}

// BatchResult holds the outcome of probing multiple targets.
type BatchResult struct {
	Results   []*TestResult
	Tested    int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// ProgressFunc is called each time a single test completes during batch testing.
type ProgressFunc func(result *TestResult, current, total int)

// TesterConfig holds configuration for the Tester.
type TesterConfig struct {
	Workers  int64
	Timeout  time.Duration
	Strategy Strategy
	Logger   *zap.Logger
}

// Tester orchestrates latency testing.
type Tester struct {
	config TesterConfig
	logger *zap.Logger
}

// NewTester creates a new Tester.
func NewTester(cfg TesterConfig) *Tester {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tester{config: cfg, logger: logger.Named("probe")}
}

// TestSingle probes one target.
func (t *Tester) TestSingle(ctx context.Context, target Target) *TestResult {
	result := &TestResult{
		Target:   target,
		Strategy: t.config.Strategy.Name(),
		TestedAt: time.Now(),
	}

	testCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	latencyMS, err := t.config.Strategy.Test(testCtx, target)
	if err != nil {
		result.Error = err.Error()
		t.logger.Debug("probe failed", zap.String("endpoint", target.Endpoint), zap.Error(err))
		return result
	}
	result.Success = true
	result.LatencyMS = latencyMS
	t.logger.Debug("probe ok", zap.String("endpoint", target.Endpoint), zap.Int("latency_ms", latencyMS))
	return result
}

// TestBatch probes targets concurrently using a semaphore-based worker pool.
func (t *Tester) TestBatch(ctx context.Context, targets []Target, progress ProgressFunc) *BatchResult {
	startTime := time.Now()

	batch := &BatchResult{}
	results := make([]*TestResult, len(targets))
	var mu sync.Mutex
	var completed int

	sem := semaphore.NewWeighted(t.config.Workers)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, tg Target) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			result := t.TestSingle(ctx, tg)

			mu.Lock()
			results[idx] = result
			completed++
			current := completed
			if result.Success {
				batch.Succeeded++
			} else {
				batch.Failed++
			}
			mu.Unlock()

			if progress != nil {
				progress(result, current, len(targets))
			}
		}(i, target)
	}

	wg.Wait()

	for _, r := range results {
		if r != nil {
			batch.Results = append(batch.Results, r)
			batch.Tested++
		}
	}

	// Successful by latency ascending, failures at the end in target order.
	sort.SliceStable(batch.Results, func(i, j int) bool {
		ri, rj := batch.Results[i], batch.Results[j]
		if ri.Success != rj.Success {
			return ri.Success
		}
		if ri.Success {
			return ri.LatencyMS < rj.LatencyMS
		}
		return false
	})

	batch.Duration = time.Since(startTime)
	return batch
}
