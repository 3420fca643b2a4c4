package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ipdash/internal/api"
	"ipdash/internal/config"
	pkgerrors "ipdash/pkg/errors"
)

// Fetcher is the subset of the API client the controller drives.
type Fetcher interface {
	BestIP(ctx context.Context) (*api.BestIPResponse, error)
	Results(ctx context.Context) (api.ResultsResponse, error)
	Logs(ctx context.Context) (*api.LogsResponse, error)
	Config(ctx context.Context) (string, error)
	ConfigJSON(ctx context.Context) (string, error)
	SaveConfig(ctx context.Context, text string) (*api.ActionResult, error)
	RunTest(ctx context.Context) (*api.ActionResult, error)
}

// HistoryRecorder stores best IP changes.
type HistoryRecorder interface {
	RecordBestIP(ctx context.Context, ip string) (bool, error)
}

// Options configures a Controller.
type Options struct {
	PollInterval     time.Duration
	RefreshDelay     time.Duration
	ConfigMode       string
	RefreshAfterSave bool
	History          HistoryRecorder
	Logger           *zap.Logger
}

// DefaultOptions returns the 10s poll / 3s refresh-delay setup.
func DefaultOptions() Options {
	return Options{
		PollInterval: 10 * time.Second,
		RefreshDelay: 3 * time.Second,
		ConfigMode:   config.ConfigModeRaw,
	}
}

// OptionsFromConfig maps resolved settings onto controller options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		PollInterval:     cfg.PollInterval.D(),
		RefreshDelay:     cfg.RefreshDelay.D(),
		ConfigMode:       cfg.ConfigMode,
		RefreshAfterSave: cfg.RefreshAfterSave,
	}
}

// Controller owns the API client, the view, the poll loop and all per-panel
// state. Each panel's fetch is tagged with a sequence number and only the
// latest issued one is applied.
type Controller struct {
	client Fetcher
	view   View
	opts   Options
	logger *zap.Logger

	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc

	running   atomic.Bool
	closeOnce sync.Once

	issued  [panelCount]atomic.Uint64
	applyMu [panelCount]sync.Mutex

	busy [actionCount]atomic.Bool

	configMu  sync.Mutex
	configRaw string
	configOK  bool
}

// New creates a controller. Nothing is fetched until Start or a Refresh call.
func New(client Fetcher, view View, opts Options) (*Controller, error) {
	if client == nil || view == nil {
		return nil, fmt.Errorf("dashboard: client and view are required")
	}
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.RefreshDelay < 0 {
		opts.RefreshDelay = 0
	}
	if opts.ConfigMode == "" {
		opts.ConfigMode = defaults.ConfigMode
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("dashboard")

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(newSchedulerLogger(logger)))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:    client,
		view:      view,
		opts:      opts,
		logger:    logger,
		scheduler: scheduler,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start refreshes every panel now and then every PollInterval.
func (c *Controller) Start() error {
	if c.ctx.Err() != nil {
		return pkgerrors.ErrClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return pkgerrors.ErrAlreadyRunning
	}

	_, err := c.scheduler.NewJob(
		gocron.DurationJob(c.opts.PollInterval),
		gocron.NewTask(func() {
			c.RefreshAll(c.ctx)
		}),
		gocron.WithName("poll"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("failed to create poll job: %w", err)
	}

	c.scheduler.Start()
	c.logger.Info("poll loop started", zap.Duration("interval", c.opts.PollInterval))
	return nil
}

// Close stops the poll loop, drops any pending delayed refresh and cancels
// in-flight fetches. It is safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if shutdownErr := c.scheduler.Shutdown(); shutdownErr != nil {
			err = fmt.Errorf("failed to stop scheduler: %w", shutdownErr)
		}
		if c.running.Swap(false) {
			c.logger.Info("poll loop stopped")
		}
	})
	return err
}

// IsRunning returns whether the poll loop is running
func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Options returns the effective options.
func (c *Controller) Options() Options {
	return c.opts
}

// RefreshAll refreshes every panel concurrently and waits for all of them.
// A failing panel never stops the others.
func (c *Controller) RefreshAll(ctx context.Context) {
	var g errgroup.Group
	for _, p := range Panels {
		g.Go(func() error {
			c.RefreshPanel(ctx, p)
			return nil
		})
	}
	g.Wait()
}

// RefreshPanel fetches one panel and applies the outcome if no newer fetch
// for the same panel was issued meanwhile. It reports whether the update was
// applied.
func (c *Controller) RefreshPanel(ctx context.Context, p Panel) (Update, bool) {
	if p < 0 || p >= panelCount {
		return Update{}, false
	}
	seq := c.issued[p].Add(1)

	u := c.fetch(ctx, p)
	u.Panel = p
	u.Seq = seq

	c.applyMu[p].Lock()
	defer c.applyMu[p].Unlock()

	if latest := c.issued[p].Load(); latest != seq {
		c.logger.Debug("discarding stale response",
			zap.Stringer("panel", p), zap.Uint64("seq", seq), zap.Uint64("latest", latest))
		return u, false
	}
	if c.ctx.Err() != nil {
		return u, false
	}
	c.view.Apply(u)

	if p == PanelBestIP && u.Err == nil && !u.Placeholder {
		c.recordBestIP(ctx, u.Text)
	}
	return u, true
}

func (c *Controller) fetch(ctx context.Context, p Panel) Update {
	ctx, cancel := c.mergeContext(ctx)
	defer cancel()

	switch p {
	case PanelBestIP:
		resp, err := c.client.BestIP(ctx)
		if err != nil {
			return c.failed(p, err)
		}
		return RenderBestIP(resp)

	case PanelResults:
		rows, err := c.client.Results(ctx)
		if err != nil {
			return c.failed(p, err)
		}
		return RenderResults(rows)

	case PanelLogs:
		logs, err := c.client.Logs(ctx)
		if err != nil {
			return c.failed(p, err)
		}
		return RenderLogs(logs)

	default:
		if c.opts.ConfigMode == config.ConfigModeJSON {
			text, err := c.client.ConfigJSON(ctx)
			if err != nil {
				return c.failed(p, err)
			}
			return RenderConfig(text, false)
		}
		text, err := c.client.Config(ctx)
		if err != nil {
			return c.failed(p, err)
		}
		c.rememberConfig(text)
		return RenderConfig(text, true)
	}
}

func (c *Controller) failed(p Panel, err error) Update {
	c.logger.Warn("panel refresh failed", zap.Stringer("panel", p), zap.Error(err))
	return RenderError(p, err)
}

func (c *Controller) recordBestIP(ctx context.Context, ip string) {
	if c.opts.History == nil {
		return
	}
	recorded, err := c.opts.History.RecordBestIP(ctx, ip)
	if err != nil {
		c.logger.Warn("failed to record best ip", zap.String("ip", ip), zap.Error(err))
		return
	}
	if recorded {
		c.logger.Info("best ip changed", zap.String("ip", ip))
	}
}

// mergeContext derives a context that ends when either ctx or the
// controller's own context ends.
func (c *Controller) mergeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// scheduleRefresh runs one RefreshAll after delay on the controller's
// scheduler. The job is removed once it ran.
func (c *Controller) scheduleRefresh(delay time.Duration) error {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	var job atomic.Value
	j, err := c.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			c.RefreshAll(c.ctx)
			if j, ok := job.Load().(gocron.Job); ok {
				go c.scheduler.RemoveJob(j.ID())
			}
		}),
		gocron.WithName("delayed-refresh"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	job.Store(j)
	c.logger.Debug("refresh scheduled", zap.Duration("delay", delay))
	return nil
}
