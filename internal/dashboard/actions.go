package dashboard

import (
	"context"

	"go.uber.org/zap"

	"ipdash/internal/api"
	pkgerrors "ipdash/pkg/errors"
)

// Busy reports whether action a is in flight, i.e. its control is disabled.
func (c *Controller) Busy(a Action) bool {
	if a < 0 || a >= actionCount {
		return false
	}
	return c.busy[a].Load()
}

// begin marks a busy and tells the view. It fails if a is already busy.
func (c *Controller) begin(a Action) error {
	if !c.busy[a].CompareAndSwap(false, true) {
		return pkgerrors.ErrActionInProgress
	}
	c.view.Notify(Notice{Action: a, Busy: true})
	return nil
}

// settle clears a's busy flag and reports the outcome.
func (c *Controller) settle(a Action, res *api.ActionResult, err error) {
	c.busy[a].Store(false)
	n := Notice{Action: a, Err: err}
	if res != nil {
		n.Message = res.Message
	}
	c.view.Notify(n)
}

// RunTest asks the server to start an optimization run. On success a full
// refresh is scheduled after RefreshDelay instead of refreshing right away,
// giving the server time to finish.
func (c *Controller) RunTest(ctx context.Context) (res *api.ActionResult, err error) {
	if err := c.begin(ActionRunTest); err != nil {
		return nil, err
	}
	defer func() { c.settle(ActionRunTest, res, err) }()

	ctx, cancel := c.mergeContext(ctx)
	defer cancel()

	res, err = c.client.RunTest(ctx)
	if err != nil {
		c.logger.Warn("run test failed", zap.Error(err))
		return nil, err
	}
	c.logger.Info("run test accepted", zap.String("message", res.Message))

	if schedErr := c.scheduleRefresh(c.opts.RefreshDelay); schedErr != nil {
		c.logger.Warn("failed to schedule refresh", zap.Error(schedErr))
	}
	return res, nil
}

// SaveConfig posts text verbatim. Local panels are not updated; with
// RefreshAfterSave set, a full refresh follows a successful save.
func (c *Controller) SaveConfig(ctx context.Context, text string) (res *api.ActionResult, err error) {
	if err := c.begin(ActionSaveConfig); err != nil {
		return nil, err
	}
	defer func() { c.settle(ActionSaveConfig, res, err) }()

	ctx, cancel := c.mergeContext(ctx)
	defer cancel()

	res, err = c.client.SaveConfig(ctx, text)
	if err != nil {
		c.logger.Warn("save config failed", zap.Error(err))
		return nil, err
	}
	c.logger.Info("config saved", zap.Int("bytes", len(text)), zap.String("message", res.Message))

	if c.opts.RefreshAfterSave {
		if schedErr := c.scheduleRefresh(0); schedErr != nil {
			c.logger.Warn("failed to schedule refresh", zap.Error(schedErr))
		}
	}
	return res, nil
}

func (c *Controller) rememberConfig(text string) {
	c.configMu.Lock()
	defer c.configMu.Unlock()
	c.configRaw = text
	c.configOK = true
}

// LastConfig returns the raw config text from the latest successful fetch.
func (c *Controller) LastConfig() (string, bool) {
	c.configMu.Lock()
	defer c.configMu.Unlock()
	return c.configRaw, c.configOK
}

// ResolveDraft maps an editor buffer back to the exact bytes to submit.
// Editors may rewrite tabs or line endings on load; when the buffer equals
// normalize(last fetched text) the user made no edits and the fetched bytes
// are returned unchanged.
func (c *Controller) ResolveDraft(edited string, normalize func(string) string) string {
	raw, ok := c.LastConfig()
	if !ok {
		return edited
	}
	if edited == raw {
		return raw
	}
	if normalize != nil && normalize(raw) == edited {
		return raw
	}
	return edited
}
