// control/controller.go
// Author: momentics <momentics@gmail.com>
//
// Controller composes a ConfigStore, DebugProbes, and MetricsRegistry
// into the single object live/replay components hand callers for
// runtime introspection and reconfiguration, and is this module's
// concrete implementation of api.Control.

package control

import "github.com/atupone/AtuReactor/api"

// Controller is the per-component control surface: live configuration,
// debug probes, and metrics counters behind one handle.
type Controller struct {
	Config  *ConfigStore
	Debug   *DebugProbes
	Metrics *MetricsRegistry
}

// NewController builds a Controller with empty config, probes, and metrics.
func NewController() *Controller {
	return &Controller{
		Config:  NewConfigStore(),
		Debug:   NewDebugProbes(),
		Metrics: NewMetricsRegistry(),
	}
}

// GetConfig returns a snapshot of the live configuration.
func (c *Controller) GetConfig() map[string]any { return c.Config.GetSnapshot() }

// SetConfig merges cfg into the live configuration and synchronously
// notifies OnReload listeners.
func (c *Controller) SetConfig(cfg map[string]any) error {
	c.Config.SetConfig(cfg)
	return nil
}

// Stats returns a snapshot of the current metric counters.
func (c *Controller) Stats() map[string]any { return c.Metrics.GetSnapshot() }

// OnReload registers a listener invoked whenever SetConfig changes the
// live configuration.
func (c *Controller) OnReload(fn func()) { c.Config.OnReload(fn) }

// RegisterDebugProbe adds a named debug hook.
func (c *Controller) RegisterDebugProbe(name string, fn func() any) { c.Debug.RegisterProbe(name, fn) }

var _ api.Control = (*Controller)(nil)
