// Package pulse is a builtin plugin that publishes a periodic
// heartbeat event. It doubles as the reference for writing plugins:
// self-registration, host handles, periodic work, clean shutdown.
package pulse

import (
	"context"
	"sync/atomic"
	"time"

	"nucleusd/internal/eventbus"
	"nucleusd/internal/plugin"
	"nucleusd/internal/tasks"
)

// Name is the plugin and factory name.
const Name = "pulse"

// DefaultInterval is the heartbeat period when plugins.pulse.interval
// is not configured.
const DefaultInterval = 10 * time.Second

func init() {
	plugin.Register(Manifest(), New)
}

// Manifest describes the plugin to the discovery sources.
func Manifest() plugin.Manifest {
	return plugin.Manifest{
		Name:        Name,
		Version:     "0.1.0",
		Description: "publishes a periodic pulse/heartbeat event",
		Author:      "nucleus",
	}
}

// New is the plugin factory.
func New() plugin.Instance {
	return &Plugin{}
}

// Plugin publishes pulse/heartbeat every interval and logs sibling
// plugin loads.
type Plugin struct {
	host       plugin.Host
	periodicID string
	beats      atomic.Uint64
}

// Initialize wires the heartbeat and the lifecycle watch.
func (p *Plugin) Initialize(host plugin.Host) error {
	p.host = host
	interval := host.Config.Duration("plugins.pulse.interval", DefaultInterval)

	if _, err := host.Bus.Subscribe("plugin/loaded", p.onPluginLoaded, eventbus.WithSubscriberID(Name)); err != nil {
		return err
	}
	id, err := host.Tasks.SchedulePeriodic(interval, p.beat, tasks.WithPeriodicName(Name))
	if err != nil {
		host.Bus.Unsubscribe(Name)
		return err
	}
	p.periodicID = id
	host.Log.Debug().Dur("interval", interval).Msg("pulse armed")
	return nil
}

// Shutdown stops the heartbeat and drops the subscription.
func (p *Plugin) Shutdown() error {
	if p.periodicID != "" {
		p.host.Tasks.CancelPeriodic(p.periodicID)
		p.periodicID = ""
	}
	p.host.Bus.Unsubscribe(Name)
	return nil
}

// Beats reports how many heartbeats have been published.
func (p *Plugin) Beats() uint64 { return p.beats.Load() }

func (p *Plugin) beat(ctx context.Context) (any, error) {
	n := p.beats.Add(1)
	_, err := p.host.Bus.Publish(ctx, "pulse/heartbeat", Name, map[string]any{
		"beat": n,
		"unix": time.Now().Unix(),
	})
	return n, err
}

func (p *Plugin) onPluginLoaded(ev eventbus.Event) {
	name, _ := ev.Payload["plugin_name"].(string)
	if name == Name {
		return
	}
	p.host.Log.Debug().Str("plugin", name).Msg("sibling plugin loaded")
}
