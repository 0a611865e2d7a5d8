// Package shanghai wires the configured networks, plugins and logging
// into one runnable bot.
package shanghai

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chireiden/shanghai/config"
	"github.com/chireiden/shanghai/logging"
	"github.com/chireiden/shanghai/network"
	"github.com/chireiden/shanghai/plugin"
)

// Bot runs one supervisor per configured network, each with the full
// plugin set attached.
type Bot struct {
	root     *zap.Logger
	log      *zap.SugaredLogger
	networks []*network.Network
}

// New builds a bot from a validated configuration. reg may be nil to
// leave metrics unregistered; plugins are attached to every network in
// dependency order.
func New(cfg *config.Config, reg prometheus.Registerer, plugins ...plugin.Plugin) (*Bot, error) {
	root, err := logging.NewRoot(cfg.Logging)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		root: root,
		log:  logging.Get(root, "core", "shanghai"),
	}

	mgr := plugin.NewManager(logging.Get(root, "core", "plugin"))
	for _, p := range plugins {
		if err := mgr.Add(p); err != nil {
			return nil, err
		}
	}
	if err := mgr.LoadAll(); err != nil {
		return nil, err
	}

	for _, nc := range cfg.Networks {
		n := network.New(nc, logging.Get(root, "network", nc.Name), reg)
		if err := mgr.Attach(n.Context()); err != nil {
			return nil, err
		}
		b.networks = append(b.networks, n)
	}
	return b, nil
}

// Networks returns the per-network supervisors.
func (b *Bot) Networks() []*network.Network { return b.networks }

// Run drives every network until all of them have stopped or ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context) error {
	defer b.root.Sync()
	b.log.Infow("starting", "networks", len(b.networks))
	g, ctx := errgroup.WithContext(ctx)
	for _, n := range b.networks {
		n := n
		g.Go(func() error { return n.Run(ctx) })
	}
	err := g.Wait()
	b.log.Infow("stopped")
	return err
}

// Stop fans a close request out to every network.
func (b *Bot) Stop(quitmsg string) {
	for _, n := range b.networks {
		n.Stop(quitmsg)
	}
}
