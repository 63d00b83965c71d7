package am

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/teranos/popidx/pop/manager"
	"github.com/teranos/popidx/pop/metrics"
	"go.uber.org/zap"
)

// ManagerOptions translates the index and metrics sections into manager
// options. Metrics are registered with reg when enabled.
func (c *Config) ManagerOptions(reg prometheus.Registerer, log *zap.SugaredLogger) ([]manager.Option, error) {
	mode, err := manager.ParseReentrancy(c.Index.Reentrancy)
	if err != nil {
		return nil, err
	}
	opts := []manager.Option{
		manager.WithRemovalNotification(c.Index.NotifyOnEntityRemoval),
		manager.WithReentrancy(mode),
		manager.WithLogger(log),
	}
	if c.Metrics.Enabled && reg != nil {
		opts = append(opts, manager.WithMetrics(metrics.New(reg, c.Metrics.Namespace)))
	}
	return opts, nil
}
