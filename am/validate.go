package am

import (
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/manager"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := manager.ParseReentrancy(c.Index.Reentrancy); err != nil {
		return errors.WithHint(
			errors.Newf("index.reentrancy must be \"defer\" or \"reject\", got %q", c.Index.Reentrancy),
			"nested mutations from subscriber callbacks are queued with \"defer\"")
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("metrics.namespace cannot be empty when metrics are enabled")
	}

	// Simulation sizes: 0 = nothing to do (valid), negative = invalid
	if c.Simulate.Population < 0 {
		return errors.Newf("simulate.population must be >= 0, got %d", c.Simulate.Population)
	}
	if c.Simulate.Groups < 0 {
		return errors.Newf("simulate.groups must be >= 0, got %d", c.Simulate.Groups)
	}
	if c.Simulate.MaxGroupsPerEntity < 0 {
		return errors.Newf("simulate.max_groups_per_entity must be >= 0, got %d", c.Simulate.MaxGroupsPerEntity)
	}
	if c.Simulate.ChurnSteps < 0 {
		return errors.Newf("simulate.churn_steps must be >= 0, got %d", c.Simulate.ChurnSteps)
	}
	if c.Simulate.Checkpoint <= 0 {
		return errors.Newf("simulate.checkpoint must be > 0, got %d", c.Simulate.Checkpoint)
	}

	return nil
}
