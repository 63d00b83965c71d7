package am

// Config represents the popidx configuration
type Config struct {
	Index    IndexConfig    `mapstructure:"index"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// IndexConfig configures the index manager
type IndexConfig struct {
	NotifyOnEntityRemoval bool   `mapstructure:"notify_on_entity_removal"` // emit REMOVE when a member leaves the population
	Reentrancy            string `mapstructure:"reentrancy"`               // defer | reject
}

// MetricsConfig configures Prometheus collection
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"` // metric name prefix (default: popidx)
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON bool `mapstructure:"json"` // production JSON output instead of the compact console encoder
}

// SimulateConfig configures `popidx simulate`
type SimulateConfig struct {
	Population         int   `mapstructure:"population"`            // entities created at start
	Groups             int   `mapstructure:"groups"`                // groups per group type
	MaxGroupsPerEntity int   `mapstructure:"max_groups_per_entity"` // upper bound for initial random assignment
	ChurnSteps         int   `mapstructure:"churn_steps"`           // random mutations after setup
	Checkpoint         int   `mapstructure:"checkpoint"`            // steps between oracle checks
	Seed               int64 `mapstructure:"seed"`
}
