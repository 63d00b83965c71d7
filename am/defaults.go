package am

import (
	"github.com/spf13/viper"
)

// Config file names and locations
const (
	ConfigFileName = "popidx.toml"
	EnvPrefix      = "POPIDX"
	SystemConfig   = "/etc/popidx/popidx.toml"
	UserConfigDir  = ".popidx"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Index manager defaults
	v.SetDefault("index.notify_on_entity_removal", true)
	v.SetDefault("index.reentrancy", "defer")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "popidx")

	// Logging defaults
	v.SetDefault("log.json", false)

	// Simulation defaults
	v.SetDefault("simulate.population", 1000)
	v.SetDefault("simulate.groups", 5)
	v.SetDefault("simulate.max_groups_per_entity", 5)
	v.SetDefault("simulate.churn_steps", 2000)
	v.SetDefault("simulate.checkpoint", 250)
	v.SetDefault("simulate.seed", 1)
}
