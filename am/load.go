package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/teranos/popidx/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// ConfigSources records which file set each key during the last merge.
// Keys absent from the map come from defaults or the environment.
var ConfigSources = map[string]SourceInfo{}

// Load reads the popidx configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// UseConfigFile replaces the system, user and project files with configPath.
// Environment variables still apply. Later calls to Load, Get and the
// introspection helpers read the result.
func UseConfigFile(configPath string) error {
	Reset()

	v := newViper()
	if err := mergeLayer(v, configPath, SourceFile); err != nil {
		ConfigSources = map[string]SourceInfo{}
		return errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", configPath),
			"--config expects a TOML file such as popidx.toml")
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return errors.Wrapf(err, "config file %s", configPath)
	}

	viperInstance = v
	globalConfig = config
	return nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := newViper()

	// Manually merge configs in precedence order: system -> user -> project -> env vars
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// newViper returns a Viper with defaults and environment binding but no files.
func newViper() *viper.Viper {
	v := viper.New()

	// POPIDX_INDEX_REENTRANCY -> index.reentrancy
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// findProjectConfig searches for popidx.toml by walking up the directory tree.
// Returns the path to the first file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles manually merges configuration files in the correct precedence order
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	type layer struct {
		path   string
		source ConfigSource
	}

	layers := []layer{{SystemConfig, SourceSystem}}
	if homeDir, err := os.UserHomeDir(); err == nil {
		layers = append(layers, layer{filepath.Join(homeDir, UserConfigDir, ConfigFileName), SourceUser})
	}
	if projectConfig := findProjectConfig(); projectConfig != "" {
		layers = append(layers, layer{projectConfig, SourceProject})
	}

	for _, l := range layers {
		if _, err := os.Stat(l.path); err != nil {
			continue
		}
		// Unreadable files in the cascade are skipped
		_ = mergeLayer(v, l.path, l.source)
	}
}

// mergeLayer copies every key of the TOML file at path into v and records
// source for it.
func mergeLayer(v *viper.Viper, path string, source ConfigSource) error {
	tempViper := viper.New()
	tempViper.SetConfigFile(path)
	tempViper.SetConfigType("toml")
	if err := tempViper.ReadInConfig(); err != nil {
		return err
	}
	for _, key := range tempViper.AllKeys() {
		v.Set(key, tempViper.Get(key))
		ConfigSources[key] = SourceInfo{Source: source, Path: path}
	}
	return nil
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return initViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return initViper().GetString(key)
}

// GetBool returns a configuration value as bool using dot notation
func GetBool(key string) bool {
	return initViper().GetBool(key)
}

// GetInt returns a configuration value as int using dot notation
func GetInt(key string) int {
	return initViper().GetInt(key)
}
