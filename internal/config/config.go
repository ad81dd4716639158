// Package config loads the lightstore daemon's configuration the way
// the teacher's pkg/config does: Viper reads a default.yaml, an
// optional named override merges on top, and environment variables take
// final precedence.
//
// Grounded on synnergy-network/pkg/config/config.go and the cmd/config
// thin-wrapper pattern; godotenv.Load (cmd/cli/network.go's netInit)
// provides the .env-file convenience the teacher's own binaries use.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the unified configuration for one lightstore node.
type Config struct {
	Daemon struct {
		BindAddr string   `mapstructure:"bind_addr"`
		Seeds    []string `mapstructure:"seeds"`
	} `mapstructure:"daemon"`

	Keys struct {
		RepoPath string `mapstructure:"repo_path"`
	} `mapstructure:"keys"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// AppConfig holds the configuration loaded by Load.
var AppConfig Config

// Load reads config/default.yaml, merges env's override file if env is
// non-empty, applies LIGHTSTORE_-prefixed environment variable
// overrides, and stores the result in AppConfig.
func Load(env string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("daemon.bind_addr", "0.0.0.0:0")
	viper.SetDefault("daemon.seeds", []string{"seed1.lightstore.example", "seed2.lightstore.example"})
	viper.SetDefault("keys.repo_path", ".")
	viper.SetDefault("logging.level", "info")

	viper.SetConfigName("default")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: load default: %w", err)
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", env, err)
		}
	}

	viper.SetEnvPrefix("LIGHTSTORE")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &AppConfig, nil
}

// seedFile is the shape of a static peer-list file for offline/devnet-style
// bootstrapping, bypassing DNS seed discovery entirely.
type seedFile struct {
	Seeds []string `yaml:"seeds"`
}

// LoadSeedFile reads a standalone YAML peer list (unrelated to the
// Viper-managed default.yaml) and returns its seed hostnames, the same
// direct yaml.Unmarshal-of-a-file pattern the teacher's
// `cmd/cli/devnet.go` uses for its own static node list, for the case
// where a deployment wants to pin bootstrap seeds without DNS.
func LoadSeedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("config: parse seed file: %w", err)
	}
	return sf.Seeds, nil
}
