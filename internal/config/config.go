// Package config handles loading and validation of opsradar.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// ConfigFileName is the project configuration file opsradar looks for.
const ConfigFileName = "opsradar.yaml"

// Load reads and parses opsradar.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *types.ProjectConfig) error {
	switch cfg.Store {
	case "postgres":
		if cfg.Postgres == nil || cfg.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when store is postgres")
		}
	case "dynamodb":
		if cfg.DynamoDB == nil || cfg.DynamoDB.TableName == "" {
			return fmt.Errorf("dynamodb.tableName is required when store is dynamodb")
		}
		if cfg.Postgres == nil || cfg.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the activity feed")
		}
	case "memory":
		// No backend config needed; activity comes from fixtures.
	case "":
		return fmt.Errorf("store is required (postgres, dynamodb or memory)")
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Redis != nil && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is configured")
	}

	if cfg.Scan.Budget != "" {
		if _, err := time.ParseDuration(cfg.Scan.Budget); err != nil {
			return fmt.Errorf("scan.budget: %w", err)
		}
	}
	if cfg.Scan.Interval != "" {
		if _, err := time.ParseDuration(cfg.Scan.Interval); err != nil {
			return fmt.Errorf("scan.interval: %w", err)
		}
	}

	known := map[string]bool{
		"never_visited":        true,
		"territory_gap":        true,
		"order_frequency_drop": true,
		"prospect_cluster":     true,
		"inactive_hub":         true,
	}
	for _, name := range cfg.Detectors.Disabled {
		if !known[name] {
			return fmt.Errorf("detectors.disabled: unknown detector %q", name)
		}
	}
	return nil
}
