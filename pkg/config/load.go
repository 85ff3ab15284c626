package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override configuration.
const EnvPrefix = "MIALAB_"

// LoadConfig loads configuration in three layers, later layers winning:
//
//  1. DefaultConfig
//  2. The YAML file at configPath, skipped if configPath is empty or missing
//  3. Environment variables with the MIALAB_ prefix
//
// Environment variables are matched case-insensitively against known keys,
// so MIALAB_PROCESSING_NUMWORKERS sets processing.numWorkers.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{}, koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), koanfyaml.Parser()); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	envLookup := buildEnvLookup(k.Keys())
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// buildEnvLookup maps lower-cased, underscore-joined keys back to koanf keys.
func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ToLower(strings.ReplaceAll(key, ".", "_"))] = key
	}
	return lookup
}

// defaultsProvider feeds DefaultConfig to koanf as YAML.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	return yaml.Marshal(DefaultConfig())
}

func (defaultsProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("defaults provider does not support this method")
}
