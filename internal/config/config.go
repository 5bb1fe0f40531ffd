package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result. A missing access token is not an
// error here: the app degrades to strategy-disabled mode instead.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("ACCESS_TOKEN")); token != "" {
		cfg.Feed.AccessToken = token
	}
	if keys := strings.TrimSpace(os.Getenv("TRADING_SYMBOL_LIST")); keys != "" {
		parts := strings.Split(keys, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			cfg.Feed.InstrumentKeys = out
		}
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Feed.URL) == "" {
		return fmt.Errorf("feed.url is required")
	}
	if len(cfg.Feed.InstrumentKeys) == 0 {
		return fmt.Errorf("feed.instrument_keys must not be empty")
	}
	if cfg.Strategy.RSICeiling <= cfg.Strategy.RSIFloor {
		return fmt.Errorf("strategy.rsi_ceiling must be greater than rsi_floor")
	}
	if cfg.Risk.TargetATRMultiple <= cfg.Risk.StopATRMultiple {
		return fmt.Errorf("risk.target_atr_multiple must be greater than stop_atr_multiple")
	}
	return nil
}
