package config

import "time"

// Config is the top-level configuration carrier for the engine.
type Config struct {
	App       AppConfig       `toml:"app"`
	Feed      FeedConfig      `toml:"feed"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Risk      RiskConfig      `toml:"risk"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// FeedConfig describes the upstream market-data websocket. AccessToken is
// normally injected via the ACCESS_TOKEN environment variable rather than the
// config file; an empty token leaves the engine in strategy-disabled mode.
type FeedConfig struct {
	URL                   string         `toml:"url"`
	AccessToken           string         `toml:"access_token"`
	APIVersion            string         `toml:"api_version"`
	InstrumentKeys        []string       `toml:"instrument_keys"`
	Mode                  string         `toml:"mode"`
	ReconnectDelaySeconds int            `toml:"reconnect_delay_seconds"`
	Tick                  TickPathConfig `toml:"tick"`
}

// TickPathConfig holds the gjson paths used to pull fields out of a tick
// payload. The upstream wire format is not pinned down, so the mapping is
// configuration rather than code.
type TickPathConfig struct {
	SymbolPath string `toml:"symbol_path"`
	PricePath  string `toml:"price_path"`
	TimePath   string `toml:"time_path"`
}

type SentimentConfig struct {
	RefreshSeconds int            `toml:"refresh_seconds"`
	Endpoints      []NewsEndpoint `toml:"endpoints"`
}

// NewsEndpoint is an HTTP source of headlines: GET URL, extract an array of
// strings at the given gjson path.
type NewsEndpoint struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
}

type StrategyConfig struct {
	MinHistory   int     `toml:"min_history"`
	VolumeSurge  float64 `toml:"volume_surge"`
	RSIFloor     float64 `toml:"rsi_floor"`
	RSICeiling   float64 `toml:"rsi_ceiling"`
	MinSentiment float64 `toml:"min_sentiment"`
}

type RiskConfig struct {
	StopATRMultiple   float64 `toml:"stop_atr_multiple"`
	TargetATRMultiple float64 `toml:"target_atr_multiple"`
	MaxHoldSeconds    int     `toml:"max_hold_seconds"`
	StagnantPnL       float64 `toml:"stagnant_pnl"`
	Quantity          int     `toml:"quantity"`
}

func (f FeedConfig) ReconnectDelay() time.Duration {
	if f.ReconnectDelaySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(f.ReconnectDelaySeconds) * time.Second
}

func (s SentimentConfig) RefreshInterval() time.Duration {
	if s.RefreshSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.RefreshSeconds) * time.Second
}

func (r RiskConfig) MaxHold() time.Duration {
	if r.MaxHoldSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.MaxHoldSeconds) * time.Second
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Feed.APIVersion == "" {
		c.Feed.APIVersion = "2.0"
	}
	if c.Feed.Mode == "" {
		c.Feed.Mode = "full"
	}
	if c.Strategy.MinHistory <= 0 {
		c.Strategy.MinHistory = 50
	}
	if c.Strategy.VolumeSurge <= 0 {
		c.Strategy.VolumeSurge = 2.0
	}
	if c.Strategy.RSIFloor <= 0 {
		c.Strategy.RSIFloor = 50
	}
	if c.Strategy.RSICeiling <= 0 {
		c.Strategy.RSICeiling = 75
	}
	if c.Strategy.MinSentiment <= 0 {
		c.Strategy.MinSentiment = 0.1
	}
	if c.Risk.StopATRMultiple <= 0 {
		c.Risk.StopATRMultiple = 1.5
	}
	if c.Risk.TargetATRMultiple <= 0 {
		c.Risk.TargetATRMultiple = 3.0
	}
	if c.Risk.StagnantPnL <= 0 {
		c.Risk.StagnantPnL = 0.002
	}
	if c.Risk.Quantity <= 0 {
		c.Risk.Quantity = 1
	}
}
