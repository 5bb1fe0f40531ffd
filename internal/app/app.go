package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nkbot/internal/broker"
	nkcfg "nkbot/internal/config"
	"nkbot/internal/logger"
	"nkbot/internal/market"
	"nkbot/internal/sentiment"
	"nkbot/internal/sizing"
	"nkbot/internal/strategy"
)

// App is the single application context: every component is constructed once
// here and passed by reference, no ambient globals.
type App struct {
	cfg     *nkcfg.Config
	gateway broker.Gateway
	cache   *sentiment.Cache
	engine  *strategy.Engine
	stream  *market.Stream
}

// New wires the full engine from config. The market stream is left nil when
// the access token is missing; Run then keeps the process alive in
// strategy-disabled mode instead of crashing.
func New(cfg *nkcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	gateway := broker.NewPaper()

	endpoints := make([]sentiment.Endpoint, 0, len(cfg.Sentiment.Endpoints))
	for _, ep := range cfg.Sentiment.Endpoints {
		endpoints = append(endpoints, sentiment.Endpoint{URL: ep.URL, Path: ep.Path})
	}
	source := sentiment.NewNewsSource(sentiment.NewHTTPHeadlineFetcher(endpoints))
	cache := sentiment.NewCache(source, cfg.Sentiment.RefreshInterval())

	risk := strategy.NewRiskManager(strategy.RiskConfig{
		StopATRMultiple:   cfg.Risk.StopATRMultiple,
		TargetATRMultiple: cfg.Risk.TargetATRMultiple,
		MaxHold:           cfg.Risk.MaxHold(),
		StagnantPnL:       cfg.Risk.StagnantPnL,
	}, gateway, sizing.Fixed{Lots: cfg.Risk.Quantity})

	evaluator := strategy.NewEvaluator(strategy.Thresholds{
		VolumeSurge:  cfg.Strategy.VolumeSurge,
		RSIFloor:     cfg.Strategy.RSIFloor,
		RSICeiling:   cfg.Strategy.RSICeiling,
		MinSentiment: cfg.Strategy.MinSentiment,
	})

	decoder := market.JSONTickDecoder{
		SymbolPath: cfg.Feed.Tick.SymbolPath,
		PricePath:  cfg.Feed.Tick.PricePath,
		TimePath:   cfg.Feed.Tick.TimePath,
	}
	engine := strategy.NewEngine(decoder, risk, evaluator, cache, cfg.Strategy.MinHistory)

	app := &App{
		cfg:     cfg,
		gateway: gateway,
		cache:   cache,
		engine:  engine,
	}

	if cfg.Feed.AccessToken != "" {
		stream, err := market.NewStream(market.StreamConfig{
			URL:            cfg.Feed.URL,
			AccessToken:    cfg.Feed.AccessToken,
			APIVersion:     cfg.Feed.APIVersion,
			InstrumentKeys: cfg.Feed.InstrumentKeys,
			Mode:           cfg.Feed.Mode,
			RetryDelay:     cfg.Feed.ReconnectDelay(),
		}, engine)
		if err != nil {
			return nil, fmt.Errorf("building feed stream: %w", err)
		}
		app.stream = stream
	}
	return app, nil
}

// Run starts the background loops and blocks until ctx is cancelled or a
// loop fails terminally. The sentiment cycle always runs; the feed only when
// a credential is configured.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := a.cache.Run(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("sentiment loop: %w", err)
		}
		return nil
	})

	if a.stream == nil {
		logger.Warnf("[app] no access token configured, strategy disabled — feed will not start")
		<-ctx.Done()
		return group.Wait()
	}

	group.Go(func() error {
		err := a.stream.Run(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("market stream: %w", err)
		}
		return nil
	})

	return group.Wait()
}

// Engine exposes the strategy engine so an external candle aggregator can
// deliver closed candles via OnCandle.
func (a *App) Engine() *strategy.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// StreamStats reports feed health; zero value when the feed never started.
func (a *App) StreamStats() market.StreamStats {
	if a == nil || a.stream == nil {
		return market.StreamStats{}
	}
	return a.stream.Stats()
}
