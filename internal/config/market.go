package config

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MarketConfig is the operator-tunable market topology: which bidding zone
// each grid area settles against, and how day-ahead spot prices are
// ingested. It lives in market.yml and hot-reloads on change.
type MarketConfig struct {
	// PriceAreas maps a three-digit grid area code to its bidding zone,
	// DK1 or DK2. Unmapped areas fall back to DK1.
	PriceAreas map[string]string `mapstructure:"priceAreas"`

	// SpotAreas lists the bidding zones the spot ingester keeps current.
	SpotAreas []string `mapstructure:"spotAreas"`

	// SpotLookaheadDays is how many days ahead of today the ingester
	// requests prices for. Day-ahead auctions publish one day out.
	SpotLookaheadDays int `mapstructure:"spotLookaheadDays"`
}

// DefaultMarketConfig returns the values used when market.yml is absent.
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		PriceAreas:        map[string]string{},
		SpotAreas:         []string{"DK1", "DK2"},
		SpotLookaheadDays: 1,
	}
}

// PriceAreaFor resolves the bidding zone for a grid area code.
func (m MarketConfig) PriceAreaFor(gridArea string) string {
	if area, ok := m.PriceAreas[gridArea]; ok {
		return area
	}
	return "DK1"
}

func validateMarketConfig(cfg MarketConfig) error {
	for gridArea, area := range cfg.PriceAreas {
		if area != "DK1" && area != "DK2" {
			return fmt.Errorf("market config: grid area %s maps to unknown price area %q", gridArea, area)
		}
	}
	for _, area := range cfg.SpotAreas {
		if area != "DK1" && area != "DK2" {
			return fmt.Errorf("market config: unknown spot area %q", area)
		}
	}
	if cfg.SpotLookaheadDays < 0 || cfg.SpotLookaheadDays > 7 {
		return fmt.Errorf("market config: spotLookaheadDays %d out of range [0,7]", cfg.SpotLookaheadDays)
	}
	return nil
}

// MarketConfigHolder hands out the current MarketConfig and swaps it in
// place when market.yml changes on disk.
type MarketConfigHolder struct {
	v       *viper.Viper
	current atomic.Value
	log     *zap.Logger
}

// NewMarketConfigHolder reads market.yml, falling back to defaults when the
// file is missing, and starts watching it for changes.
func NewMarketConfigHolder(log *zap.Logger) (*MarketConfigHolder, error) {
	v := viper.New()
	v.SetConfigName("market")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/voltra/config")
	v.AddConfigPath("/etc/voltra")
	v.AddConfigPath(".")
	v.SetEnvPrefix("VOLTRA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read market config: %w", err)
		}
	}

	cfg := DefaultMarketConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := validateMarketConfig(cfg); err != nil {
		return nil, err
	}

	holder := &MarketConfigHolder{v: v, log: log.Named("config.market")}
	holder.current.Store(cfg)

	v.OnConfigChange(func(e fsnotify.Event) {
		next := DefaultMarketConfig()
		if err := v.Unmarshal(&next); err != nil {
			holder.log.Warn("market config reload failed, keeping previous", zap.Error(err))
			return
		}
		if err := validateMarketConfig(next); err != nil {
			holder.log.Warn("market config rejected, keeping previous", zap.Error(err))
			return
		}
		holder.current.Store(next)
		holder.log.Info("market config reloaded",
			zap.String("file", e.Name),
			zap.Int("price_areas", len(next.PriceAreas)),
		)
	})
	v.WatchConfig()

	return holder, nil
}

// Get returns the current market configuration.
func (h *MarketConfigHolder) Get() MarketConfig {
	return h.current.Load().(MarketConfig)
}

// StaticMarketConfigHolder pins a holder to cfg without watching any file,
// for tests and one-shot tools.
func StaticMarketConfigHolder(cfg MarketConfig) *MarketConfigHolder {
	holder := &MarketConfigHolder{log: zap.NewNop()}
	holder.current.Store(cfg)
	return holder
}
