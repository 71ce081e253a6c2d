// internal/feed/pumpfun/feed.go
package pumpfun

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/utils/httpclient"
)

// Defaults applied when the feed omits a field. Holding percentages default to
// 100 so an incomplete listing never passes admission.
const (
	defaultAgeSeconds      = 100
	defaultDevHoldingPct   = 100
	defaultTop10HoldingPct = 100
)

type launch struct {
	Mint                *string  `json:"mint"`
	Name                *string  `json:"name"`
	AgeSeconds          *float64 `json:"age_seconds"`
	LiquidityUSD        *float64 `json:"liquidity_usd"`
	HolderCount         *int     `json:"holder_count"`
	DevHoldingPercent   *float64 `json:"dev_holding_percent"`
	Top10HoldingPercent *float64 `json:"top10_holding_percent"`
	VolumeUSD           *float64 `json:"volume_usd"`
	PriceChange5m       *float64 `json:"price_change_5m"`
	MACD                *float64 `json:"MACD_12_26_9"`
}

type launchesResponse struct {
	Launches []launch `json:"launches"`
}

// Feed reads new launches from the pump.fun launches endpoint.
type Feed struct {
	http   *httpclient.Client
	url    string
	logger *zap.Logger
}

func NewFeed(hc *httpclient.Client, url string, logger *zap.Logger) *Feed {
	return &Feed{
		http:   hc,
		url:    url,
		logger: logger.Named("pumpfun_feed"),
	}
}

// FetchOpportunities returns the current launches in feed order. Entries
// without a mint are dropped.
func (f *Feed) FetchOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	var resp launchesResponse
	if err := f.http.GetJSON(ctx, f.url, &resp); err != nil {
		return nil, fmt.Errorf("fetch launches: %w", err)
	}

	opps := make([]domain.Opportunity, 0, len(resp.Launches))
	dropped := 0
	for _, l := range resp.Launches {
		if l.Mint == nil || *l.Mint == "" {
			dropped++
			continue
		}
		opps = append(opps, l.opportunity())
	}
	if dropped > 0 {
		f.logger.Debug("Dropped launches without mint", zap.Int("count", dropped))
	}
	return opps, nil
}

func (l launch) opportunity() domain.Opportunity {
	age := orFloat(l.AgeSeconds, defaultAgeSeconds)
	return domain.Opportunity{
		Mint:             *l.Mint,
		Name:             orString(l.Name, ""),
		Age:              time.Duration(age * float64(time.Second)),
		LiquidityUSD:     orFloat(l.LiquidityUSD, 0),
		Holders:          orInt(l.HolderCount, 0),
		DevHoldingPct:    orFloat(l.DevHoldingPercent, defaultDevHoldingPct),
		Top10HoldingPct:  orFloat(l.Top10HoldingPercent, defaultTop10HoldingPct),
		VolumeUSD:        orFloat(l.VolumeUSD, 0),
		PriceChange5mPct: orFloat(l.PriceChange5m, 0),
		Momentum:         orFloat(l.MACD, 0),
	}
}

func orFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func orString(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
