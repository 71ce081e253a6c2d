package pumpfun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/utils/httpclient"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) *Feed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := zaptest.NewLogger(t)
	hc := httpclient.New(httpclient.Options{Name: "feed", Retries: 1}, nil, logger)
	return NewFeed(hc, srv.URL+"/api/launches?limit=50", logger)
}

func TestFetchOpportunities(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"launches":[
			{"mint":"A","name":"Alpha","age_seconds":42,"liquidity_usd":25000,"holder_count":80,
			 "dev_holding_percent":5,"top10_holding_percent":30,"volume_usd":15000,
			 "price_change_5m":12.5,"MACD_12_26_9":0.8},
			{"name":"no mint"},
			{"mint":"B"}
		]}`))
	})

	opps, err := feed.FetchOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 2)

	assert.Equal(t, domain.Opportunity{
		Mint:             "A",
		Name:             "Alpha",
		Age:              42 * time.Second,
		LiquidityUSD:     25000,
		Holders:          80,
		DevHoldingPct:    5,
		Top10HoldingPct:  30,
		VolumeUSD:        15000,
		PriceChange5mPct: 12.5,
		Momentum:         0.8,
	}, opps[0])

	assert.Equal(t, domain.Opportunity{
		Mint:            "B",
		Age:             100 * time.Second,
		DevHoldingPct:   100,
		Top10HoldingPct: 100,
	}, opps[1])
}

func TestFetchOpportunities_MissingList(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	opps, err := feed.FetchOpportunities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFetchOpportunities_Error(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := feed.FetchOpportunities(context.Background())
	assert.ErrorIs(t, err, httpclient.ErrStatus)
}
