// internal/relay/jito/jito.go
package jito

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/utils/httpclient"
)

// DefaultSettleDelay is how long SendBundle waits after a successful send.
const DefaultSettleDelay = 350 * time.Millisecond

// ErrRejected is returned when the block engine answers with an RPC error.
var ErrRejected = errors.New("bundle rejected")

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

// Client submits signed transactions to a Jito block engine as bundles.
type Client struct {
	http   *httpclient.Client
	url    string
	settle time.Duration
	nextID atomic.Uint64
	logger *zap.Logger
}

func NewClient(hc *httpclient.Client, url string, settle time.Duration, logger *zap.Logger) *Client {
	if settle < 0 {
		settle = 0
	}
	return &Client{
		http:   hc,
		url:    url,
		settle: settle,
		logger: logger.Named("jito"),
	}
}

// SendBundle submits base58-encoded transactions as one bundle and returns
// the bundle id.
func (c *Client) SendBundle(ctx context.Context, txs []string) (string, error) {
	if len(txs) == 0 {
		return "", errors.New("empty bundle")
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "sendBundle",
		Params:  []interface{}{txs},
	}
	var resp rpcResponse
	if err := c.http.PostJSON(ctx, c.url, req, &resp); err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %d %s", ErrRejected, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("%w: empty bundle id", ErrRejected)
	}

	c.logger.Debug("Bundle sent", zap.String("bundle_id", resp.Result), zap.Int("txs", len(txs)))

	if c.settle > 0 {
		timer := time.NewTimer(c.settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return resp.Result, nil
}
