// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrNoAccount is returned when no wallet is bound to an AccountInfo.
var ErrNoAccount = errors.New("wallet not configured")

// Client is a thin adapter over the Solana JSON-RPC API.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetBalance returns the lamport balance of pubkey.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetBalance error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return result.Value, nil
}

// Close releases the underlying RPC transport.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// AccountInfo answers balance queries for one wallet.
type AccountInfo struct {
	client *Client
	owner  *solana.PublicKey
}

// NewAccountInfo binds owner to client. A nil owner makes every query fail
// with ErrNoAccount.
func NewAccountInfo(client *Client, owner *solana.PublicKey) *AccountInfo {
	return &AccountInfo{client: client, owner: owner}
}

// Balance returns the owner's balance in lamports.
func (a *AccountInfo) Balance(ctx context.Context) (uint64, error) {
	if a.owner == nil {
		return 0, ErrNoAccount
	}
	return a.client.GetBalance(ctx, *a.owner)
}
