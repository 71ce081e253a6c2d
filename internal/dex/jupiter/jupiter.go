// internal/dex/jupiter/jupiter.go
package jupiter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/utils/httpclient"
	"github.com/rovshanmuradov/coinbot/internal/wallet"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Relay lands signed transactions.
type Relay interface {
	SendBundle(ctx context.Context, txs []string) (string, error)
}

type Config struct {
	QuoteURL string
	SwapURL  string
	// PriorityFee is sent as computeUnitPriceMicroLamports.
	PriorityFee uint64
}

// Client implements dex.DEX on top of the Jupiter swap API. A nil wallet puts
// it in read-only mode: quotes work, swaps return dex.ErrReadOnly.
type Client struct {
	http   *httpclient.Client
	cfg    Config
	wallet *wallet.Wallet
	relay  Relay
	logger *zap.Logger
}

var _ dex.DEX = (*Client)(nil)

func NewClient(hc *httpclient.Client, cfg Config, w *wallet.Wallet, relay Relay, logger *zap.Logger) *Client {
	return &Client{
		http:   hc,
		cfg:    cfg,
		wallet: w,
		relay:  relay,
		logger: logger.Named("jupiter"),
	}
}

func (c *Client) GetName() string {
	return "jupiter"
}

type quoteResponse struct {
	InputMint   string `json:"inputMint"`
	InAmount    string `json:"inAmount"`
	OutputMint  string `json:"outputMint"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int    `json:"slippageBps"`
	Error       string `json:"error"`
}

// GetQuote requests a route for amount raw units of inputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippagePct float64) (*dex.Quote, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", dex.ErrInvalidQuote)
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(SlippageBps(slippagePct)))

	var raw jsoniter.RawMessage
	if err := c.http.GetJSON(ctx, c.cfg.QuoteURL+"?"+q.Encode(), &raw); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", dex.ErrNoRoute, statusErr.Body)
		}
		return nil, fmt.Errorf("quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", dex.ErrNoRoute, resp.Error)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: inAmount %q", dex.ErrInvalidQuote, resp.InAmount)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: outAmount %q", dex.ErrInvalidQuote, resp.OutAmount)
	}

	return &dex.Quote{
		InputMint:   resp.InputMint,
		OutputMint:  resp.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: resp.SlippageBps,
		Raw:         []byte(raw),
	}, nil
}

type swapRequest struct {
	QuoteResponse                 jsoniter.RawMessage `json:"quoteResponse"`
	UserPublicKey                 string              `json:"userPublicKey"`
	WrapAndUnwrapSol              bool                `json:"wrapAndUnwrapSol"`
	ComputeUnitPriceMicroLamports uint64              `json:"computeUnitPriceMicroLamports"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	Error                string `json:"error"`
}

// ExecuteSwap builds the swap transaction for quote, signs it and submits it
// through the relay.
func (c *Client) ExecuteSwap(ctx context.Context, quote *dex.Quote) (*dex.Receipt, error) {
	if c.wallet == nil {
		return nil, dex.ErrReadOnly
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	if len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: quote was not issued by jupiter", dex.ErrInvalidQuote)
	}

	req := swapRequest{
		QuoteResponse:                 jsoniter.RawMessage(quote.Raw),
		UserPublicKey:                 c.wallet.PublicKey.String(),
		WrapAndUnwrapSol:              true,
		ComputeUnitPriceMicroLamports: c.cfg.PriorityFee,
	}
	var resp swapResponse
	if err := c.http.PostJSON(ctx, c.cfg.SwapURL, req, &resp); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	if resp.Error != "" || resp.SwapTransaction == "" {
		return nil, fmt.Errorf("swap: no transaction returned: %s", resp.Error)
	}

	tx, err := decodeTransaction(resp.SwapTransaction)
	if err != nil {
		return nil, err
	}
	if err := c.wallet.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("sign swap: %w", err)
	}
	signed, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize swap: %w", err)
	}

	bundleID, err := c.relay.SendBundle(ctx, []string{base58.Encode(signed)})
	if err != nil {
		return nil, err
	}

	signature := tx.Signatures[0].String()
	c.logger.Info("Swap submitted",
		zap.String("input", quote.InputMint),
		zap.String("output", quote.OutputMint),
		zap.Uint64("in_amount", quote.InAmount),
		zap.Uint64("out_amount", quote.OutAmount),
		zap.String("signature", signature),
		zap.String("bundle_id", bundleID))

	return &dex.Receipt{
		Signature: signature,
		BundleID:  bundleID,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
	}, nil
}

func decodeTransaction(encoded string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("parse swap transaction: %w", err)
	}
	return tx, nil
}

// SlippageBps converts a percentage to basis points.
func SlippageBps(pct float64) int {
	if pct <= 0 {
		return 0
	}
	return int(math.Round(pct * 100))
}
