// Package solana is a minimal JSON-RPC 2.0 client for the chain endpoints
// the trading engine needs: balances, blockhash, submission and
// confirmation. Each method performs exactly one request; retry policy
// belongs to the caller.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/kazusol/soltrader/internal/entity"
)

const (
	defaultTimeout      = 30 * time.Second
	confirmPollInterval = 2 * time.Second
)

// Client is a Solana JSON-RPC HTTP client.
type Client struct {
	endpoint  string
	http      *http.Client
	requestID atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a client for the given RPC endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return errors.Errorf("RPC error %d: %s", e.Code, e.Message).Error()
}

// call performs a single JSON-RPC request.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &entity.RateLimitedError{Body: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return errors.Wrap(err, "unmarshal response")
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return errors.Wrap(err, "unmarshal result")
		}
	}
	return nil
}

// GetBalance returns the lamport balance of pubkey.
func (c *Client) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{pubkey}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenBalance returns the owner's total UI-amount balance for the given
// mint, summed over all token accounts.
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	params := []any{
		owner,
		map[string]any{"mint": mint},
		map[string]any{"encoding": "jsonParsed"},
	}

	var result tokenAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for _, acc := range result.Value {
		amount := acc.Account.Data.Parsed.Info.TokenAmount.UIAmountString
		if amount == "" {
			continue
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Decimal{}, errors.Wrapf(err, "parse token amount %q", amount)
		}
		total = total.Add(v)
	}
	return total, nil
}

// Blockhash is a recent blockhash plus the last block height it is valid for.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// GetLatestBlockhash fetches a fresh blockhash for transaction stamping.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	var result struct {
		Value Blockhash `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": "confirmed"}}, &result); err != nil {
		return nil, err
	}
	if result.Value.Blockhash == "" {
		return nil, errors.New("empty blockhash in response")
	}
	return &result.Value, nil
}

// SendTransaction submits base64-encoded signed transaction bytes and
// returns the signature. A resubmission of identical signed bytes that the
// chain has already processed cannot double-execute, so "already processed"
// is mapped to the known signature instead of an error.
func (c *Client) SendTransaction(ctx context.Context, signedTxBase64, knownSignature string) (string, error) {
	params := []any{
		signedTxBase64,
		map[string]any{"encoding": "base64", "maxRetries": 0},
	}

	var signature string
	err := c.call(ctx, "sendTransaction", params, &signature)
	if err != nil {
		if isAlreadyProcessed(err) && knownSignature != "" {
			return knownSignature, nil
		}
		return "", err
	}
	return signature, nil
}

func isAlreadyProcessed(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Message, "already been processed") ||
		strings.Contains(rpcErr.Message, "AlreadyProcessed")
}

type signatureStatus struct {
	ConfirmationStatus string `json:"confirmationStatus"`
	Err                any    `json:"err"`
}

// ConfirmTransaction polls signature statuses until the transaction is
// confirmed or finalized, the chain reports an execution error, or ctx ends.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		var result struct {
			Value []*signatureStatus `json:"value"`
		}
		params := []any{[]string{signature}, map[string]any{"searchTransactionHistory": false}}
		if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
			return err
		}

		if len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return errors.Errorf("transaction %s failed on-chain: %v", signature, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type tokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount struct {
							Amount         string `json:"amount"`
							Decimals       int32  `json:"decimals"`
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}
