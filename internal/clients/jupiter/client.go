// Package jupiter is the HTTP client for the swap aggregator: GET /quote for
// prices and POST /swap for provider-built unsigned transactions. Retries are
// the caller's concern; the client performs exactly one request per call and
// classifies failures per status class.
package jupiter

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/kazusol/soltrader/internal/entity"
)

const defaultTimeout = 30 * time.Second

// computeUnitPriceMicroLamports is the priority fee attached to built swaps.
const computeUnitPriceMicroLamports = 1000

// Client talks to a Jupiter-compatible quote/swap API.
type Client struct {
	http *resty.Client
}

// New creates a client for the given API base URL, e.g.
// https://lite-api.jup.ag/swap/v1.
func New(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// GetQuote fetches a quote for swapping amount (smallest units) of inputMint
// into outputMint. Quote fetches are read-only and idempotent.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	var quote Quote

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   inputMint,
			"outputMint":  outputMint,
			"amount":      strconv.FormatUint(amount, 10),
			"slippageBps": strconv.Itoa(slippageBps),
		}).
		SetResult(&quote).
		Get("/quote")
	if err != nil {
		return nil, errors.Wrap(err, "send quote request")
	}

	if !resp.IsSuccess() {
		return nil, &entity.QuoteUnavailableError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	return &quote, nil
}

// BuildSwapTransaction posts the quote back and receives a base64-encoded
// unsigned transaction addressed to the wallet's public key.
func (c *Client) BuildSwapTransaction(ctx context.Context, userPublicKey string, quote *Quote) (*SwapTransaction, error) {
	var swap SwapTransaction

	req := swapRequest{
		UserPublicKey:                 userPublicKey,
		WrapAndUnwrapSol:              true,
		UseSharedAccounts:             true,
		ComputeUnitPriceMicroLamports: computeUnitPriceMicroLamports,
		AsLegacyTransaction:           false,
		DynamicComputeUnitLimit:       true,
		QuoteResponse:                 quote,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&swap).
		Post("/swap")
	if err != nil {
		return nil, errors.Wrap(err, "send swap build request")
	}

	if !resp.IsSuccess() {
		return nil, classifyStatus(resp.StatusCode(), resp.String())
	}

	if swap.SwapTransaction == "" {
		return nil, &entity.RequestError{StatusCode: resp.StatusCode(), Body: "swap response missing transaction payload"}
	}

	return &swap, nil
}

// classifyStatus maps a non-success HTTP status to the failure taxonomy:
// 429 backs off, other 4xx are request errors surfaced immediately, and 5xx
// stay untyped so the retrier treats them as transient.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &entity.RateLimitedError{Body: body}
	case status >= 400 && status < 500:
		return &entity.RequestError{StatusCode: status, Body: body}
	default:
		return errors.Errorf("provider returned status %d: %s", status, body)
	}
}
