package entity

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the trading cycle. Transient failures (timeouts, 5xx,
// connection resets) are left untyped and retried by the retrier; the types
// below mark failures where a blind retry cannot help.

// ErrUnsupportedTransactionFormat marks a versioned transaction that cannot
// be downgraded to the legacy representation. Fatal for the cycle.
var ErrUnsupportedTransactionFormat = errors.New("unsupported transaction format")

// ErrCycleInProgress is returned when a trigger arrives while a decision
// cycle is already running. Cycles are never interleaved over one wallet.
var ErrCycleInProgress = errors.New("trading cycle already in progress")

// RequestError is a non-rate-limit 4xx from a provider: the request itself
// is wrong, so it is surfaced immediately and never retried.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected with status %d: %s", e.StatusCode, e.Body)
}

// RateLimitedError is a 429 from a provider; retried with the same backoff
// budget as transient failures.
type RateLimitedError struct {
	Body string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited (429): %s", e.Body)
}

// QuoteUnavailableError is a non-success status from the quote endpoint,
// preserving the provider's status code class.
type QuoteUnavailableError struct {
	StatusCode int
	Body       string
}

func (e *QuoteUnavailableError) Error() string {
	return fmt.Sprintf("quote unavailable (status %d): %s", e.StatusCode, e.Body)
}

// QuoteMalformedError is a quote response that parses but carries a zero or
// unparseable amount. Retrying will not change a parse failure.
type QuoteMalformedError struct {
	Reason string
}

func (e *QuoteMalformedError) Error() string {
	return fmt.Sprintf("malformed quote: %s", e.Reason)
}

// BalanceAnomalyError flags a non-positive balance delta observed after an
// executed swap. The swap is already irreversible, so the cycle degrades the
// realized price to zero and proceeds instead of aborting.
type BalanceAnomalyError struct {
	Detail string
}

func (e *BalanceAnomalyError) Error() string {
	return fmt.Sprintf("balance anomaly: %s", e.Detail)
}

// IsRetryable reports whether a failure may be retried blindly. Typed
// client/config failures and parse failures are final; everything else is
// treated as transient.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return false
	}
	var malformed *QuoteMalformedError
	if errors.As(err, &malformed) {
		return false
	}
	var unavailable *QuoteUnavailableError
	if errors.As(err, &unavailable) {
		// 4xx is a client/config error, except 429 which backs off.
		return unavailable.StatusCode < 400 || unavailable.StatusCode >= 500 ||
			unavailable.StatusCode == 429
	}
	if errors.Is(err, ErrUnsupportedTransactionFormat) {
		return false
	}
	return true
}
