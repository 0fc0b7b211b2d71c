// Package notifier pushes human-readable event summaries to a LINE account.
// Notifications are best-effort: a delivery failure is logged and never fails
// the trading cycle that produced it.
package notifier

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the LINE Messaging API push endpoint.
	DefaultEndpoint = "https://api.line.me/v2/bot/message/push"

	pushTimeout = 10 * time.Second
)

// LineNotifier sends push messages through the LINE Messaging API.
type LineNotifier struct {
	http   *resty.Client
	userID string
	logger *zap.Logger
}

// Option configures a LineNotifier.
type Option func(*LineNotifier)

// WithEndpoint overrides the push endpoint, used by tests.
func WithEndpoint(url string) Option {
	return func(n *LineNotifier) {
		n.http.SetBaseURL(url)
	}
}

// New creates a notifier authenticated with the given channel token, pushing
// to the given user.
func New(channelToken, userID string, logger *zap.Logger, opts ...Option) *LineNotifier {
	client := resty.New().
		SetBaseURL(DefaultEndpoint).
		SetTimeout(pushTimeout).
		SetAuthToken(channelToken).
		SetHeader("Content-Type", "application/json")

	n := &LineNotifier{http: client, userID: userID, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends one text message. Failures are logged and swallowed so callers
// never couple their outcome to notification delivery.
func (n *LineNotifier) Push(ctx context.Context, text string) {
	if err := n.push(ctx, text); err != nil {
		n.logger.Warn("notification delivery failed", zap.Error(err))
	}
}

func (n *LineNotifier) push(ctx context.Context, text string) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(pushRequest{
			To:       n.userID,
			Messages: []textMessage{{Type: "text", Text: text}},
		}).
		Post("")
	if err != nil {
		return errors.Wrap(err, "send push message")
	}
	if !resp.IsSuccess() {
		return errors.Errorf("push rejected with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
