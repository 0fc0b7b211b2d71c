package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPushSendsTextMessage(t *testing.T) {
	var gotAuth string
	var gotBody pushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New("channel-token", "user-123", zap.NewNop(), WithEndpoint(srv.URL))
	n.Push(context.Background(), "trade executed")

	require.Equal(t, "Bearer channel-token", gotAuth)
	require.Equal(t, "user-123", gotBody.To)
	require.Len(t, gotBody.Messages, 1)
	require.Equal(t, "text", gotBody.Messages[0].Type)
	require.Equal(t, "trade executed", gotBody.Messages[0].Text)
}

func TestPushSwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := New("bad-token", "user-123", zap.NewNop(), WithEndpoint(srv.URL))

	// Must not panic or propagate the failure.
	n.Push(context.Background(), "trade executed")
}
