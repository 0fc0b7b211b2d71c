package trades

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kazusol/soltrader/internal/entity"
)

func tradeRecord(price string) *entity.TradeRecord {
	return &entity.TradeRecord{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		PositionBefore: entity.PositionQuote,
		PositionAfter:  entity.PositionBase,
		Action:         entity.ActionBuyBase,
		Signature:      "sig-" + price,
		PriceAtTrade:   decimal.RequireFromString(price),
	}
}

func TestSaveAndLatest(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, latest, "empty store has no latest trade")

	first := tradeRecord("150")
	second := tradeRecord("152")
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.True(t, latest.PriceAtTrade.Equal(second.PriceAtTrade))
}

func TestSaveRequiresID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Save(context.Background(), &entity.TradeRecord{})
	require.Error(t, err)
}

func TestRecentNewestFirst(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		rec := tradeRecord("150")
		ids = append(ids, rec.ID)
		require.NoError(t, store.Save(ctx, rec))
	}

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, ids[4], recent[0].ID)
	require.Equal(t, ids[3], recent[1].ID)
	require.Equal(t, ids[2], recent[2].ID)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestPruneDropsAgedTrades(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	aged := tradeRecord("120")
	aged.Timestamp = now.Add(-40 * 24 * time.Hour)
	fresh := tradeRecord("150")
	require.NoError(t, store.Save(ctx, aged))
	require.NoError(t, store.Save(ctx, fresh))

	dropped, err := store.Prune(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, dropped)

	recent, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, fresh.ID, recent[0].ID)
}

func TestRecoveryAfterReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	rec := tradeRecord("151.5")
	require.NoError(t, store.Save(ctx, rec))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, rec.ID, latest.ID)
	require.Equal(t, rec.Signature, latest.Signature)
	require.True(t, latest.PriceAtTrade.Equal(rec.PriceAtTrade))
}
